// Package httpapi is the HTTP boundary adapter: it translates requests
// on the auth endpoints into session-service calls and maps the
// service's error kinds onto status codes. Everything stateful lives
// below it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dcastellanos/contenthub/internal/logging"
	"github.com/dcastellanos/contenthub/internal/server/models"
	"github.com/dcastellanos/contenthub/internal/server/services"
	"github.com/dcastellanos/contenthub/internal/server/token"
)

// SessionService is the slice of the session workflow the boundary
// needs. *services.SessionService satisfies it.
type SessionService interface {
	Register(ctx context.Context, email, password string, roleID int64) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
}

// Server serves the auth endpoints over HTTP.
type Server struct {
	address  string
	logger   logging.Logger
	sessions SessionService
	issuer   *token.Issuer
}

func NewServer(address string, l logging.Logger, sessions SessionService, issuer *token.Issuer) *Server {
	return &Server{
		address:  address,
		logger:   l.With("module", "httpapi"),
		sessions: sessions,
		issuer:   issuer,
	}
}

// Handler builds the route table. Logout sits behind the bearer gate;
// everything else is public.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.Handle("POST /logout", s.requireAuth(http.HandlerFunc(s.handleLogout)))
	mux.HandleFunc("GET /ping", s.handlePing)

	return s.withRequestLogging(mux)
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
