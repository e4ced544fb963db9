// Package server initializes and runs the authentication server. It
// owns the database handle's lifecycle, wires repositories, services,
// and the HTTP boundary together, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dcastellanos/contenthub/internal/logging"
	"github.com/dcastellanos/contenthub/internal/server/config"
	"github.com/dcastellanos/contenthub/internal/server/httpapi"
	"github.com/dcastellanos/contenthub/internal/server/repositories/repomanager"
	"github.com/dcastellanos/contenthub/internal/server/services"
	"github.com/dcastellanos/contenthub/internal/server/token"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

// NewApp builds the application from config: one pooled DB handle,
// migrations, the token issuer, the session service, and the HTTP
// server. The DB handle is injected everywhere; nothing reaches for
// ambient global state.
func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return nil, errors.New("access and refresh token secrets must be configured")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	issuer := token.NewIssuer(
		[]byte(c.AccessTokenSecret),
		[]byte(c.RefreshTokenSecret),
		c.AccessTokenValidityDuration,
		c.RefreshTokenValidityDuration,
	)

	sessions := services.NewSessionService(db, m, issuer, c)
	httpServer := httpapi.NewServer(c.EndpointAddr, logger, sessions, issuer)

	return &App{config: c, logger: logger, db: db, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
