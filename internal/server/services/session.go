// Package services contains server-side business logic. This file
// implements SessionService, which handles registration, credential
// verification, and the refresh-token lifecycle (issue, rotate, revoke).
package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/dcastellanos/contenthub/internal/common"
	"github.com/dcastellanos/contenthub/internal/server/config"
	"github.com/dcastellanos/contenthub/internal/server/models"
	"github.com/dcastellanos/contenthub/internal/server/repositories/repomanager"
	"github.com/dcastellanos/contenthub/internal/server/repositories/users"
	"github.com/dcastellanos/contenthub/internal/server/token"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// TokenPair bundles a short-lived access token and a long-lived refresh
// token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService provides the session state machine:
//   - Register: create a credential record (does not log the user in)
//   - Login: verify credentials and mint a token pair
//   - Refresh: rotate the refresh token and mint a new pair
//   - Logout: revoke the live session
//
// A user holds at most one live refresh token; login and refresh
// overwrite it, logout clears it.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *token.Issuer
	bcryptCost  int
}

// NewSessionService constructs a SessionService from the shared DB
// handle, the repository factory, the token issuer, and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, issuer *token.Issuer, cfg *config.Config) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		bcryptCost:  cfg.BcryptCost,
	}
}

// Register validates and creates a new user. The raw password is hashed
// with bcrypt; neither it nor the hash appears in the returned record's
// callers' responses. Returns common.ErrorConflict when the normalized
// email is already registered.
func (s *SessionService) Register(ctx context.Context, email, password string, roleID int64) (*models.User, error) {
	email = users.NormalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return nil, common.ErrorValidation
	}
	if len(password) < MinPasswordLength {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)

	// Pre-check for a friendly conflict; the unique index on the
	// normalized email closes the remaining race window.
	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrorConflict
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       roleID,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Login verifies the credentials and, on success, issues a fresh token
// pair and persists the refresh token, replacing any prior session.
//
// An unknown email and a wrong password both return the same
// common.ErrorUnauthorized so callers cannot probe which emails exist.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	if err := repo.SaveRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, common.ErrorInternal
	}

	return pair, user, nil
}

// Refresh exchanges a still-valid refresh token for a new pair. The slot
// update is conditional on the presented token, so a token superseded by
// a later login, refresh, or logout is rejected, and of two concurrent
// refreshes with the same token only one wins. No state changes before
// the token verifies.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if _, err := s.issuer.VerifyRefresh(refreshToken); err != nil {
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := repo.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return pair, nil
}

// Logout clears the user's refresh-token slot. Logging out a user who
// does not exist or has no live session succeeds (idempotent).
func (s *SessionService) Logout(ctx context.Context, userID int64) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.ClearRefreshToken(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

func (s *SessionService) issueTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.issuer.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
