// Package users provides the PostgreSQL-backed credential store used by
// the session workflow.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dcastellanos/contenthub/internal/common"
	"github.com/dcastellanos/contenthub/internal/dbx"
	"github.com/dcastellanos/contenthub/internal/server/models"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NormalizeEmail returns the lowercase form used for storage and every
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user and returns it with ID and CreatedAt set.
// The email is normalized before the insert; a duplicate normalized
// email yields common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	user.Email = NormalizeEmail(user.Email)

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.RoleID).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetByEmail looks a user up by normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role_id, refresh_token, created_at
		FROM users
		WHERE email = $1
	`
	return r.getOne(ctx, query, NormalizeEmail(email))
}

// GetByID looks a user up by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role_id, refresh_token, created_at
		FROM users
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

// GetByRefreshToken finds the user whose slot holds exactly token.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	query := `
		SELECT id, email, password_hash, role_id, refresh_token, created_at
		FROM users
		WHERE refresh_token = $1
	`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.RoleID, &user.RefreshToken, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// SaveRefreshToken overwrites the user's token slot. Overwriting a live
// session is the caller's decision (login replaces any prior session).
func (r *PostgresRepository) SaveRefreshToken(ctx context.Context, userID int64, token string) error {
	query := `
		UPDATE users SET refresh_token = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, token, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RotateRefreshToken is the conditional update backing refresh rotation:
// the slot changes only if it still equals old, so of two racing
// refreshes exactly one succeeds and the other sees ErrorNotFound.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID int64, oldToken, newToken string) error {
	query := `
		UPDATE users SET refresh_token = $1
		WHERE id = $2 AND refresh_token = $3
	`
	res, err := r.db.ExecContext(ctx, query, newToken, userID, oldToken)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ClearRefreshToken empties the slot. A missing user is a no-op.
func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, userID int64) error {
	query := `
		UPDATE users SET refresh_token = ''
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
