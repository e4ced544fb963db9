package users

import (
	"context"

	"github.com/dcastellanos/contenthub/internal/server/models"
)

// Repository is the credential store contract. All lookups that miss
// return common.ErrorNotFound; Create returns common.ErrorConflict when
// the normalized email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)

	// SaveRefreshToken unconditionally overwrites the user's token slot.
	SaveRefreshToken(ctx context.Context, userID int64, token string) error

	// RotateRefreshToken replaces the slot only if it still holds
	// oldToken. Returns common.ErrorNotFound when no row matched, i.e.
	// the token was already rotated, cleared, or never existed.
	RotateRefreshToken(ctx context.Context, userID int64, oldToken, newToken string) error

	// ClearRefreshToken empties the slot. Clearing a missing user or an
	// already empty slot is not an error.
	ClearRefreshToken(ctx context.Context, userID int64) error
}
