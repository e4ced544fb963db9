package models

import "time"

// User is the credential record for one account.
//
// Email is stored normalized to lowercase; the repository enforces
// uniqueness on the normalized value. PasswordHash is a bcrypt hash and
// must never leave the service layer. RefreshToken is the single slot
// holding the currently valid refresh token ("" means no live session).
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	RoleID       int64
	RefreshToken string
	CreatedAt    time.Time
}
