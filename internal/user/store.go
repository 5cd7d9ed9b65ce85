package user

import (
	"context"
	"time"

	"account-service/internal/apperr"
)

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "User not found")
	ErrDuplicateUsername = apperr.New(apperr.KindDuplicate, "DUPLICATE_USERNAME", "Username already exists")
	ErrDuplicateEmail    = apperr.New(apperr.KindDuplicate, "DUPLICATE_EMAIL", "Email already exists")
)

// Store is the persistence contract for credential records.
// Implementations must enforce username and email uniqueness themselves and
// report collisions as ErrDuplicateUsername / ErrDuplicateEmail.
type Store interface {
	Create(ctx context.Context, r Record) (Record, error)
	FindByID(ctx context.Context, id int64) (Record, error)
	FindByUsername(ctx context.Context, username string) (Record, error)
	FindByEmail(ctx context.Context, email string) (Record, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateProfile and SetEnabled write only their own columns, so a profile
	// edit never overwrites a concurrent status change and vice versa.
	UpdateProfile(ctx context.Context, id int64, ch ProfileChange) (Record, error)
	SetEnabled(ctx context.Context, id int64, enabled bool, at time.Time) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// ProfileChange lists the self-service columns to overwrite; nil fields keep
// their stored value.
type ProfileChange struct {
	Username     *string
	Email        *string
	PasswordHash *string
	UpdatedAt    time.Time
}
