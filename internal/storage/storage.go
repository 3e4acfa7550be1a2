package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sousadfs/supermercado-happe/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail indicates a uniqueness conflict on the email column.
var ErrDuplicateEmail = errors.New("email already registered")

// ProfileUpdate carries the full replacement profile for a user. Every
// field overwrites the stored value; an empty field clears it.
type ProfileUpdate struct {
	Email    string
	Name     string
	Gender   string
	Location string
	Website  string
}

// UserStore captures persistence operations needed by handlers.
//
// The email unique index is the authority on duplicates: CreateUser and
// UpdateProfile return ErrDuplicateEmail when the database reports a
// uniqueness conflict, regardless of any earlier lookup.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByFacebookID(ctx context.Context, facebookID string) (models.User, error)

	UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// SetResetToken stores the reset token and its expiry on the user with
	// the given email, replacing any earlier token.
	SetResetToken(ctx context.Context, email, token string, expires time.Time) error

	// FindByResetToken returns the user holding the token, but only while
	// the expiry is strictly in the future.
	FindByResetToken(ctx context.Context, token string) (models.User, error)

	// ResetPassword replaces the password hash and clears the reset fields
	// in one statement, guarded by the token still being valid. It returns
	// ErrNotFound when the token no longer matches an unexpired user.
	ResetPassword(ctx context.Context, token, passwordHash string) (models.User, error)

	LinkFacebook(ctx context.Context, id int64, facebookID, accessToken string) error

	// UnlinkProvider clears the linkage for the provider kind. Unlinking a
	// provider that is not linked is a no-op.
	UnlinkProvider(ctx context.Context, id int64, kind string) error

	// DeleteUser removes the account. Deleting an absent user is a no-op.
	DeleteUser(ctx context.Context, id int64) error
}
