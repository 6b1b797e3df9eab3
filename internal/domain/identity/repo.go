package identity

import (
	"context"
)

// Repository abstracts user-account storage. Two implementations exist,
// Postgres and Mongo, chosen once at process wiring time. Both enforce the
// username/email uniqueness invariant and hand out opaque string ids.
type Repository interface {
	// Create persists a new user and fills in its ID and CreatedAt.
	// Returns errs.ErrDuplicateKey when username or email already exists.
	Create(ctx context.Context, u *User) error

	// Lookups return errs.ErrNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll returns every user, optionally restricted to one role.
	FindAll(ctx context.Context, roleFilter string) ([]*User, error)

	// Update persists mutated fields. Returns errs.ErrNotFound when the
	// user no longer exists, errs.ErrDuplicateKey when a changed
	// username/email collides.
	Update(ctx context.Context, u *User) error

	// Delete removes the user. Returns errs.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// TouchLastLogin sets last_login to now. Best-effort: callers ignore
	// the error so a failure never blocks login.
	TouchLastLogin(ctx context.Context, id string) error

	// CountByRole returns the number of accounts holding the role.
	CountByRole(ctx context.Context, role string) (int, error)

	// Password-reset credentials: CreatePasswordReset stores a token;
	// ConsumePasswordReset atomically deletes and returns it, so a token
	// can be used exactly once. Expired or unknown tokens surface as
	// errs.ErrNotFound.
	CreatePasswordReset(ctx context.Context, reset *PasswordReset) error
	ConsumePasswordReset(ctx context.Context, token string) (*PasswordReset, error)
}
