package securitylog

import (
	"context"
	"time"
)

// Repository is append-plus-query storage for the audit log. There is no
// update or delete: entries are immutable once written.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	Recent(ctx context.Context, limit int, f Filter) ([]*Entry, error)
	FailedLogins(ctx context.Context, username string, since time.Time) ([]*Entry, error)
	ActivityForUser(ctx context.Context, userID string, limit int) ([]*Entry, error)
	ListSince(ctx context.Context, since time.Time) ([]*Entry, error)
}
