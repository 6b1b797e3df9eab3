package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/strokecare/api/internal/platform/errs"
)

const (
	retryMaxWait  = 5 * time.Second
	retryInterval = 100 * time.Millisecond
)

// WithRetry runs fn, retrying while the relational backend reports lock
// contention, up to a bounded wait. Once the wait is exhausted the failure
// surfaces as ErrStorageUnavailable. Other errors pass through unchanged.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(retryMaxWait)
	for {
		err := fn(ctx)
		if err == nil || !isLockContention(err) {
			return err
		}
		if time.Now().After(deadline) {
			return errors.Join(errs.ErrStorageUnavailable, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// isLockContention reports whether err is a transient locking failure:
// lock_not_available, serialization_failure, or deadlock_detected.
func isLockContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", "40001", "40P01":
		return true
	}
	return false
}
