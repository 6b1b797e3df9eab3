package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/strokecare/api/internal/platform/errs"
)

// MapError folds pgx driver errors into the shared taxonomy: unique
// violations to ErrDuplicateKey, missing rows to ErrNotFound. Anything
// else passes through untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return errs.ErrDuplicateKey
	}
	return err
}
