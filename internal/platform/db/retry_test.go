package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/strokecare/api/internal/platform/errs"
)

func TestWithRetrySuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestWithRetryPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1: non-contention errors must not retry", calls)
	}
}

func TestWithRetryRecoversFromContention(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "55P03"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryExhaustion(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full retry budget")
	}
	err := WithRetry(context.Background(), func(context.Context) error {
		return &pgconn.PgError{Code: "40P01"}
	})
	if !errors.Is(err, errs.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("original driver error must stay wrapped")
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	if MapError(nil) != nil {
		t.Error("nil must map to nil")
	}
	if !errors.Is(MapError(&pgconn.PgError{Code: "23505"}), errs.ErrDuplicateKey) {
		t.Error("23505 must map to ErrDuplicateKey")
	}
	other := &pgconn.PgError{Code: "42601"}
	if !errors.Is(MapError(other), other) {
		t.Error("other driver errors must pass through")
	}
}
