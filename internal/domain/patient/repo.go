package patient

import (
	"context"
)

// Repository abstracts patient-record storage. Postgres and Mongo
// implementations both hand out opaque string ids; risk fields are stored
// denormalized so list queries can filter without rescoring.
type Repository interface {
	// Create persists a new record and fills in ID and timestamps.
	Create(ctx context.Context, r *Record) error

	// FindByID returns errs.ErrNotFound when no record matches.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindAll returns records newest-first, narrowed by the filter.
	FindAll(ctx context.Context, f Filter) ([]*Record, error)

	// FindByDoctor returns records assigned to the doctor, newest-first,
	// narrowed by the same filter FindAll accepts.
	FindByDoctor(ctx context.Context, doctorID string, f Filter) ([]*Record, error)

	// FindByCreator returns the records a user registered for themselves.
	FindByCreator(ctx context.Context, userID string) ([]*Record, error)

	// Update persists mutated fields. Returns errs.ErrNotFound when the
	// record no longer exists.
	Update(ctx context.Context, r *Record) error

	// Delete removes the record and its history. Returns errs.ErrNotFound
	// when absent.
	Delete(ctx context.Context, id string) error

	// CountByRiskLevel returns the number of records in the given tier.
	CountByRiskLevel(ctx context.Context, level string) (int, error)

	// Medical history is append-only. AddHistory fills in ID and
	// CreatedAt; HistoryForPatient returns entries newest-first.
	AddHistory(ctx context.Context, h *HistoryRecord) error
	HistoryForPatient(ctx context.Context, patientID string) ([]*HistoryRecord, error)
}
