package appointment

import (
	"context"
)

// Repository abstracts appointment storage. Both implementations return
// lists ordered by appointment date descending, most recent day first.
type Repository interface {
	// Create persists a new appointment and fills in ID and timestamps.
	Create(ctx context.Context, a *Appointment) error

	// FindByID returns errs.ErrNotFound when no appointment matches.
	FindByID(ctx context.Context, id string) (*Appointment, error)

	FindAll(ctx context.Context) ([]*Appointment, error)
	FindByPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	FindByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error)

	// Update persists mutated fields. Returns errs.ErrNotFound when the
	// appointment no longer exists.
	Update(ctx context.Context, a *Appointment) error

	// Delete removes the appointment. Returns errs.ErrNotFound when
	// absent.
	Delete(ctx context.Context, id string) error

	// CountOnDate returns how many non-cancelled appointments fall on the
	// given date.
	CountOnDate(ctx context.Context, date string) (int, error)
}
