package appointment

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strokecare/api/internal/platform/db"
	"github.com/strokecare/api/internal/platform/errs"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns the relational implementation of Repository.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const apptCols = `id, patient_id, doctor_id, appointment_date, appointment_time,
	reason, urgency, status, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var id int64
		err := r.pool.QueryRow(ctx, `
			INSERT INTO appointments (patient_id, doctor_id, appointment_date,
				appointment_time, reason, urgency, status, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id, created_at, updated_at`,
			a.PatientID, a.DoctorID, a.Date, a.Time,
			a.Reason, a.Urgency, a.Status, a.Notes,
		).Scan(&id, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return err
		}
		a.ID = strconv.FormatInt(id, 10)
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) FindByID(ctx context.Context, id string) (*Appointment, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, key))
	if err != nil {
		return nil, db.MapError(err)
	}
	return a, nil
}

func (r *repoPG) FindAll(ctx context.Context) ([]*Appointment, error) {
	return r.query(ctx, `SELECT `+apptCols+` FROM appointments
		ORDER BY appointment_date DESC, appointment_time DESC`)
}

func (r *repoPG) FindByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return r.query(ctx, `SELECT `+apptCols+` FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC`, patientID)
}

func (r *repoPG) FindByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return r.query(ctx, `SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC`, doctorID)
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	key, err := strconv.ParseInt(a.ID, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE appointments SET
				appointment_date=$2, appointment_time=$3, reason=$4,
				urgency=$5, status=$6, notes=$7, updated_at=NOW()
			WHERE id = $1`,
			key, a.Date, a.Time, a.Reason, a.Urgency, a.Status, a.Notes,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) CountOnDate(ctx context.Context, date string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE appointment_date = $1 AND status != $2`,
		date, StatusCancelled).Scan(&count)
	if err != nil {
		return 0, db.MapError(err)
	}
	return count, nil
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a := &Appointment{}
	var id int64
	err := row.Scan(
		&id, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
		&a.Reason, &a.Urgency, &a.Status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = strconv.FormatInt(id, 10)
	return a, nil
}
