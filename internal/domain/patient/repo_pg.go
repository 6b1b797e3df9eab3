package patient

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

// NewRepoPG returns the relational implementation of Repository. Keys are
// BIGSERIAL integers formatted as opaque strings at this boundary.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, gender, age, hypertension, heart_disease, ever_married,
	work_type, residence_type, avg_glucose_level, bmi, smoking_status, stroke,
	stroke_risk, risk_level, created_by, assigned_doctor_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var id int64
		err := r.pool.QueryRow(ctx, `
			INSERT INTO patients (gender, age, hypertension, heart_disease, ever_married,
				work_type, residence_type, avg_glucose_level, bmi, smoking_status, stroke,
				stroke_risk, risk_level, created_by, assigned_doctor_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING id, created_at, updated_at`,
			rec.Gender, rec.Age, rec.Hypertension, rec.HeartDisease, rec.EverMarried,
			rec.WorkType, rec.ResidenceType, rec.AvgGlucoseLevel, rec.BMI, rec.SmokingStatus,
			rec.Stroke, rec.StrokeRisk, rec.RiskLevel, rec.CreatedBy, rec.AssignedDoctor,
		).Scan(&id, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return err
		}
		rec.ID = strconv.FormatInt(id, 10)
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) FindByID(ctx context.Context, id string) (*Record, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, key))
	if err != nil {
		return nil, db.MapError(err)
	}
	return rec, nil
}

func (r *repoPG) FindAll(ctx context.Context, f Filter) ([]*Record, error) {
	return r.findWhere(ctx, `WHERE 1=1`, nil, f)
}

func (r *repoPG) FindByDoctor(ctx context.Context, doctorID string, f Filter) ([]*Record, error) {
	return r.findWhere(ctx, `WHERE assigned_doctor_id = $1`, []interface{}{doctorID}, f)
}

func (r *repoPG) findWhere(ctx context.Context, where string, args []interface{}, f Filter) ([]*Record, error) {
	query := `SELECT ` + patientCols + ` FROM patients ` + where
	n := len(args)

	add := func(clause string, val interface{}) {
		n++
		query += clause + strconv.Itoa(n)
		args = append(args, val)
	}

	if f.RiskLevel != "" {
		add(` AND risk_level = $`, f.RiskLevel)
	}
	if f.Gender != "" {
		add(` AND gender = $`, f.Gender)
	}
	query += ` ORDER BY created_at DESC`

	return r.query(ctx, query, args...)
}

func (r *repoPG) FindByCreator(ctx context.Context, userID string) ([]*Record, error) {
	return r.query(ctx, `SELECT `+patientCols+` FROM patients
		WHERE created_by = $1 ORDER BY created_at DESC`, userID)
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	key, err := strconv.ParseInt(rec.ID, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE patients SET
				gender=$2, age=$3, hypertension=$4, heart_disease=$5, ever_married=$6,
				work_type=$7, residence_type=$8, avg_glucose_level=$9, bmi=$10,
				smoking_status=$11, stroke=$12, stroke_risk=$13, risk_level=$14,
				assigned_doctor_id=$15, updated_at=NOW()
			WHERE id = $1`,
			key, rec.Gender, rec.Age, rec.Hypertension, rec.HeartDisease, rec.EverMarried,
			rec.WorkType, rec.ResidenceType, rec.AvgGlucoseLevel, rec.BMI,
			rec.SmokingStatus, rec.Stroke, rec.StrokeRisk, rec.RiskLevel,
			rec.AssignedDoctor,
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
		// History rows go first so the record delete never leaves orphans.
		if _, err := r.pool.Exec(ctx,
			`DELETE FROM medical_history WHERE patient_id = $1`, key); err != nil {
			return err
		}
		tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, key)
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

func (r *repoPG) CountByRiskLevel(ctx context.Context, level string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE risk_level = $1`, level).Scan(&count)
	if err != nil {
		return 0, db.MapError(err)
	}
	return count, nil
}

func (r *repoPG) AddHistory(ctx context.Context, h *HistoryRecord) error {
	key, err := strconv.ParseInt(h.PatientID, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var id int64
		err := r.pool.QueryRow(ctx, `
			INSERT INTO medical_history (patient_id, record_type, description,
				doctor_id, doctor_name, medications, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id, created_at`,
			key, h.RecordType, h.Description,
			h.DoctorID, h.DoctorName, h.Medications, h.Notes,
		).Scan(&id, &h.CreatedAt)
		if err != nil {
			return err
		}
		h.ID = strconv.FormatInt(id, 10)
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) HistoryForPatient(ctx context.Context, patientID string) ([]*HistoryRecord, error) {
	key, err := strconv.ParseInt(patientID, 10, 64)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, record_type, description, doctor_id, doctor_name,
			medications, notes, created_at
		FROM medical_history WHERE patient_id = $1 ORDER BY created_at DESC`, key)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var history []*HistoryRecord
	for rows.Next() {
		h := &HistoryRecord{}
		var id, pid int64
		err := rows.Scan(&id, &pid, &h.RecordType, &h.Description,
			&h.DoctorID, &h.DoctorName, &h.Medications, &h.Notes, &h.CreatedAt)
		if err != nil {
			return nil, err
		}
		h.ID = strconv.FormatInt(id, 10)
		h.PatientID = strconv.FormatInt(pid, 10)
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	var id int64
	err := row.Scan(
		&id, &rec.Gender, &rec.Age, &rec.Hypertension, &rec.HeartDisease,
		&rec.EverMarried, &rec.WorkType, &rec.ResidenceType, &rec.AvgGlucoseLevel,
		&rec.BMI, &rec.SmokingStatus, &rec.Stroke, &rec.StrokeRisk, &rec.RiskLevel,
		&rec.CreatedBy, &rec.AssignedDoctor, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, nil
}
