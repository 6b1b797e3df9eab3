package securitylog

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strokecare/api/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG returns the relational audit-log store. The log is relational
// regardless of which backend serves the other entities, since it is the
// record of last resort.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const logCols = `id, event_type, event_description, user_id, username, user_role,
	target_user_id, target_username, target_type, target_id,
	ip_address, user_agent, status, severity, additional_data, created_at`

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	return db.WithRetry(ctx, func(ctx context.Context) error {
		var id int64
		err := r.pool.QueryRow(ctx, `
			INSERT INTO security_logs (event_type, event_description, user_id, username, user_role,
				target_user_id, target_username, target_type, target_id,
				ip_address, user_agent, status, severity, additional_data)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id, created_at`,
			e.EventType, e.EventDescription, e.UserID, e.Username, e.UserRole,
			e.TargetUserID, e.TargetUsername, e.TargetType, e.TargetID,
			e.IPAddress, e.UserAgent, e.Status, e.Severity, e.AdditionalData,
		).Scan(&id, &e.CreatedAt)
		if err != nil {
			return err
		}
		e.ID = strconv.FormatInt(id, 10)
		return nil
	})
}

func (r *repoPG) Recent(ctx context.Context, limit int, f Filter) ([]*Entry, error) {
	query := `SELECT ` + logCols + ` FROM security_logs WHERE 1=1`
	args := []interface{}{}
	n := 0

	add := func(clause string, val interface{}) {
		n++
		query += clause + strconv.Itoa(n)
		args = append(args, val)
	}

	if f.EventType != "" {
		add(` AND event_type = $`, f.EventType)
	}
	if f.UserID != "" {
		add(` AND user_id = $`, f.UserID)
	}
	if f.Severity != "" {
		add(` AND severity = $`, f.Severity)
	}
	if f.Status != "" {
		add(` AND status = $`, f.Status)
	}
	if !f.Since.IsZero() {
		add(` AND created_at >= $`, f.Since)
	}

	n++
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(n)
	args = append(args, limit)

	return r.query(ctx, query, args...)
}

func (r *repoPG) FailedLogins(ctx context.Context, username string, since time.Time) ([]*Entry, error) {
	query := `SELECT ` + logCols + ` FROM security_logs
		WHERE event_type = 'failed_login' AND created_at >= $1`
	args := []interface{}{since}
	if username != "" {
		query += ` AND username = $2`
		args = append(args, username)
	}
	query += ` ORDER BY created_at DESC`
	return r.query(ctx, query, args...)
}

func (r *repoPG) ActivityForUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	return r.query(ctx, `SELECT `+logCols+` FROM security_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (r *repoPG) ListSince(ctx context.Context, since time.Time) ([]*Entry, error) {
	return r.query(ctx, `SELECT `+logCols+` FROM security_logs
		WHERE created_at >= $1 ORDER BY created_at DESC`, since)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	e := &Entry{}
	var id int64
	err := row.Scan(
		&id, &e.EventType, &e.EventDescription, &e.UserID, &e.Username, &e.UserRole,
		&e.TargetUserID, &e.TargetUsername, &e.TargetType, &e.TargetID,
		&e.IPAddress, &e.UserAgent, &e.Status, &e.Severity, &e.AdditionalData, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ID = strconv.FormatInt(id, 10)
	return e, nil
}
