package identity

import (
	"context"
	"strconv"
	"time"

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

const userCols = `id, username, email, password_hash, role, first_name, last_name,
	phone, specialization, license_number, is_active, created_at, last_login`

func (r *repoPG) Create(ctx context.Context, u *User) error {
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var id int64
		err := r.pool.QueryRow(ctx, `
			INSERT INTO users (username, email, password_hash, role, first_name, last_name,
				phone, specialization, license_number, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id, created_at`,
			u.Username, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName,
			u.Phone, u.Specialization, u.LicenseNumber, u.IsActive,
		).Scan(&id, &u.CreatedAt)
		if err != nil {
			return err
		}
		u.ID = strconv.FormatInt(id, 10)
		return nil
	})
	return db.MapError(err)
}

func (r *repoPG) FindByID(ctx context.Context, id string) (*User, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errs.ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, key)
}

func (r *repoPG) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
}

func (r *repoPG) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
}

func (r *repoPG) findOne(ctx context.Context, query string, arg interface{}) (*User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, db.MapError(err)
	}
	return u, nil
}

func (r *repoPG) FindAll(ctx context.Context, roleFilter string) ([]*User, error) {
	query := `SELECT ` + userCols + ` FROM users ORDER BY created_at DESC`
	args := []interface{}{}
	if roleFilter != "" {
		query = `SELECT ` + userCols + ` FROM users WHERE role = $1 ORDER BY created_at DESC`
		args = append(args, roleFilter)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	key, err := strconv.ParseInt(u.ID, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE users SET
				username=$2, email=$3, password_hash=$4, role=$5,
				first_name=$6, last_name=$7, phone=$8,
				specialization=$9, license_number=$10, is_active=$11
			WHERE id = $1`,
			key, u.Username, u.Email, u.PasswordHash, u.Role,
			u.FirstName, u.LastName, u.Phone,
			u.Specialization, u.LicenseNumber, u.IsActive,
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
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, key)
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

func (r *repoPG) TouchLastLogin(ctx context.Context, id string) error {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return errs.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, key)
	return db.MapError(err)
}

func (r *repoPG) CountByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count)
	if err != nil {
		return 0, db.MapError(err)
	}
	return count, nil
}

func (r *repoPG) CreatePasswordReset(ctx context.Context, reset *PasswordReset) error {
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO password_resets (token, email, expires_at)
			VALUES ($1, $2, $3)`,
			reset.Token, reset.Email, reset.ExpiresAt)
		return err
	})
	return db.MapError(err)
}

// ConsumePasswordReset deletes and returns the token in one statement, so
// concurrent consumers cannot both succeed. Tokens past expiry count as
// absent.
func (r *repoPG) ConsumePasswordReset(ctx context.Context, token string) (*PasswordReset, error) {
	reset := &PasswordReset{}
	err := r.pool.QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token = $1 AND expires_at > NOW()
		RETURNING token, email, expires_at, created_at`,
		token,
	).Scan(&reset.Token, &reset.Email, &reset.ExpiresAt, &reset.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return reset, nil
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	var id int64
	var lastLogin *time.Time
	err := row.Scan(
		&id, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.FirstName, &u.LastName, &u.Phone,
		&u.Specialization, &u.LicenseNumber, &u.IsActive,
		&u.CreatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}
	u.ID = strconv.FormatInt(id, 10)
	u.LastLogin = lastLogin
	return u, nil
}
