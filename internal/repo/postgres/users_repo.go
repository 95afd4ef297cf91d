package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	base
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{pool: pool, prom: prom}}
}

const userColumns = `id, email, password_hash, name, role, email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u    user.User
		role string
	)

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, name, role, email_verified, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.EmailVerified, u.CreatedAt, u.UpdatedAt)
		return err
	})

	if IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, user.NormalizeEmail(email)))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	return u, err
}

// List returns every user ordered by name.
func (r *UsersRepo) List(ctx context.Context) ([]user.Summary, error) {
	out := make([]user.Summary, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name, email, role FROM users ORDER BY name ASC, email ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				s    user.Summary
				role string
			)
			if err := rows.Scan(&s.ID, &s.Name, &s.Email, &role); err != nil {
				return err
			}
			s.Role = user.Role(role)
			out = append(out, s)
		}
		return rows.Err()
	})

	return out, err
}

// MarkEmailVerified stamps email_verified once. changed is false if it was already set.
func (r *UsersRepo) MarkEmailVerified(ctx context.Context, id string, at time.Time) (changed bool, err error) {
	var tag pgconn.CommandTag

	err = r.observe("users.mark_email_verified", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
			UPDATE users
			SET email_verified = $2, updated_at = $2
			WHERE id = $1 AND email_verified IS NULL
		`, id, at)
		return e
	})
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
