package postgres

import (
	"context"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepo runs the aggregate queries behind the admin dashboard. Each
// method is independent so the handler can fan them out.
type DashboardRepo struct {
	base
	apps *ApplicationsRepo
}

func NewDashboardRepo(pool *pgxpool.Pool, prom *observability.Prom) *DashboardRepo {
	return &DashboardRepo{
		base: base{pool: pool, prom: prom},
		apps: NewApplicationsRepo(pool, prom),
	}
}

func (r *DashboardRepo) CountByStatus(ctx context.Context) (map[application.Status]int, error) {
	out := make(map[application.Status]int, 3)

	err := r.observe("dashboard.count_by_status", func() error {
		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				status string
				n      int
			)
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			out[application.Status(status)] = n
		}
		return rows.Err()
	})

	return out, err
}

func (r *DashboardRepo) CountUsers(ctx context.Context) (total, students int, err error) {
	err = r.observe("dashboard.count_users", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT COUNT(*), COUNT(*) FILTER (WHERE role = 'STUDENT') FROM users
		`).Scan(&total, &students)
	})
	return
}

func (r *DashboardRepo) Recent(ctx context.Context, limit int) ([]application.Application, error) {
	return r.apps.List(ctx, application.ListFilter{Limit: limit})
}

func (r *DashboardRepo) ProgramStats(ctx context.Context) ([]application.ProgramStat, error) {
	out := make([]application.ProgramStat, 0)

	err := r.observe("dashboard.program_stats", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT program, COUNT(*) AS n
			FROM applications
			GROUP BY program
			ORDER BY n DESC, program ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s application.ProgramStat
			if err := rows.Scan(&s.Program, &s.Count); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})

	return out, err
}
