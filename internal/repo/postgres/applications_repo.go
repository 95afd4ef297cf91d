package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ApplicationsRepo struct {
	base
	jobs *JobsRepo
}

func NewApplicationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ApplicationsRepo {
	return &ApplicationsRepo{
		base: base{pool: pool, prom: prom},
		jobs: NewJobsRepo(pool, prom),
	}
}

const applicationColumns = `
	a.id, a.student_id, a.program, a.status, a.submitted_at,
	a.personal_statement, a.previous_education, a.courses, a.expected_grade,
	a.current_gpa, a.phone_number, a.emergency_contact, a.emergency_phone,
	a.work_experience, a.extracurricular_activities, a.scholarship_needed,
	a.start_date, a.study_mode, a.accommodation,
	u.id, u.name, u.email, u.role`

const applicationFrom = ` FROM applications a JOIN users u ON u.id = a.student_id`

func scanApplication(row pgx.Row) (application.Application, error) {
	var (
		a                      application.Application
		status, mode, userRole string
		s                      user.Summary
	)

	err := row.Scan(
		&a.ID, &a.StudentID, &a.Program, &status, &a.SubmittedAt,
		&a.PersonalStatement, &a.PreviousEducation, &a.Courses, &a.ExpectedGrade,
		&a.CurrentGPA, &a.PhoneNumber, &a.EmergencyContact, &a.EmergencyPhone,
		&a.WorkExperience, &a.ExtracurricularActivities, &a.ScholarshipNeeded,
		&a.StartDate, &mode, &a.Accommodation,
		&s.ID, &s.Name, &s.Email, &userRole,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, err
	}

	a.Status = application.Status(status)
	a.StudyMode = application.StudyMode(mode)
	s.Role = user.Role(userRole)
	a.Student = &s

	return a, nil
}

// Submit inserts app and, when enqueue returns one, its outbox job in one transaction.
func (r *ApplicationsRepo) Submit(ctx context.Context, app application.Application, enqueue application.Enqueue) (application.Application, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var (
			s    user.Summary
			role string
		)

		err := r.observe("applications.submit.student", func() error {
			return tx.QueryRow(ctx, `SELECT id, name, email, role FROM users WHERE id = $1 FOR SHARE`, app.StudentID).
				Scan(&s.ID, &s.Name, &s.Email, &role)
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return application.ErrStudentNotFound
		}
		if err != nil {
			return err
		}
		s.Role = user.Role(role)

		err = r.observe("applications.submit.insert", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO applications (
					id, student_id, program, status, submitted_at,
					personal_statement, previous_education, courses, expected_grade,
					current_gpa, phone_number, emergency_contact, emergency_phone,
					work_experience, extracurricular_activities, scholarship_needed,
					start_date, study_mode, accommodation
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			`,
				app.ID, app.StudentID, app.Program, string(app.Status), app.SubmittedAt,
				app.PersonalStatement, app.PreviousEducation, app.Courses, app.ExpectedGrade,
				app.CurrentGPA, app.PhoneNumber, app.EmergencyContact, app.EmergencyPhone,
				app.WorkExperience, app.ExtracurricularActivities, app.ScholarshipNeeded,
				app.StartDate, string(app.StudyMode), app.Accommodation,
			)
			return e
		})
		if IsForeignKeyViolation(err) {
			return application.ErrStudentNotFound
		}
		if err != nil {
			return err
		}

		app.Student = &s
		return r.enqueueTx(ctx, tx, app, enqueue)
	})
	if err != nil {
		return application.Application{}, err
	}

	return app, nil
}

func (r *ApplicationsRepo) enqueueTx(ctx context.Context, tx pgx.Tx, app application.Application, enqueue application.Enqueue) error {
	if enqueue == nil {
		return nil
	}

	req, err := enqueue(app)
	if err != nil || req == nil {
		return err
	}

	_, err = r.jobs.CreateTx(ctx, tx, *req)
	return err
}

// List returns applications newest first, optionally narrowed to a student or status.
func (r *ApplicationsRepo) List(ctx context.Context, f application.ListFilter) ([]application.Application, error) {
	var (
		conds []string
		args  []any
	)

	if f.StudentID != nil {
		args = append(args, *f.StudentID)
		conds = append(conds, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("a.status = $%d", len(args)))
	}

	q := `SELECT ` + applicationColumns + applicationFrom
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY a.submitted_at DESC, a.id DESC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	out := make([]application.Application, 0)

	err := r.observe("applications.list", func() error {
		rows, err := r.pool.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			a, err := scanApplication(rows)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})

	return out, err
}

// Decide applies an admin decision. Re-applying the current status returns the
// row untouched with changed=false and writes nothing.
func (r *ApplicationsRepo) Decide(ctx context.Context, id string, target application.Status, enqueue application.Enqueue) (app application.Application, changed bool, err error) {
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		e := r.observe("applications.decide.lock", func() error {
			var se error
			app, se = scanApplication(tx.QueryRow(ctx, `SELECT `+applicationColumns+applicationFrom+` WHERE a.id = $1 FOR UPDATE OF a`, id))
			return se
		})
		if e != nil {
			return e
		}

		changed, e = application.Transition(app.Status, target)
		if e != nil || !changed {
			return e
		}

		e = r.observe("applications.decide.update", func() error {
			_, ue := tx.Exec(ctx, `UPDATE applications SET status = $2 WHERE id = $1`, id, string(target))
			return ue
		})
		if e != nil {
			return e
		}

		app.Status = target
		return r.enqueueTx(ctx, tx, app, enqueue)
	})

	if err != nil {
		return application.Application{}, false, err
	}
	return app, changed, nil
}
