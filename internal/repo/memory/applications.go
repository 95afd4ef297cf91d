package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/user"
)

type ApplicationsRepo struct {
	s *Store
}

func (r *ApplicationsRepo) Submit(_ context.Context, app application.Application, enqueue application.Enqueue) (application.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[app.StudentID]
	if !ok {
		return application.Application{}, application.ErrStudentNotFound
	}

	summary := u.Summary()
	app.Student = &summary

	if err := r.s.enqueueLocked(app, enqueue); err != nil {
		return application.Application{}, err
	}

	r.s.apps[app.ID] = cloneApp(app)
	return cloneApp(app), nil
}

func (s *Store) enqueueLocked(app application.Application, enqueue application.Enqueue) error {
	if enqueue == nil {
		return nil
	}

	req, err := enqueue(app)
	if err != nil || req == nil {
		return err
	}

	s.insertJobLocked(*req)
	return nil
}

// withStudentLocked refreshes the embedded student summary from the users table.
func (s *Store) withStudentLocked(a application.Application) application.Application {
	a = cloneApp(a)
	if u, ok := s.users[a.StudentID]; ok {
		sum := u.Summary()
		a.Student = &sum
	}
	return a
}

func (r *ApplicationsRepo) List(_ context.Context, f application.ListFilter) ([]application.Application, error) {
	r.s.mu.RLock()
	out := make([]application.Application, 0)
	for _, a := range r.s.apps {
		if f.StudentID != nil && a.StudentID != *f.StudentID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, r.s.withStudentLocked(a))
	}
	r.s.mu.RUnlock()

	sortNewestFirst(out)

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortNewestFirst(apps []application.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].SubmittedAt.Equal(apps[j].SubmittedAt) {
			return apps[i].SubmittedAt.After(apps[j].SubmittedAt)
		}
		return apps[i].ID > apps[j].ID
	})
}

func (r *ApplicationsRepo) Decide(_ context.Context, id string, target application.Status, enqueue application.Enqueue) (application.Application, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.apps[id]
	if !ok {
		return application.Application{}, false, application.ErrNotFound
	}

	changed, err := application.Transition(cur.Status, target)
	if err != nil {
		return application.Application{}, false, err
	}

	cur = r.s.withStudentLocked(cur)
	if !changed {
		return cur, false, nil
	}

	next := cur
	next.Status = target
	if err := r.s.enqueueLocked(next, enqueue); err != nil {
		return application.Application{}, false, err
	}

	r.s.apps[id] = cloneApp(next)
	return next, true, nil
}

// count helpers used by the dashboard

func (s *Store) statusCountsLocked() map[application.Status]int {
	out := make(map[application.Status]int, 3)
	for _, a := range s.apps {
		out[a.Status]++
	}
	return out
}

func (s *Store) userCountsLocked() (total, students int) {
	for _, u := range s.users {
		total++
		if u.Role == user.RoleStudent {
			students++
		}
	}
	return
}
