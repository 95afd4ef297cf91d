package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = user.NormalizeEmail(u.Email)
	if _, taken := r.s.emails[u.Email]; taken {
		return user.ErrEmailTaken
	}

	r.s.users[u.ID] = u
	r.s.emails[u.Email] = u.ID
	return nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.Summary, error) {
	r.s.mu.RLock()
	out := make([]user.Summary, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u.Summary())
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (r *UsersRepo) MarkEmailVerified(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return false, user.ErrNotFound
	}
	if u.EmailVerified != nil {
		return false, nil
	}

	at = at.UTC()
	u.EmailVerified = &at
	u.UpdatedAt = at
	r.s.users[id] = u
	return true, nil
}
