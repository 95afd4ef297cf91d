package memory

import (
	"context"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/user"
)

type RefreshTokensRepo struct {
	s *Store
}

func (r *RefreshTokensRepo) Create(_ context.Context, t user.RefreshToken) error {
	r.s.mu.Lock()
	r.s.tokens[t.ID] = t
	r.s.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, oldID, presentedHash string, next user.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.tokens[oldID]
	if !ok {
		return user.ErrRefreshNotFound
	}

	now := r.s.now()
	if err := cur.CheckRotatable(presentedHash, now); err != nil {
		if err == user.ErrRefreshRevoked {
			r.revokeAllLocked(cur.UserID)
		}
		return err
	}
	if cur.UserID != next.UserID {
		return user.ErrRefreshNotFound
	}

	cur.RevokedAt = &now
	cur.ReplacedBy = &next.ID
	r.s.tokens[oldID] = cur
	r.s.tokens[next.ID] = next
	return nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.tokens[id]; ok && t.RevokedAt == nil {
		now := r.s.now()
		t.RevokedAt = &now
		r.s.tokens[id] = t
	}
	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	r.revokeAllLocked(userID)
	r.s.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) revokeAllLocked(userID string) {
	now := r.s.now()
	for id, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.tokens[id] = t
		}
	}
}

func (r *RefreshTokensRepo) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
