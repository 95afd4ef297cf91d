package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/job"
)

type JobsRepo struct {
	s *Store
}

func (r *JobsRepo) Create(_ context.Context, req job.CreateRequest) (job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.insertJobLocked(req)
	if !ok {
		return job.Job{}, job.ErrDuplicateJob
	}
	return j, nil
}

func (r *JobsRepo) ClaimNext(_ context.Context, workerID string) (job.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()

	var next *job.Job
	for id := range r.s.jobs {
		j := r.s.jobs[id]
		if j.Status != job.StatusPending || j.RunAt.After(now) || j.Attempts >= j.MaxAttempts {
			continue
		}
		if next == nil || j.RunAt.Before(next.RunAt) || (j.RunAt.Equal(next.RunAt) && j.CreatedAt.Before(next.CreatedAt)) {
			jj := j
			next = &jj
		}
	}
	if next == nil {
		return job.Job{}, job.ErrJobNotFound
	}

	w := workerID
	next.Status = job.StatusProcessing
	next.LockedAt = &now
	next.LockedBy = &w
	next.UpdatedAt = now
	r.s.jobs[next.ID] = *next

	return *next, nil
}

func (r *JobsRepo) update(id string, fn func(j *job.Job)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	fn(&j)
	j.UpdatedAt = r.s.now()
	r.s.jobs[id] = j
	return nil
}

func unlock(j *job.Job) {
	j.LockedAt = nil
	j.LockedBy = nil
}

func (r *JobsRepo) MarkDone(_ context.Context, id string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusDone
		j.LastError = nil
		unlock(j)
	})
}

func (r *JobsRepo) MarkFailed(_ context.Context, id string, errMsg string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Attempts++
		j.LastError = &errMsg
		unlock(j)
	})
}

func (r *JobsRepo) Reschedule(_ context.Context, id string, runAt time.Time, errMsg string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusPending
		j.Attempts++
		j.RunAt = runAt
		j.LastError = &errMsg
		unlock(j)
	})
}

func (r *JobsRepo) RequeueStaleProcessing(_ context.Context, lockTTL time.Duration) (int64, error) {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var n int64
	for id, j := range r.s.jobs {
		if j.Status == job.StatusProcessing && j.LockedAt != nil && j.LockedAt.Before(now.Add(-lockTTL)) {
			j.Status = job.StatusPending
			unlock(&j)
			j.UpdatedAt = now
			r.s.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (r *JobsRepo) GetByID(_ context.Context, id string) (job.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, nil
}

func (r *JobsRepo) List(_ context.Context, f job.ListFilter) ([]job.Job, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	r.s.mu.RLock()
	out := make([]job.Job, 0)
	for _, j := range r.s.jobs {
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		if f.Type != nil && j.Type != *f.Type {
			continue
		}
		out = append(out, j)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		if !out[i].UpdatedAt.Equal(out[k].UpdatedAt) {
			return out[i].UpdatedAt.After(out[k].UpdatedAt)
		}
		return out[i].ID > out[k].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobsRepo) Retry(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	if j.Status != job.StatusFailed {
		return job.ErrJobNotFailed
	}

	now := r.s.now()
	j.Status = job.StatusPending
	j.Attempts = 0
	j.RunAt = now
	j.LastError = nil
	unlock(&j)
	j.UpdatedAt = now
	r.s.jobs[id] = j
	return nil
}
