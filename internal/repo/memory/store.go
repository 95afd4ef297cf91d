// Package memory is an in-process implementation of every repository. It backs
// STORE=memory and the end-to-end tests.
package memory

import (
	"sync"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/domain/user"
)

// Store holds all tables behind one lock so multi-table writes stay atomic.
type Store struct {
	mu sync.RWMutex

	users      map[string]user.User
	emails     map[string]string // email -> id
	apps       map[string]application.Application
	tokens     map[string]user.RefreshToken
	jobs       map[string]job.Job
	jobKeys    map[string]string // idempotency key -> job id
	deliveries map[string]string // job id -> kind

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]user.User),
		emails:     make(map[string]string),
		apps:       make(map[string]application.Application),
		tokens:     make(map[string]user.RefreshToken),
		jobs:       make(map[string]job.Job),
		jobKeys:    make(map[string]string),
		deliveries: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() *UsersRepo                 { return &UsersRepo{s} }
func (s *Store) Applications() *ApplicationsRepo   { return &ApplicationsRepo{s} }
func (s *Store) Dashboard() *DashboardRepo         { return &DashboardRepo{s} }
func (s *Store) RefreshTokens() *RefreshTokensRepo { return &RefreshTokensRepo{s} }
func (s *Store) Jobs() *JobsRepo                   { return &JobsRepo{s} }
func (s *Store) Deliveries() *DeliveriesRepo       { return &DeliveriesRepo{s} }

// insertJobLocked mirrors ON CONFLICT (idempotency_key) DO NOTHING.
func (s *Store) insertJobLocked(req job.CreateRequest) (job.Job, bool) {
	if req.IdempotencyKey != nil {
		if _, dup := s.jobKeys[*req.IdempotencyKey]; dup {
			return job.Job{}, false
		}
	}

	j := job.New(req)
	s.jobs[j.ID] = j
	if j.IdempotencyKey != nil {
		s.jobKeys[*j.IdempotencyKey] = j.ID
	}
	return j, true
}

func cloneApp(a application.Application) application.Application {
	a.Courses = append([]string(nil), a.Courses...)
	if a.Student != nil {
		s := *a.Student
		a.Student = &s
	}
	return a
}
