// Package review backs the admin review table: filtering is local, decisions
// go through the API and are applied to the row only once the server agrees.
package review

import (
	"context"
	"errors"
	"sync"

	"github.com/geocoder89/admissionhub/internal/domain/application"
)

type Filter string

const (
	FilterAll      Filter = "ALL"
	FilterPending  Filter = Filter(application.StatusPending)
	FilterAccepted Filter = Filter(application.StatusAccepted)
	FilterRejected Filter = Filter(application.StatusRejected)
)

func (f Filter) IsValid() bool {
	switch f {
	case FilterAll, FilterPending, FilterAccepted, FilterRejected:
		return true
	default:
		return false
	}
}

// Apply returns the rows matching f in their original order. list is not modified.
func Apply(list []application.Application, f Filter) []application.Application {
	out := make([]application.Application, 0, len(list))
	for _, a := range list {
		if f == FilterAll || Filter(a.Status) == f {
			out = append(out, a)
		}
	}
	return out
}

// ActionEnabled is false exactly when the row already holds target.
func ActionEnabled(row application.Application, target application.Status) bool {
	return row.Status != target
}

var (
	ErrRowNotFound    = errors.New("review: application not on the board")
	ErrUpdateInFlight = errors.New("review: an update for this application is in flight")
	ErrActionDisabled = errors.New("review: application already has that status")
)

type API interface {
	ListApplications(ctx context.Context, status string) ([]application.Application, error)
	UpdateStatus(ctx context.Context, id string, status application.Status) (application.Application, error)
}

type Board struct {
	api API

	mu      sync.Mutex
	rows    []application.Application
	filter  Filter
	pending map[string]bool
}

func NewBoard(api API) *Board {
	return &Board{api: api, filter: FilterAll, pending: make(map[string]bool)}
}

// Load replaces the board with every application, newest first as served.
func (b *Board) Load(ctx context.Context) error {
	rows, err := b.api.ListApplications(ctx, string(FilterAll))
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.rows = rows
	b.mu.Unlock()
	return nil
}

func (b *Board) SetFilter(f Filter) {
	if !f.IsValid() {
		return
	}
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// Visible is the filtered view.
func (b *Board) Visible() []application.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Apply(b.rows, b.filter)
}

func (b *Board) Rows() []application.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]application.Application(nil), b.rows...)
}

// Updating reports whether a decision for id is waiting on the server.
func (b *Board) Updating(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending[id]
}

// SetStatus sends a decision for id. The local row changes only after the
// server accepts it.
func (b *Board) SetStatus(ctx context.Context, id string, target application.Status) (application.Application, error) {
	b.mu.Lock()
	idx := b.indexLocked(id)
	switch {
	case idx < 0:
		b.mu.Unlock()
		return application.Application{}, ErrRowNotFound
	case b.pending[id]:
		b.mu.Unlock()
		return application.Application{}, ErrUpdateInFlight
	case !ActionEnabled(b.rows[idx], target):
		b.mu.Unlock()
		return application.Application{}, ErrActionDisabled
	}
	b.pending[id] = true
	b.mu.Unlock()

	updated, err := b.api.UpdateStatus(ctx, id, target)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)

	if err != nil {
		return application.Application{}, err
	}

	// the list may have been reloaded meanwhile
	if idx = b.indexLocked(id); idx >= 0 {
		if updated.Student == nil {
			updated.Student = b.rows[idx].Student
		}
		b.rows[idx] = updated
	}
	return updated, nil
}

func (b *Board) indexLocked(id string) int {
	for i := range b.rows {
		if b.rows[i].ID == id {
			return i
		}
	}
	return -1
}
