package memory

import (
	"context"

	"github.com/geocoder89/admissionhub/internal/domain/application"
)

type DashboardRepo struct {
	s *Store
}

func (r *DashboardRepo) CountByStatus(_ context.Context) (map[application.Status]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.statusCountsLocked(), nil
}

func (r *DashboardRepo) CountUsers(_ context.Context) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total, students := r.s.userCountsLocked()
	return total, students, nil
}

func (r *DashboardRepo) Recent(ctx context.Context, limit int) ([]application.Application, error) {
	return r.s.Applications().List(ctx, application.ListFilter{Limit: limit})
}

func (r *DashboardRepo) ProgramStats(_ context.Context) ([]application.ProgramStat, error) {
	r.s.mu.RLock()
	counts := make(map[string]int)
	for _, a := range r.s.apps {
		counts[a.Program]++
	}
	r.s.mu.RUnlock()

	out := make([]application.ProgramStat, 0, len(counts))
	for p, n := range counts {
		out = append(out, application.ProgramStat{Program: p, Count: n})
	}
	application.SortProgramStats(out)
	return out, nil
}
