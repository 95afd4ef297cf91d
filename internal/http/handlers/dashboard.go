package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type DashboardStore interface {
	CountByStatus(ctx context.Context) (map[application.Status]int, error)
	CountUsers(ctx context.Context) (total, students int, err error)
	Recent(ctx context.Context, limit int) ([]application.Application, error)
	ProgramStats(ctx context.Context) ([]application.ProgramStat, error)
}

type DashboardHandler struct {
	store DashboardStore
}

func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// GET /admin/dashboard recomputes everything per request. The four reads run
// concurrently and are not taken from one snapshot.
func (h *DashboardHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	var (
		counts          map[application.Status]int
		users, students int
		recent          []application.Application
		programs        []application.ProgramStat
	)

	g, gctx := errgroup.WithContext(cctx)

	g.Go(func() (err error) {
		counts, err = h.store.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, students, err = h.store.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = h.store.Recent(gctx, application.RecentLimit)
		return err
	})
	g.Go(func() (err error) {
		programs, err = h.store.ProgramStats(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		RespondInternal(ctx, "Failed to fetch dashboard data", err)
		return
	}

	d := application.Dashboard{
		RecentApplications: nonNilApps(recent),
		ProgramStats:       programs,
	}
	d.Statistics.ApplyStatusCounts(counts)
	d.Statistics.TotalUsers = users
	d.Statistics.TotalStudents = students

	if d.ProgramStats == nil {
		d.ProgramStats = []application.ProgramStat{}
	}
	application.SortProgramStats(d.ProgramStats)

	ctx.JSON(http.StatusOK, d)
}
