package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminJobsRepo interface {
	List(ctx context.Context, f job.ListFilter) ([]job.Job, error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
}

type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

// GET /admin/jobs?status=failed&type=application.decided&limit=50
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	var f job.ListFilter

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			RespondBadRequest(ctx, "limit must be between 1 and 200", nil)
			return
		}
		f.Limit = n
	}

	if raw := ctx.Query("status"); raw != "" {
		st := job.Status(raw)
		if !st.IsValid() {
			RespondBadRequest(ctx, "status must be one of pending, processing, done, failed", nil)
			return
		}
		f.Status = &st
	}

	if t := ctx.Query("type"); t != "" {
		f.Type = &t
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Could not list jobs", err)
		return
	}
	if items == nil {
		items = []job.Job{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}

// GET /admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set("job_id", id)

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}
		RespondInternal(ctx, "Could not fetch job", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// POST /admin/jobs/:id/retry puts a failed job back in the queue.
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")
	ctx.Set("job_id", id)

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "invalid_id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.repo.Retry(cctx, id); err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, job.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
		default:
			RespondInternal(ctx, "Could not retry job", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": job.StatusPending,
	})
}
