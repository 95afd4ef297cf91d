package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/jobs"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/submitlock"
	"github.com/gin-gonic/gin"
)

type ApplicationStore interface {
	Submit(ctx context.Context, app application.Application, enqueue application.Enqueue) (application.Application, error)
	List(ctx context.Context, f application.ListFilter) ([]application.Application, error)
	Decide(ctx context.Context, id string, target application.Status, enqueue application.Enqueue) (application.Application, bool, error)
}

type ApplicationsHandler struct {
	store   ApplicationStore
	locker  submitlock.Locker
	lockTTL time.Duration
	prom    *observability.Prom
}

func NewApplicationsHandler(store ApplicationStore, locker submitlock.Locker, lockTTL time.Duration, prom *observability.Prom) *ApplicationsHandler {
	return &ApplicationsHandler{
		store:   store,
		locker:  locker,
		lockTTL: lockTTL,
		prom:    prom,
	}
}

// POST /student/application
func (h *ApplicationsHandler) Submit(ctx *gin.Context) {
	s := auth.SessionFrom(ctx.Request.Context())

	var req application.SubmitRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	// one submission per student at a time
	token, err := h.locker.Acquire(cctx, s.UserID(), h.lockTTL)
	if err != nil {
		if errors.Is(err, submitlock.ErrHeld) {
			if h.prom != nil {
				h.prom.SubmitLockConflicts.Inc()
			}
			RespondConflict(ctx, "submission_in_progress", "An application submission is already in progress")
			return
		}
		RespondInternal(ctx, "Failed to submit application", err)
		return
	}
	defer func() {
		rctx, rcancel := config.WithTimeout(time.Second)
		defer rcancel()
		if err := h.locker.Release(rctx, s.UserID(), token); err != nil {
			slog.Default().WarnContext(ctx.Request.Context(), "submit lock release failed", "err", err, "student_id", s.UserID())
		}
	}()

	req.StudentID = s.UserID()
	app := application.NewFromSubmitRequest(req)
	requestID := requestIDFrom(ctx)

	created, err := h.store.Submit(cctx, app, func(a application.Application) (*job.CreateRequest, error) {
		if a.Student == nil {
			return nil, nil
		}
		jr, err := jobs.NewCreateRequest(jobs.JobSubmissionReceipt, jobs.SubmissionReceiptPayload{
			ApplicationID: a.ID,
			StudentID:     a.StudentID,
			Email:         a.Student.Email,
			Name:          a.Student.Name,
			Program:       a.Program,
			SubmittedAt:   a.SubmittedAt,
			RequestID:     requestID,
		}, a.ID)
		if err != nil {
			return nil, err
		}
		return &jr, nil
	})
	if err != nil {
		if errors.Is(err, application.ErrStudentNotFound) {
			RespondUnauthorized(ctx, "unauthorized", "Session is no longer valid")
			return
		}
		RespondInternal(ctx, "Failed to submit application", err)
		return
	}

	if h.prom != nil {
		h.prom.ApplicationsSubmitted.WithLabelValues(created.Program).Inc()
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Application submitted successfully",
		"application": created,
	})
}

// GET /student/status returns the caller's applications, newest first.
func (h *ApplicationsHandler) MyApplications(ctx *gin.Context) {
	s := auth.SessionFrom(ctx.Request.Context())
	studentID := s.UserID()

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	apps, err := h.store.List(cctx, application.ListFilter{StudentID: &studentID})
	if err != nil {
		RespondInternal(ctx, "Failed to fetch applications", err)
		return
	}

	ctx.JSON(http.StatusOK, nonNilApps(apps))
}

// GET /admin/applications?status=
func (h *ApplicationsHandler) AdminList(ctx *gin.Context) {
	var f application.ListFilter

	if raw := ctx.Query("status"); raw != "" && raw != "ALL" {
		st := application.Status(raw)
		if !st.IsValid() {
			RespondBadRequest(ctx, "status must be one of ALL, PENDING, ACCEPTED, REJECTED", gin.H{
				"fields": []FieldError{{Field: "status", Rule: "oneof", Message: "must be one of ALL, PENDING, ACCEPTED, REJECTED"}},
			})
			return
		}
		f.Status = &st
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	apps, err := h.store.List(cctx, f)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch applications", err)
		return
	}

	ctx.JSON(http.StatusOK, nonNilApps(apps))
}

// PATCH /admin/applications
func (h *ApplicationsHandler) UpdateStatus(ctx *gin.Context) {
	s := auth.SessionFrom(ctx.Request.Context())

	var req application.UpdateStatusRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	requestID := requestIDFrom(ctx)

	updated, changed, err := h.store.Decide(cctx, req.ID, req.Status, func(a application.Application) (*job.CreateRequest, error) {
		if a.Student == nil {
			return nil, nil
		}
		jr, err := jobs.NewCreateRequest(jobs.JobDecisionNotice, jobs.DecisionNoticePayload{
			ApplicationID: a.ID,
			StudentID:     a.StudentID,
			Email:         a.Student.Email,
			Name:          a.Student.Name,
			Program:       a.Program,
			Status:        string(a.Status),
			DecidedBy:     s.UserID(),
			RequestID:     requestID,
		}, a.ID, string(a.Status))
		if err != nil {
			return nil, err
		}
		return &jr, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNotFound):
			RespondNotFound(ctx, "Application not found")
		case errors.Is(err, application.ErrInvalidTransition):
			RespondConflict(ctx, "invalid_transition", "Application has already been decided")
		default:
			RespondInternal(ctx, "Failed to update application", err)
		}
		return
	}

	if changed && h.prom != nil {
		h.prom.Decisions.WithLabelValues(string(updated.Status)).Inc()
	}

	ctx.JSON(http.StatusOK, updated)
}

func nonNilApps(apps []application.Application) []application.Application {
	if apps == nil {
		return []application.Application{}
	}
	return apps
}
