package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/http/handlers"
)

type fakeJobs struct {
	listFn  func(ctx context.Context, f job.ListFilter) ([]job.Job, error)
	getFn   func(ctx context.Context, id string) (job.Job, error)
	retryFn func(ctx context.Context, id string) error
}

func (f *fakeJobs) List(ctx context.Context, lf job.ListFilter) ([]job.Job, error) {
	return f.listFn(ctx, lf)
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (job.Job, error) {
	return f.getFn(ctx, id)
}

func (f *fakeJobs) Retry(ctx context.Context, id string) error {
	return f.retryFn(ctx, id)
}

const jobID = "7d1c2b3a-4e5f-4a6b-9c8d-0e1f2a3b4c5d"

func TestAdminJobs_Retry(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "failed job", id: jobID, wantStatus: http.StatusOK},
		{name: "unknown job", id: jobID, err: job.ErrJobNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "not failed", id: jobID, err: job.ErrJobNotFailed, wantStatus: http.StatusConflict, wantCode: "job_not_failed"},
		{name: "bad id", id: "nope", wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeJobs{retryFn: func(_ context.Context, id string) error { return tt.err }}

			r := newEngine()
			r.POST("/admin/jobs/:id/retry", handlers.NewAdminJobsHandler(repo).Retry)

			w := doJSON(r, http.MethodPost, "/admin/jobs/"+tt.id+"/retry", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if code := decodeError(t, w).Error.Code; code != tt.wantCode {
					t.Fatalf("got code %q want %q", code, tt.wantCode)
				}
			}
		})
	}
}

func TestAdminJobs_ListFilters(t *testing.T) {
	var got job.ListFilter
	repo := &fakeJobs{listFn: func(_ context.Context, f job.ListFilter) ([]job.Job, error) {
		got = f
		return nil, nil
	}}

	r := newEngine()
	r.GET("/admin/jobs", handlers.NewAdminJobsHandler(repo).List)

	w := doJSON(r, http.MethodGet, "/admin/jobs?status=failed&type=application.decided&limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if got.Status == nil || *got.Status != job.StatusFailed || got.Type == nil || *got.Type != "application.decided" || got.Limit != 10 {
		t.Fatalf("unexpected filter %+v", got)
	}

	for _, q := range []string{"?limit=0", "?limit=500", "?status=stuck"} {
		if w := doJSON(r, http.MethodGet, "/admin/jobs"+q, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got status %d, want 400", q, w.Code)
		}
	}
}

func TestAdminJobs_GetNotFound(t *testing.T) {
	repo := &fakeJobs{getFn: func(context.Context, string) (job.Job, error) {
		return job.Job{}, job.ErrJobNotFound
	}}

	r := newEngine()
	r.GET("/admin/jobs/:id", handlers.NewAdminJobsHandler(repo).GetByID)

	if w := doJSON(r, http.MethodGet, "/admin/jobs/"+jobID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("got status %d", w.Code)
	}
}
