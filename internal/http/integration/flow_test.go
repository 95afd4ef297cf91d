package integration_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/gin-gonic/gin"
)

// processFn drains one outbox job; processed is false when the queue is empty.
type processFn func(ctx context.Context) (bool, error)

// runAdmissionFlow drives a student from registration to an accepted decision
// and checks that each step produced exactly one notification.
func runAdmissionFlow(t *testing.T, r *gin.Engine, process processFn, rec *recordingNotifier) {
	t.Helper()

	// anonymous callers are turned away before any handler runs
	mustStatus(t, call(r, http.MethodGet, "/student/status", "", ""), http.StatusUnauthorized)
	mustStatus(t, call(r, http.MethodGet, "/admin/dashboard", "", ""), http.StatusUnauthorized)

	registerStudent(t, r, "Grace Hopper", "grace@example.com")
	studentToken := login(t, r, "grace@example.com", "Secret123!")
	adminToken := login(t, r, adminEmail, adminPassword)

	// roles are enforced both ways
	mustStatus(t, call(r, http.MethodGet, "/admin/dashboard", "", studentToken), http.StatusForbidden)
	mustStatus(t, call(r, http.MethodPost, "/student/application", submitBody, adminToken), http.StatusForbidden)

	w := call(r, http.MethodPost, "/student/application", submitBody, studentToken)
	mustStatus(t, w, http.StatusOK)
	submitted := decode[struct {
		Message     string  `json:"message"`
		Application appView `json:"application"`
	}](t, w)
	if submitted.Application.ID == "" || submitted.Application.Status != "PENDING" {
		t.Fatalf("unexpected submission: %+v", submitted)
	}
	appID := submitted.Application.ID

	w = call(r, http.MethodGet, "/admin/applications?status=PENDING", "", adminToken)
	mustStatus(t, w, http.StatusOK)
	pending := decode[[]appView](t, w)
	if len(pending) != 1 || pending[0].ID != appID {
		t.Fatalf("expected the new application in the pending list, got %+v", pending)
	}
	if pending[0].Student == nil || pending[0].Student.Email != "grace@example.com" {
		t.Fatalf("admin listing should embed the student, got %+v", pending[0])
	}

	w = call(r, http.MethodPatch, "/admin/applications", `{"id":"`+appID+`","status":"ACCEPTED"}`, adminToken)
	mustStatus(t, w, http.StatusOK)
	if got := decode[appView](t, w); got.Status != "ACCEPTED" {
		t.Fatalf("expected ACCEPTED, got %+v", got)
	}

	// decisions are final
	w = call(r, http.MethodPatch, "/admin/applications", `{"id":"`+appID+`","status":"REJECTED"}`, adminToken)
	mustStatus(t, w, http.StatusConflict)

	w = call(r, http.MethodGet, "/admin/dashboard", "", adminToken)
	mustStatus(t, w, http.StatusOK)
	dash := decode[struct {
		Statistics struct {
			TotalApplications    int `json:"totalApplications"`
			AcceptedApplications int `json:"acceptedApplications"`
			TotalUsers           int `json:"totalUsers"`
			TotalStudents        int `json:"totalStudents"`
		} `json:"statistics"`
		RecentApplications []appView `json:"recentApplications"`
	}](t, w)
	s := dash.Statistics
	if s.TotalApplications != 1 || s.AcceptedApplications != 1 || s.TotalUsers != 2 || s.TotalStudents != 1 {
		t.Fatalf("unexpected statistics: %+v", s)
	}
	if len(dash.RecentApplications) != 1 {
		t.Fatalf("expected 1 recent application, got %d", len(dash.RecentApplications))
	}

	w = call(r, http.MethodGet, "/student/status", "", studentToken)
	mustStatus(t, w, http.StatusOK)
	mine := decode[[]appView](t, w)
	if len(mine) != 1 || mine[0].Status != "ACCEPTED" {
		t.Fatalf("student should see the decision, got %+v", mine)
	}

	// receipt + decision were queued with the writes; drain them
	for i := 0; i < 5; i++ {
		processed, err := process(context.Background())
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if !processed {
			break
		}
	}

	kinds := rec.Kinds()
	if len(kinds) != 2 {
		t.Fatalf("expected 2 notifications, got %v", kinds)
	}
	seen := map[notifications.Kind]bool{}
	for _, k := range kinds {
		seen[k] = true
	}
	if !seen[notifications.KindSubmissionReceipt] || !seen[notifications.KindDecision] {
		t.Fatalf("expected receipt and decision, got %v", kinds)
	}

	// nothing is sent twice
	if processed, _ := process(context.Background()); processed {
		t.Fatal("queue should be empty")
	}
	if rec.Count() != 2 {
		t.Fatalf("expected still 2 notifications, got %d", rec.Count())
	}
}
