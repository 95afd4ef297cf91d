package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/cache"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/db"
	apphttp "github.com/geocoder89/admissionhub/internal/http"
	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/submitlock"
	"github.com/gin-gonic/gin"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifications.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, msg)
	return nil
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *recordingNotifier) Kinds() []notifications.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.Kind, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.Kind)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		JWTRefreshTTLDays:   7,
		VerifyTTLHours:      24,
		PublicURL:           "http://localhost:8080",
		AdminEmail:          adminEmail,
		AdminPassword:       adminPassword,
		AdminName:           "Test Admin",
		AdminRole:           "ADMIN",
		CacheTTLSeconds:     60,
		SubmitLockSeconds:   5,
		RateLimitPerMinute:  1000,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// buildRouter seeds the admin into deps.Users and wires the full middleware chain.
func buildRouter(t *testing.T, deps apphttp.Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	deps.Cfg = cfg
	deps.Log = quietLogger()
	deps.JWT = auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.VerifyTTL())
	deps.Cache = cache.New(cfg.CacheTTL())
	deps.Locker = submitlock.NewMemory()
	if deps.Prom == nil {
		deps.Prom = observability.NewTestProm()
	}

	if err := db.EnsureAdminUser(context.Background(), deps.Users, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	return apphttp.NewRouter(deps)
}

func call(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var buf io.Reader = http.NoBody
	if body != "" {
		buf = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return v
}

func registerStudent(t *testing.T, r http.Handler, name, email string) {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","password":"Secret123!","role":"STUDENT"}`
	mustStatus(t, call(r, http.MethodPost, "/register", body, ""), http.StatusOK)
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	w := call(r, http.MethodPost, "/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	mustStatus(t, w, http.StatusOK)

	resp := decode[struct {
		AccessToken string `json:"accessToken"`
	}](t, w)
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	return resp.AccessToken
}

const submitBody = `{
	"program":"computer-science",
	"personalStatement":"I like building things that last.",
	"previousEducation":"High School Diploma",
	"courses":["Programming Fundamentals","Data Structures","Algorithms"],
	"expectedGrade":"A",
	"currentGPA":"3.7",
	"phoneNumber":"+1 555 0100",
	"startDate":"2026-09-01",
	"studyMode":"FULLTIME"
}`

type appView struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Program string `json:"program"`
	Student *struct {
		Email string `json:"email"`
	} `json:"student"`
}
