package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/http/handlers"
	"github.com/geocoder89/admissionhub/internal/jobs"
	"github.com/geocoder89/admissionhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

type authFixture struct {
	r     *gin.Engine
	store *memory.Store
	jwt   *auth.Manager
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	store := memory.NewStore()
	jwtManager := auth.NewManager("test-secret", 15*time.Minute, 24*time.Hour, time.Hour)
	cfg := config.Config{Env: "dev", PublicURL: "http://admissions.test"}

	h := handlers.NewAuthHandler(store.Users(), store.RefreshTokens(), store.Jobs(), jwtManager, cfg)

	r := newEngine()
	r.Use(func(c *gin.Context) {
		s := auth.Anonymous()
		if raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "); raw != "" {
			if claims, err := jwtManager.VerifyAccessToken(raw); err == nil {
				s = auth.FromClaims(claims)
			}
		}
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
		c.Next()
	})
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/session", h.Session)
	r.POST("/auth/verify-email", h.RequestEmailVerification)
	r.GET("/auth/verify-email", h.VerifyEmail)

	return authFixture{r: r, store: store, jwt: jwtManager}
}

const registerBody = `{"name":"Ada Lovelace","email":"Ada@Example.com","password":"Secret123!","role":"STUDENT"}`

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no refresh cookie in response: %v", w.Header()["Set-Cookie"])
	return nil
}

func postWithCookie(r http.Handler, path string, c *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if c != nil {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_NormalizesEmailAndRejectsDuplicates(t *testing.T) {
	f := newAuthFixture(t)

	w := doJSON(f.r, http.MethodPost, "/register", registerBody)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var got struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID == "" || got.Email != "ada@example.com" || got.Role != "STUDENT" {
		t.Fatalf("unexpected body %+v", got)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatal("password material must never be serialized")
	}

	dup := strings.Replace(registerBody, "Ada@Example.com", "ADA@example.COM", 1)
	w = doJSON(f.r, http.MethodPost, "/register", dup)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: got status %d", w.Code)
	}
	if code := decodeError(t, w).Error.Code; code != "email_taken" {
		t.Fatalf("duplicate: got code %q", code)
	}
}

func TestLogin_RefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	doJSON(f.r, http.MethodPost, "/register", registerBody)

	w := doJSON(f.r, http.MethodPost, "/login", `{"email":"ada@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized || decodeError(t, w).Error.Code != "invalid_credentials" {
		t.Fatalf("wrong password: got %d %s", w.Code, w.Body.String())
	}

	w = doJSON(f.r, http.MethodPost, "/login", `{"email":"nobody@example.com","password":"Secret123!"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: got %d", w.Code)
	}

	w = doJSON(f.r, http.MethodPost, "/login", `{"email":"ADA@example.com","password":"Secret123!"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d %s", w.Code, w.Body.String())
	}

	var login struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if login.AccessToken == "" || login.User.Name != "Ada Lovelace" || login.User.Role != "STUDENT" {
		t.Fatalf("unexpected login body %s", w.Body.String())
	}

	first := refreshCookie(t, w)
	if !first.HttpOnly || first.Path != "/auth" {
		t.Fatalf("cookie must be HttpOnly on /auth, got %+v", first)
	}

	w = postWithCookie(f.r, "/auth/refresh", first)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: got %d %s", w.Code, w.Body.String())
	}
	second := refreshCookie(t, w)
	if second.Value == first.Value {
		t.Fatal("refresh must rotate the cookie")
	}

	// replaying the rotated token is treated as theft
	w = postWithCookie(f.r, "/auth/refresh", first)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replay: got %d", w.Code)
	}

	w = postWithCookie(f.r, "/auth/refresh", second)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("after reuse the whole family is revoked, got %d", w.Code)
	}
}

func TestLogin_MalformedInputIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	doJSON(f.r, http.MethodPost, "/register", registerBody)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty password", body: `{"email":"ada@example.com","password":""}`},
		{name: "malformed email", body: `{"email":"not-an-email","password":"x"}`},
		{name: "missing fields", body: `{}`},
		{name: "not json", body: `email=ada@example.com`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(f.r, http.MethodPost, "/login", tt.body)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
			}
			resp := decodeError(t, w)
			if resp.Error.Code != "invalid_credentials" || resp.Error.Message != "Invalid email or password" {
				t.Fatalf("unexpected error %+v", resp.Error)
			}
			if len(resp.Error.Details.Fields) != 0 {
				t.Fatalf("login failures must not leak field details: %+v", resp.Error.Details.Fields)
			}
		})
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	f := newAuthFixture(t)

	w := postWithCookie(f.r, "/auth/refresh", nil)
	if w.Code != http.StatusUnauthorized || decodeError(t, w).Error.Code != "no_refresh" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	doJSON(f.r, http.MethodPost, "/register", registerBody)
	w := doJSON(f.r, http.MethodPost, "/login", `{"email":"ada@example.com","password":"Secret123!"}`)
	cookie := refreshCookie(t, w)

	if w := postWithCookie(f.r, "/auth/logout", cookie); w.Code != http.StatusNoContent {
		t.Fatalf("logout: got %d", w.Code)
	}
	if w := postWithCookie(f.r, "/auth/refresh", cookie); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: got %d", w.Code)
	}
	if w := postWithCookie(f.r, "/auth/logout", nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout without cookie: got %d", w.Code)
	}
}

func TestSession_AnonymousAndAuthenticated(t *testing.T) {
	f := newAuthFixture(t)

	w := doJSON(f.r, http.MethodGet, "/auth/session", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"authenticated":false`) {
		t.Fatalf("anonymous: got %d %s", w.Code, w.Body.String())
	}

	doJSON(f.r, http.MethodPost, "/register", registerBody)
	w = doJSON(f.r, http.MethodPost, "/login", `{"email":"ada@example.com","password":"Secret123!"}`)

	var login struct {
		AccessToken string `json:"accessToken"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &login)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	w = httptest.NewRecorder()
	f.r.ServeHTTP(w, req)

	var s struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !s.Authenticated || s.User.Email != "ada@example.com" || s.User.Role != "STUDENT" || s.User.Name != "Ada Lovelace" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestVerifyEmail_Flow(t *testing.T) {
	f := newAuthFixture(t)
	doJSON(f.r, http.MethodPost, "/register", registerBody)

	if w := doJSON(f.r, http.MethodPost, "/auth/verify-email", `{"email":"ghost@example.com"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown email: got %d", w.Code)
	}

	w := doJSON(f.r, http.MethodPost, "/auth/verify-email", `{"email":"ada@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("request: got %d %s", w.Code, w.Body.String())
	}

	var issued struct {
		Message          string `json:"message"`
		VerificationLink string `json:"verificationLink"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &issued); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(issued.VerificationLink, "http://admissions.test/auth/verify-email?token=") {
		t.Fatalf("dev response should carry the link, got %q", issued.VerificationLink)
	}

	queued, err := f.store.Jobs().List(context.Background(), job.ListFilter{})
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(queued) != 1 || queued[0].Type != string(jobs.JobVerifyEmail) {
		t.Fatalf("expected one verify-email job, got %+v", queued)
	}

	link, err := url.Parse(issued.VerificationLink)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}

	w = doJSON(f.r, http.MethodGet, "/auth/verify-email?"+link.RawQuery, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Email verified successfully") {
		t.Fatalf("verify: got %d %s", w.Code, w.Body.String())
	}

	u, _ := f.store.Users().GetByEmail(context.Background(), "ada@example.com")
	if u.EmailVerified == nil {
		t.Fatal("emailVerified should be stamped")
	}

	w = doJSON(f.r, http.MethodGet, "/auth/verify-email?"+link.RawQuery, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "already verified") {
		t.Fatalf("second verify: got %d %s", w.Code, w.Body.String())
	}

	w = doJSON(f.r, http.MethodGet, "/auth/verify-email?token=garbage", "")
	if w.Code != http.StatusBadRequest || decodeError(t, w).Error.Code != "invalid_token" {
		t.Fatalf("bad token: got %d %s", w.Code, w.Body.String())
	}
}

func TestVerifyEmail_AccessTokenIsNotAVerifyToken(t *testing.T) {
	f := newAuthFixture(t)
	doJSON(f.r, http.MethodPost, "/register", registerBody)
	u, _ := f.store.Users().GetByEmail(context.Background(), "ada@example.com")

	access, err := f.jwt.GenerateAccessToken(u.ID, u.Email, string(user.RoleStudent))
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	w := doJSON(f.r, http.MethodGet, "/auth/verify-email?token="+url.QueryEscape(access), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d", w.Code)
	}
}
