package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/jobs"
	"github.com/geocoder89/admissionhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	MarkEmailVerified(ctx context.Context, id string, at time.Time) (bool, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, t user.RefreshToken) error
	Rotate(ctx context.Context, oldID, presentedHash string, next user.RefreshToken) error
	Revoke(ctx context.Context, id string) error
}

type JobCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users        UserStore
	refreshStore RefreshTokenStore
	jobs         JobCreator
	jwt          *auth.Manager
	cfg          config.Config
	now          func() time.Time
}

func NewAuthHandler(users UserStore, refreshStore RefreshTokenStore, jobsRepo JobCreator, jwtManager *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		refreshStore: refreshStore,
		jobs:         jobsRepo,
		jwt:          jwtManager,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

const refreshCookieName = "refresh_token"

type userView struct {
	ID    string    `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
}

// POST /register
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u := user.New(req.Name, req.Email, hash, req.Role)

	if err := h.users.Create(cctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondError(ctx, http.StatusBadRequest, "email_taken", "User with this email already exists", nil)
			return
		}
		RespondInternal(ctx, "Could not create user", err)
		return
	}

	ctx.JSON(http.StatusOK, userView{ID: u.ID, Email: u.Email, Role: u.Role})
}

// POST /login
func (h *AuthHandler) Login(ctx *gin.Context) {
	// every failure, malformed input included, looks the same to the caller
	var req user.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		security.BurnCompare(req.Password)
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondInternal(ctx, "Could not sign in", err)
			return
		}
		// keep unknown-email timing close to a wrong password
		security.BurnCompare(req.Password)
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(found.ID, found.Email, string(found.Role))
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	rawRefresh, jti, expiresAt, err := h.jwt.GenerateRefreshToken(found.ID, found.Email, string(found.Role))
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token", err)
		return
	}

	err = h.refreshStore.Create(cctx, user.RefreshToken{
		ID:        jti,
		UserID:    found.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefresh),
		ExpiresAt: expiresAt,
		CreatedAt: h.now(),
	})
	if err != nil {
		RespondInternal(ctx, "Could not create session", err)
		return
	}

	h.setRefreshCookie(ctx, rawRefresh, expiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        userView{ID: found.ID, Name: found.Name, Email: found.Email, Role: found.Role},
	})
}

// POST /auth/refresh rotates the refresh cookie. Presenting an already rotated
// token revokes every session of that user.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		RespondUnauthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session", err)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	next := user.RefreshToken{
		ID:        newJTI,
		UserID:    claims.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: h.now(),
	}

	err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), next)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrRefreshExpired):
		h.clearRefreshCookie(ctx)
		RespondUnauthorized(ctx, "expired_refresh", "Refresh token expired")
		return
	case errors.Is(err, user.ErrRefreshNotFound), errors.Is(err, user.ErrRefreshRevoked):
		h.clearRefreshCookie(ctx)
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	default:
		RespondInternal(ctx, "Could not refresh session", err)
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token", err)
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// POST /auth/logout always answers 204 and clears the cookie.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	defer func() {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
	}()

	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	_ = h.refreshStore.Revoke(cctx, claims.JTI)
}

// GET /auth/session
func (h *AuthHandler) Session(ctx *gin.Context) {
	s := auth.SessionFrom(ctx.Request.Context())
	if !s.IsAuthenticated() {
		ctx.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	view := userView{ID: s.UserID(), Email: s.Email(), Role: s.Role()}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if u, err := h.users.GetByID(cctx, s.UserID()); err == nil {
		view.Name = u.Name
	}

	ctx.JSON(http.StatusOK, gin.H{"authenticated": true, "user": view})
}

// POST /auth/verify-email issues a signed link and queues the e-mail.
func (h *AuthHandler) RequestEmailVerification(ctx *gin.Context) {
	var req user.VerifyEmailRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not send verification email", err)
		return
	}

	if u.EmailVerified != nil {
		ctx.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}

	token, err := h.jwt.GenerateVerifyToken(u.ID, u.Email)
	if err != nil {
		RespondInternal(ctx, "Could not send verification email", err)
		return
	}

	link := h.cfg.PublicURL + "/auth/verify-email?token=" + url.QueryEscape(token)

	jobReq, err := jobs.NewCreateRequest(jobs.JobVerifyEmail, jobs.VerifyEmailPayload{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Link:   link,
	})
	if err != nil {
		RespondInternal(ctx, "Could not send verification email", err)
		return
	}

	if _, err := h.jobs.Create(cctx, jobReq); err != nil {
		RespondInternal(ctx, "Could not send verification email", err)
		return
	}

	resp := gin.H{"message": "Verification email sent"}
	if h.cfg.Env == "dev" {
		resp["verificationLink"] = link
	}

	ctx.JSON(http.StatusOK, resp)
}

// GET /auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	token := ctx.Query("token")
	if token == "" {
		RespondError(ctx, http.StatusBadRequest, "invalid_token", "Verification token is required", nil)
		return
	}

	claims, err := h.jwt.VerifyEmailToken(token)
	if err != nil {
		RespondError(ctx, http.StatusBadRequest, "invalid_token", "Invalid or expired verification token", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not verify email", err)
		return
	}

	// the address changed since the link was issued
	if u.Email != user.NormalizeEmail(claims.Email) {
		RespondError(ctx, http.StatusBadRequest, "invalid_token", "Invalid or expired verification token", nil)
		return
	}

	changed, err := h.users.MarkEmailVerified(cctx, u.ID, h.now())
	if err != nil {
		RespondInternal(ctx, "Could not verify email", err)
		return
	}

	if !changed {
		ctx.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, raw, maxAge, "/auth", "", h.cfg.Env == "prod", true)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, "/auth", "", h.cfg.Env == "prod", true)
}
