package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/cache"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/http/handlers"
	"github.com/geocoder89/admissionhub/internal/http/middlewares"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/submitlock"
	"github.com/geocoder89/admissionhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 64 << 10

type UserRepo interface {
	handlers.UserStore
	handlers.UserLister
}

type JobsRepo interface {
	handlers.JobCreator
	handlers.AdminJobsRepo
}

// Deps is everything the API needs; cmd/api fills it from postgres or the
// in-memory store.
type Deps struct {
	Log *slog.Logger
	Cfg config.Config

	JWT           *auth.Manager
	Users         UserRepo
	RefreshTokens handlers.RefreshTokenStore
	Applications  handlers.ApplicationStore
	Dashboard     handlers.DashboardStore
	Jobs          JobsRepo
	Locker        submitlock.Locker
	Cache         *cache.Cache

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Ready    []handlers.Pinger

	// RateLimiter is shared so a cron can sweep it; nil builds one from Cfg.
	RateLimiter *middlewares.RateLimiter
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.RegisterWithGin()

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("admissionhub"))
	r.Use(middlewares.RequestID())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	authMW := middlewares.NewAuthMiddleware(d.JWT)
	r.Use(authMW.Session())
	r.Use(middlewares.RequestLogger(log))

	if d.Cache == nil {
		d.Cache = cache.New(d.Cfg.CacheTTL())
	}

	rl := d.RateLimiter
	if rl == nil {
		rl = middlewares.NewRateLimiter(d.Cfg.RateLimitPerMinute, time.Minute)
	}
	limitByIP := rl.RateLimiterMiddleware(middlewares.KeyByIP)
	limitByUser := rl.RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	// health
	h := handlers.NewHealthHandler(d.Ready...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(d.Users, d.RefreshTokens, d.Jobs, d.JWT, d.Cfg)
	appsHandler := handlers.NewApplicationsHandler(d.Applications, d.Locker, d.Cfg.SubmitLockTTL(), d.Prom)
	dashboardHandler := handlers.NewDashboardHandler(d.Dashboard)
	usersHandler := handlers.NewUsersHandler(d.Users)
	programsHandler := handlers.NewProgramsHandler(d.Cache)
	jobsHandler := handlers.NewAdminJobsHandler(d.Jobs)

	r.POST("/register", limitByIP, authHandler.Register)
	r.POST("/login", limitByIP, authHandler.Login)

	authGroup := r.Group("/auth")
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/session", authHandler.Session)
	authGroup.POST("/verify-email", limitByIP, authHandler.RequestEmailVerification)
	authGroup.GET("/verify-email", authHandler.VerifyEmail)

	r.GET("/programs", programsHandler.Catalog)

	student := r.Group("/student", authMW.RequireRole(user.RoleStudent))
	student.POST("/application", limitByUser, appsHandler.Submit)
	student.GET("/status", appsHandler.MyApplications)

	admin := r.Group("/admin", authMW.RequireRole(user.RoleAdmin))
	admin.GET("/applications", appsHandler.AdminList)
	admin.PATCH("/applications", appsHandler.UpdateStatus)
	admin.GET("/dashboard", dashboardHandler.Get)
	admin.GET("/users", usersHandler.List)
	admin.GET("/jobs", jobsHandler.List)
	admin.GET("/jobs/:id", jobsHandler.GetByID)
	admin.POST("/jobs/:id/retry", jobsHandler.Retry)

	return r
}
