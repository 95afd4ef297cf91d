package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/admissionhub/internal/auth"
	"github.com/geocoder89/admissionhub/internal/cache"
	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/db"
	httpx "github.com/geocoder89/admissionhub/internal/http"
	"github.com/geocoder89/admissionhub/internal/http/handlers"
	"github.com/geocoder89/admissionhub/internal/http/middlewares"
	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/queue/worker"
	"github.com/geocoder89/admissionhub/internal/queue/redisclient"
	"github.com/geocoder89/admissionhub/internal/repo/memory"
	"github.com/geocoder89/admissionhub/internal/repo/postgres"
	"github.com/geocoder89/admissionhub/internal/scheduler"
	"github.com/geocoder89/admissionhub/internal/submitlock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type tokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelBoot()

	shutdownTracer, err := observability.InitTracer(bootCtx, "admissionhub-api", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.VerifyTTL())
	rl := middlewares.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	catalogCache := cache.New(cfg.CacheTTL())

	deps := httpx.Deps{
		Log:         log,
		Cfg:         cfg,
		JWT:         jwtManager,
		Cache:       catalogCache,
		Prom:        prom,
		Gatherer:    reg,
		RateLimiter: rl,
	}

	var closers []func()
	var tokens tokenPurger

	// the in-memory outbox can only be drained from this process
	var embedded *worker.Worker

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		deps.Users = store.Users()
		deps.RefreshTokens = store.RefreshTokens()
		tokens = store.RefreshTokens()
		deps.Applications = store.Applications()
		deps.Dashboard = store.Dashboard()
		deps.Jobs = store.Jobs()

		embedded = worker.New(worker.Config{
			WorkerID:    "api-embedded",
			Concurrency: 1,
		}, store.Jobs(), store.Deliveries(), notifications.NewLogNotifier(log), log).WithProm(prom)

	default:
		pool, err := db.NewPool(bootCtx, cfg.DBURL, 10)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		closers = append(closers, pool.Close)

		if err := db.EnsureSchema(bootCtx, pool); err != nil {
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		refreshRepo := postgres.NewRefreshTokensRepo(pool, prom)
		deps.RefreshTokens = refreshRepo
		tokens = refreshRepo
		deps.Applications = postgres.NewApplicationsRepo(pool, prom)
		deps.Dashboard = postgres.NewDashboardRepo(pool, prom)
		deps.Jobs = postgres.NewJobsRepo(pool, prom)
		deps.Ready = append(deps.Ready, handlers.Pinger{Name: "db", Ping: pool.Ping})
	}

	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.ConfigFrom(cfg))
		closers = append(closers, func() { _ = rc.Close() })
		deps.Locker = rc.Locker()
		deps.Ready = append(deps.Ready, handlers.Pinger{Name: "redis", Ping: rc.Ping})
	} else {
		deps.Locker = submitlock.NewMemory()
	}

	if err := db.EnsureAdminUser(bootCtx, deps.Users, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// housekeeping
	sched := scheduler.New(log)
	_ = sched.Every(time.Minute, "cache_cleanup", func(context.Context) error {
		if n := catalogCache.Cleanup(); n > 0 {
			log.Debug("cache entries evicted", "count", n)
		}
		return nil
	})
	_ = sched.Every(time.Minute, "rate_limit_sweep", func(context.Context) error {
		rl.Sweep()
		return nil
	})
	_ = sched.Cron("30 3 * * *", "refresh_token_purge", func(ctx context.Context) error {
		n, err := tokens.PurgeExpired(ctx, time.Now().UTC().Add(-24*time.Hour))
		if err == nil && n > 0 {
			log.Info("expired refresh tokens purged", "count", n)
		}
		return err
	})
	sched.Start()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	if embedded != nil {
		go func() {
			defer close(workerDone)
			if err := embedded.Run(workerCtx); err != nil {
				log.Error("embedded worker stopped", "err", err)
			}
		}()
	} else {
		close(workerDone)
	}

	// set up routers with the deps
	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		sched.Stop(ctx)

		stopWorker()
		<-workerDone

		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	for _, c := range closers {
		c()
	}
}
