package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/admissionhub/internal/config"
	"github.com/geocoder89/admissionhub/internal/db"
	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/queue/worker"
	"github.com/geocoder89/admissionhub/internal/repo/postgres"
	"github.com/geocoder89/admissionhub/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env).With("service", "worker")
	slog.SetDefault(log)

	if cfg.Store == "memory" {
		log.Error("STORE=memory runs the worker inside the api process; nothing to do")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "admissionhub-worker", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.WorkerConcurrency+2))
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	deliveriesRepo := postgres.NewDeliveriesRepo(pool, prom)

	notifierTimeout := time.Duration(cfg.NotifierTimeoutMS) * time.Millisecond

	var inner notifications.Notifier
	if cfg.NotifierWebhookURL != "" {
		inner = notifications.NewWebhookNotifier(cfg.NotifierWebhookURL, notifierTimeout)
		log.Info("notifications go to webhook", "url", cfg.NotifierWebhookURL)
	} else {
		inner = notifications.NewLogNotifier(log)
	}

	notifier := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Timeout:          notifierTimeout,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Duration(cfg.WorkerPollMS) * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
		JobTimeout:    notifierTimeout + 2*time.Second,
		StaleLockTTL:  time.Duration(cfg.StaleJobLockSeconds) * time.Second,
	}, jobsRepo, deliveriesRepo, notifier, log).WithProm(prom)

	// jobs whose worker died mid-send go back to the queue
	sched := scheduler.New(log)
	if err := sched.Every(30*time.Second, "requeue_stale_jobs", w.RequeueStale); err != nil {
		log.Error("schedule requeue", "err", err)
		os.Exit(1)
	}
	sched.Start()

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(pool.Ping, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	_ = healthSrv.Shutdown(shutdownCtx)
	_ = shutdownTracer(shutdownCtx)

	log.Info("worker shutdown complete")
}
