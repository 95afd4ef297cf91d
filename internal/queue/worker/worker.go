// Package worker drains the notification outbox: it claims jobs, turns their
// payloads into messages and hands them to a Notifier.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/geocoder89/admissionhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// DeliveriesRepository makes sends idempotent across retries and requeues.
type DeliveriesRepository interface {
	Delivered(ctx context.Context, jobID string) (bool, error)
	MarkDelivered(ctx context.Context, jobID, kind, recipient string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	JobTimeout    time.Duration
	StaleLockTTL  time.Duration
}

type Worker struct {
	cfg        Config
	repo       JobsRepository
	deliveries DeliveriesRepository
	notifier   notifications.Notifier
	metrics    *observability.JobMetrics
	prom       *observability.Prom
	log        *slog.Logger

	now     func() time.Time
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, deliveries DeliveriesRepository, notifier notifications.Notifier, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	if cfg.StaleLockTTL <= 0 {
		cfg.StaleLockTTL = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:        cfg,
		repo:       repo,
		deliveries: deliveries,
		notifier:   notifier,
		metrics:    observability.NewJobMetrics(),
		log:        log.With("worker_id", cfg.WorkerID),
		now:        func() time.Time { return time.Now().UTC() },
		backoff:    ExponentialBackoff,
	}
}

// WithProm records job results in Prometheus as well as the in-process tally.
func (w *Worker) WithProm(p *observability.Prom) *Worker {
	w.prom = p
	return w
}

func (w *Worker) Metrics() *observability.JobMetrics { return w.metrics }

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run polls with cfg.Concurrency loops until ctx is cancelled, then waits up
// to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	// jobs keep their own context so a shutdown doesn't cut a send in half
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, jobCtx)
		}()
	}

	w.log.Info("worker started", "concurrency", w.cfg.Concurrency, "poll_ms", w.cfg.PollInterval.Milliseconds())

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		cancelJobs()
		<-done
		return errors.New("worker shutdown grace exceeded")
	}
}

func (w *Worker) loop(ctx, jobCtx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain while there is work, then go back to polling
		for ctx.Err() == nil {
			processed, err := w.ProcessOne(jobCtx)
			if err != nil {
				w.log.Error("process job", "err", err)
				break
			}
			if !processed {
				break
			}
		}
	}
}
