// Package scheduler runs the periodic housekeeping of both processes (stale job
// requeue, cache and rate-limiter sweeps) on robfig/cron.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	c   *cron.Cron
	log *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	cl := cronLogger{log: log.With("component", "scheduler")}

	return &Scheduler{
		c:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log: log,
	}
}

// Every registers fn under name to run at a fixed interval. Each run gets its
// own timeout of one interval.
func (s *Scheduler) Every(interval time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.Warn("scheduled task failed", "task", name, "err", err)
		}
	})
	return err
}

// Cron registers fn on a standard five-field spec.
func (s *Scheduler) Cron(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			s.log.Warn("scheduled task failed", "task", name, "err", err)
		}
	})
	return err
}

func (s *Scheduler) Len() int { return len(s.c.Entries()) }

func (s *Scheduler) Start() { s.c.Start() }

// Stop waits for running tasks or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
