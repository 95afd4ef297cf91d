package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsTasksAndSurvivesPanics(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(log)

	var ran, failed atomic.Int32

	if err := s.Every(time.Second, "count", func(context.Context) error {
		ran.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Every: %v", err)
	}
	if err := s.Every(time.Second, "fail", func(context.Context) error {
		failed.Add(1)
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("Every: %v", err)
	}
	if err := s.Every(time.Second, "panic", func(context.Context) error {
		panic("kaboom")
	}); err != nil {
		t.Fatalf("Every: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", s.Len())
	}

	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for ran.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if ran.Load() == 0 || failed.Load() == 0 {
		t.Fatalf("tasks did not run: ran=%d failed=%d", ran.Load(), failed.Load())
	}
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := New(nil)
	if err := s.Cron("not a spec", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected an error for an invalid spec")
	}
}
