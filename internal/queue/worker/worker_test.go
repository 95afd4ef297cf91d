package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/jobs"
	"github.com/geocoder89/admissionhub/internal/notifications"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/geocoder89/admissionhub/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(store *memory.Store, n notifications.Notifier) *Worker {
	w := New(Config{WorkerID: "w-test", PollInterval: 10 * time.Millisecond}, store.Jobs(), store.Deliveries(), n, quietLog())
	// retries become runnable immediately
	w.backoff = func(int) time.Duration { return -time.Second }
	return w
}

func enqueueReceipt(t *testing.T, store *memory.Store, maxAttempts int) job.Job {
	t.Helper()
	req, err := jobs.NewCreateRequest(jobs.JobSubmissionReceipt, jobs.SubmissionReceiptPayload{
		ApplicationID: "app-1",
		StudentID:     "stu-1",
		Email:         "ada@example.com",
		Name:          "Ada",
		Program:       "Computer Science",
		SubmittedAt:   time.Now().UTC(),
	}, "app-1")
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	req.MaxAttempts = maxAttempts

	j, err := store.Jobs().Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	store := memory.NewStore()
	w := newTestWorker(store, &recordingNotifier{})

	processed, err := w.ProcessOne(context.Background())
	if err != nil || processed {
		t.Fatalf("expected nothing processed, got processed=%v err=%v", processed, err)
	}
}

func TestProcessOne_DeliversAndMarksDone(t *testing.T) {
	store := memory.NewStore()
	n := &recordingNotifier{}
	w := newTestWorker(store, n)
	j := enqueueReceipt(t, store, 3)

	processed, err := w.ProcessOne(context.Background())
	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if n.count() != 1 {
		t.Fatalf("expected 1 message, got %d", n.count())
	}
	msg := n.sent[0]
	if msg.Kind != notifications.KindSubmissionReceipt || msg.To != "ada@example.com" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	got, _ := store.Jobs().GetByID(context.Background(), j.ID)
	if got.Status != job.StatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}

	snap := w.Metrics().Snapshot()
	if snap.Claimed != 1 || snap.Done != 1 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}
}

func TestProcessOne_AlreadyDeliveredIsNotResent(t *testing.T) {
	store := memory.NewStore()
	n := &recordingNotifier{}
	w := newTestWorker(store, n)
	j := enqueueReceipt(t, store, 3)

	// a previous run sent it and crashed before MarkDone
	_ = store.Deliveries().MarkDelivered(context.Background(), j.ID, string(notifications.KindSubmissionReceipt), "ada@example.com")

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if n.count() != 0 {
		t.Fatalf("expected no resend, got %d", n.count())
	}

	got, _ := store.Jobs().GetByID(context.Background(), j.ID)
	if got.Status != job.StatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
}

func TestProcessOne_RetriesThenDeadLetters(t *testing.T) {
	store := memory.NewStore()
	n := &recordingNotifier{err: errors.New("smtp down")}
	w := newTestWorker(store, n)
	j := enqueueReceipt(t, store, 2)
	ctx := context.Background()

	_, _ = w.ProcessOne(ctx)
	got, _ := store.Jobs().GetByID(ctx, j.ID)
	if got.Status != job.StatusPending || got.Attempts != 1 || got.LastError == nil {
		t.Fatalf("expected rescheduled job, got %+v", got)
	}

	_, _ = w.ProcessOne(ctx)
	got, _ = store.Jobs().GetByID(ctx, j.ID)
	if got.Status != job.StatusFailed || got.Attempts != 2 {
		t.Fatalf("expected dead-lettered job, got %+v", got)
	}

	snap := w.Metrics().Snapshot()
	if snap.Retried != 1 || snap.DeadLettered != 1 {
		t.Fatalf("unexpected metrics: %+v", snap)
	}

	// nothing left to claim
	if processed, _ := w.ProcessOne(ctx); processed {
		t.Fatal("failed job must not be claimed again")
	}
}

func TestProcessOne_BadPayloadFailsImmediately(t *testing.T) {
	store := memory.NewStore()
	w := newTestWorker(store, &recordingNotifier{})
	ctx := context.Background()

	j, err := store.Jobs().Create(ctx, job.CreateRequest{
		Type:        string(jobs.JobDecisionNotice),
		Payload:     []byte(`{"applicationId":"a1"}`),
		MaxAttempts: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, _ = w.ProcessOne(ctx)

	got, _ := store.Jobs().GetByID(ctx, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("expected failed on first attempt, got %+v", got)
	}
}

func TestProcessOne_RecordsPrometheusResult(t *testing.T) {
	store := memory.NewStore()
	prom := observability.NewTestProm()
	w := newTestWorker(store, &recordingNotifier{}).WithProm(prom)
	enqueueReceipt(t, store, 3)

	_, _ = w.ProcessOne(context.Background())

	c, err := prom.JobResults.GetMetricWithLabelValues(string(jobs.JobSubmissionReceipt), "done")
	if err != nil {
		t.Fatalf("metric: %v", err)
	}
	if v := counterValue(t, c); v != 1 {
		t.Fatalf("expected 1 done result, got %v", v)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	store := memory.NewStore()
	n := &recordingNotifier{}
	w := newTestWorker(store, n)
	enqueueReceipt(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for n.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !w.Ready() {
		t.Fatal("worker should report ready while running")
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if n.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", n.count())
	}
	if w.Ready() {
		t.Fatal("worker should not be ready after shutdown")
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	w := newTestWorker(store, &recordingNotifier{})

	pingErr := errors.New("db down")
	var failPing bool
	h := w.HealthHandler(func(context.Context) error {
		if failPing {
			return pingErr
		}
		return nil
	}, nil)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before start: %d", rec.Code)
	}

	w.setReady(true)
	if rec := get("/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz when running: %d", rec.Code)
	}

	failPing = true
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with db down: %d", rec.Code)
	}

	w.Metrics().IncClaimed()
	rec := get("/metrics/jobs")
	var snap observability.JobMetricsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Claimed != 1 {
		t.Fatalf("expected claimed=1, got %+v", snap)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 2 * time.Second},
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{3, 16 * time.Second},
		{20, 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	if d := ExponentialBackoff(0); d < 2*time.Second || d >= 2*time.Second+250*time.Millisecond {
		t.Fatalf("jitter out of range: %v", d)
	}
}

func TestRequeueStale(t *testing.T) {
	store := memory.NewStore()
	w := newTestWorker(store, &recordingNotifier{})
	w.cfg.StaleLockTTL = time.Nanosecond
	ctx := context.Background()

	j := enqueueReceipt(t, store, 3)
	if _, err := store.Jobs().ClaimNext(ctx, "dead-worker"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if err := w.RequeueStale(ctx); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	got, _ := store.Jobs().GetByID(ctx, j.ID)
	if got.Status != job.StatusPending || got.LockedBy != nil {
		t.Fatalf("expected job back in queue, got %+v", got)
	}
	if snap := w.Metrics().Snapshot(); snap.Requeued != 1 {
		t.Fatalf("expected requeued=1, got %+v", snap)
	}
}
