package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/job"
	"github.com/geocoder89/admissionhub/internal/jobs"
	"github.com/geocoder89/admissionhub/internal/notifications"
)

// errPermanent marks failures a retry can't fix (bad payload, unknown type).
var errPermanent = errors.New("permanent job failure")

// ProcessOne claims and runs at most one job. processed is false when the
// queue had nothing runnable.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	w.metrics.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := w.now()
	log := w.log.With("job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1)

	execCtx, cancelExec := context.WithTimeout(ctx, w.cfg.JobTimeout)
	err = w.execute(execCtx, j)
	cancelExec()

	elapsed := w.now().Sub(start)
	w.metrics.ObserveDuration(elapsed)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observe(j.Type, result, elapsed)
		log.Warn("job failed", "err", err, "result", result)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.IncDone()
	w.observe(j.Type, "done", elapsed)
	log.Info("job done", "duration_ms", elapsed.Milliseconds())

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	msg, err := messageFor(payload)
	if err != nil {
		return err
	}

	sent, err := w.deliveries.Delivered(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("check delivery: %w", err)
	}
	if sent {
		// a previous attempt sent it but died before MarkDone
		return nil
	}

	if err := w.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind, err)
	}

	if err := w.deliveries.MarkDelivered(ctx, j.ID, string(msg.Kind), msg.To); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}

	return nil
}

func messageFor(payload any) (notifications.Message, error) {
	switch p := payload.(type) {
	case jobs.SubmissionReceiptPayload:
		return notifications.SubmissionReceipt(p.Email, p.Name, p.Program, p.ApplicationID), nil
	case jobs.DecisionNoticePayload:
		return notifications.Decision(p.Email, p.Name, p.Program, p.Status), nil
	case jobs.VerifyEmailPayload:
		return notifications.VerifyEmail(p.Email, p.Name, p.Link), nil
	default:
		return notifications.Message{}, fmt.Errorf("%w: no message for %T", errPermanent, payload)
	}
}

// handleFailure reschedules with backoff, or dead-letters once attempts run
// out or the error is permanent. It returns the result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	if errors.Is(cause, errPermanent) || j.Attempts+1 >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "err", err)
		}
		w.metrics.IncFailed()
		w.metrics.IncDeadLettered()
		return "failed"
	}

	runAt := w.now().Add(w.backoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.Error("reschedule", "job_id", j.ID, "err", err)
	}
	w.metrics.IncRetried()
	return "retry"
}

func (w *Worker) observe(jobType, result string, d time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
}
