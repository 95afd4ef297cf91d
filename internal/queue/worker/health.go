package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency the worker needs to be ready (postgres).
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness, readiness, the in-process job tally and,
// when gatherer is set, Prometheus metrics.
func (w *Worker) HealthHandler(ping Pinger, gatherer prometheus.Gatherer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// readiness: loops are running and the queue store answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "db"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics/jobs", func(c *gin.Context) {
		c.JSON(http.StatusOK, w.metrics.Snapshot())
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

// RequeueStale is the scheduled sweep that returns jobs abandoned by a dead
// worker to the queue.
func (w *Worker) RequeueStale(ctx context.Context) error {
	n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.StaleLockTTL)
	if err != nil {
		return err
	}
	if n > 0 {
		w.metrics.AddRequeued(n)
		w.log.Warn("requeued stale jobs", "count", n)
	}
	return nil
}
