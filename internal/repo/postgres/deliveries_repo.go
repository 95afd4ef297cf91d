package postgres

import (
	"context"

	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveriesRepo records which outbox jobs already reached the notifier so a
// retried job doesn't e-mail the student twice.
type DeliveriesRepo struct {
	base
}

func NewDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *DeliveriesRepo {
	return &DeliveriesRepo{base{pool: pool, prom: prom}}
}

func (r *DeliveriesRepo) Delivered(ctx context.Context, jobID string) (bool, error) {
	var ok bool

	err := r.observe("deliveries.exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM notification_deliveries WHERE job_id = $1)`, jobID).Scan(&ok)
	})

	return ok, err
}

func (r *DeliveriesRepo) MarkDelivered(ctx context.Context, jobID, kind, recipient string) error {
	return r.observe("deliveries.mark", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO notification_deliveries (job_id, kind, recipient, sent_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (job_id) DO NOTHING
		`, jobID, kind, recipient)
		return err
	})
}
