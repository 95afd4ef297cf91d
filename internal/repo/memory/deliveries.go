package memory

import "context"

type DeliveriesRepo struct {
	s *Store
}

func (r *DeliveriesRepo) Delivered(_ context.Context, jobID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.deliveries[jobID]
	return ok, nil
}

func (r *DeliveriesRepo) MarkDelivered(_ context.Context, jobID, kind, _ string) error {
	r.s.mu.Lock()
	if _, ok := r.s.deliveries[jobID]; !ok {
		r.s.deliveries[jobID] = kind
	}
	r.s.mu.Unlock()
	return nil
}
