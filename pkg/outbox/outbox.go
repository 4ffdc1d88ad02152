// Package outbox defines the client-side durable queue contract: an
// ordered, at-least-once store of not-yet-confirmed sales keyed by their
// client-generated idempotency key. The reconciler's dedup is what turns
// at-least-once delivery into effectively-once application, so the queue
// itself never needs exactly-once semantics.
package outbox

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

// ErrMissingKey is returned when a record is enqueued without an
// idempotency key.
var ErrMissingKey = errors.New("record has no idempotency key")

// Queue is a durable ordered store of pending sales. Enqueueing the same
// key twice is a no-op, so a producer may safely retry.
type Queue interface {
	Enqueue(rec models.SaleRecord) error
	// Unsynced returns pending records in enqueue order.
	Unsynced() []models.SaleRecord
	MarkSynced(key string)
	// Remove drops a record entirely, e.g. a sale cancelled by the
	// operator after rejection.
	Remove(key string)
	Len() int
}

// MemoryQueue is an in-process Queue, the stand-in for the device-local
// store during tests and the embedded deployment.
type MemoryQueue struct {
	mu    sync.Mutex
	order []string
	items map[string]*models.SaleRecord
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{items: map[string]*models.SaleRecord{}}
}

// Enqueue appends a pending sale. Re-enqueueing a known key is a no-op.
func (q *MemoryQueue) Enqueue(rec models.SaleRecord) error {
	if rec.IdempotencyKey == "" {
		return ErrMissingKey
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[rec.IdempotencyKey]; ok {
		return nil
	}
	rec.SyncState = models.SyncPending
	q.items[rec.IdempotencyKey] = &rec
	q.order = append(q.order, rec.IdempotencyKey)
	return nil
}

// Unsynced returns pending records in enqueue order.
func (q *MemoryQueue) Unsynced() []models.SaleRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.SaleRecord, 0, len(q.order))
	for _, key := range q.order {
		rec := q.items[key]
		if rec != nil && rec.SyncState == models.SyncPending {
			out = append(out, *rec)
		}
	}
	return out
}

// MarkSynced flips a record to synced. Unknown keys are ignored.
func (q *MemoryQueue) MarkSynced(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if rec, ok := q.items[key]; ok {
		rec.SyncState = models.SyncSynced
	}
}

// Remove drops a record entirely.
func (q *MemoryQueue) Remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[key]; !ok {
		return
	}
	delete(q.items, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Len reports how many records the queue holds, synced or not.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Reconciler is the server-side consumer the queue drains into.
type Reconciler interface {
	Reconcile(ctx context.Context, records []models.SaleRecord) ([]models.SyncOutcome, error)
}

// Replay drives the entire unsynced subset of the queue through the
// reconciler and marks applied or already-synced records. Rejected records
// stay pending for operator intervention. On error the outcomes collected
// so far are still marked, so a later Replay resumes where this one
// stopped.
func Replay(ctx context.Context, q Queue, r Reconciler, logger *zap.Logger) ([]models.SyncOutcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pending := q.Unsynced()
	if len(pending) == 0 {
		return nil, nil
	}

	outcomes, err := r.Reconcile(ctx, pending)
	for _, o := range outcomes {
		switch o.Status {
		case models.SyncOutcomeApplied, models.SyncOutcomeAlreadySynced:
			q.MarkSynced(o.IdempotencyKey)
		case models.SyncOutcomeRejected:
			logger.Warn("queued sale rejected",
				zap.String("idempotency_key", o.IdempotencyKey),
				zap.String("reason", o.Reason))
		}
	}
	if err != nil {
		return outcomes, err
	}

	logger.Info("outbox replay finished",
		zap.Int("replayed", len(pending)),
		zap.Int("outcomes", len(outcomes)))
	return outcomes, nil
}
