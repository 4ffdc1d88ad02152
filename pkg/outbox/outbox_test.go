package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/memory"
	"github.com/theb0imanuu/PharmaCheck/internal/service/pos"
	syncsvc "github.com/theb0imanuu/PharmaCheck/internal/service/sync"
)

func queued(key, batchID string, qty int) models.SaleRecord {
	price := decimal.NewFromInt(100)
	return models.SaleRecord{
		IdempotencyKey: key,
		Lines:          []models.SaleLine{{BatchID: batchID, Quantity: qty, UnitPriceAtSale: price}},
		TotalAmount:    price.Mul(decimal.NewFromInt(int64(qty))),
		PaymentMethod:  models.PaymentCash,
		OccurredAt:     time.Now().UTC(),
	}
}

func TestEnqueueOrderAndIdempotence(t *testing.T) {
	q := NewMemoryQueue()

	require.NoError(t, q.Enqueue(queued("k1", "b1", 1)))
	require.NoError(t, q.Enqueue(queued("k2", "b1", 1)))
	require.NoError(t, q.Enqueue(queued("k1", "b1", 1)), "producer retry is a no-op")
	require.ErrorIs(t, q.Enqueue(models.SaleRecord{}), ErrMissingKey)

	pending := q.Unsynced()
	require.Len(t, pending, 2)
	assert.Equal(t, "k1", pending[0].IdempotencyKey, "enqueue order preserved")
	assert.Equal(t, "k2", pending[1].IdempotencyKey)
	assert.Equal(t, 2, q.Len())
}

func TestMarkSyncedAndRemove(t *testing.T) {
	q := NewMemoryQueue()
	require.NoError(t, q.Enqueue(queued("k1", "b1", 1)))
	require.NoError(t, q.Enqueue(queued("k2", "b1", 1)))

	q.MarkSynced("k1")
	pending := q.Unsynced()
	require.Len(t, pending, 1)
	assert.Equal(t, "k2", pending[0].IdempotencyKey)

	q.Remove("k2")
	assert.Empty(t, q.Unsynced())
	assert.Equal(t, 1, q.Len(), "synced records are retained")
}

func TestReplayDrainsQueueExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(zaptest.NewLogger(t))
	applier := pos.NewService(store, zaptest.NewLogger(t))
	reconciler := syncsvc.NewReconciler(store, applier, zaptest.NewLogger(t))

	require.NoError(t, store.InsertBatch(ctx, &models.Batch{
		ID:          "b1",
		Name:        "Paracetamol",
		BatchNumber: "BN-1",
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
		Quantity:    10,
		UnitPrice:   decimal.NewFromInt(100),
		SafetyStock: 10,
	}))

	q := NewMemoryQueue()
	require.NoError(t, q.Enqueue(queued("k1", "b1", 2)))
	require.NoError(t, q.Enqueue(queued("k2", "ghost", 1)))

	outcomes, err := Replay(ctx, q, reconciler, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, models.SyncOutcomeApplied, outcomes[0].Status)
	assert.Equal(t, models.SyncOutcomeRejected, outcomes[1].Status)

	// The rejected record stays pending for operator intervention; the
	// applied one does not replay again.
	pending := q.Unsynced()
	require.Len(t, pending, 1)
	assert.Equal(t, "k2", pending[0].IdempotencyKey)

	// Replaying the survivor changes nothing on the applied key's stock.
	_, err = Replay(ctx, q, reconciler, zaptest.NewLogger(t))
	require.NoError(t, err)

	b, getErr := store.GetBatch(ctx, "b1")
	require.NoError(t, getErr)
	assert.Equal(t, 8, b.Quantity, "k1 decremented exactly once across replays")
}

func TestReplayEmptyQueue(t *testing.T) {
	q := NewMemoryQueue()
	store := memory.NewStore(zaptest.NewLogger(t))
	applier := pos.NewService(store, zaptest.NewLogger(t))
	reconciler := syncsvc.NewReconciler(store, applier, zaptest.NewLogger(t))

	outcomes, err := Replay(context.Background(), q, reconciler, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, outcomes)
}
