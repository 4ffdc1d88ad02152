package sync

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
)

func setup(t *testing.T) (*Reconciler, *memory.Store) {
	t.Helper()
	store := memory.NewStore(zaptest.NewLogger(t))
	applier := pos.NewService(store, zaptest.NewLogger(t))
	return NewReconciler(store, applier, zaptest.NewLogger(t)), store
}

func seedBatch(t *testing.T, store *memory.Store, id string, qty int) {
	t.Helper()
	require.NoError(t, store.InsertBatch(context.Background(), &models.Batch{
		ID:          id,
		Name:        "Medicine " + id,
		BatchNumber: "BN-" + id,
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
		Quantity:    qty,
		UnitPrice:   decimal.NewFromInt(100),
		SafetyStock: 10,
	}))
}

func queued(key, batchID string, qty int) models.SaleRecord {
	price := decimal.NewFromInt(100)
	return models.SaleRecord{
		IdempotencyKey: key,
		Lines:          []models.SaleLine{{BatchID: batchID, Quantity: qty, UnitPriceAtSale: price}},
		TotalAmount:    price.Mul(decimal.NewFromInt(int64(qty))),
		PaymentMethod:  models.PaymentCash,
		OccurredAt:     time.Now().UTC(),
		SyncState:      models.SyncPending,
	}
}

func TestReconcileExactlyOnce(t *testing.T) {
	// The same record retried across two calls applies once and decrements
	// stock exactly once.
	rec, store := setup(t)
	ctx := context.Background()
	seedBatch(t, store, "b1", 10)

	outcomes, err := rec.Reconcile(ctx, []models.SaleRecord{queued("k1", "b1", 2)})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.SyncOutcomeApplied, outcomes[0].Status)
	assert.NotEmpty(t, outcomes[0].SaleID)

	outcomes, err = rec.Reconcile(ctx, []models.SaleRecord{queued("k1", "b1", 2)})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.SyncOutcomeAlreadySynced, outcomes[0].Status)

	b, _ := store.GetBatch(ctx, "b1")
	assert.Equal(t, 8, b.Quantity, "k1 accounts for exactly 2 units, not 4")
}

func TestReconcileDuplicateWithinBatch(t *testing.T) {
	rec, store := setup(t)
	ctx := context.Background()
	seedBatch(t, store, "b1", 10)

	outcomes, err := rec.Reconcile(ctx, []models.SaleRecord{
		queued("k1", "b1", 2),
		queued("k1", "b1", 2),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, models.SyncOutcomeApplied, outcomes[0].Status)
	assert.Equal(t, models.SyncOutcomeAlreadySynced, outcomes[1].Status)

	b, _ := store.GetBatch(ctx, "b1")
	assert.Equal(t, 8, b.Quantity)
}

func TestReconcileRejectionDoesNotBlockSiblings(t *testing.T) {
	// Three records where the second overdraws: outcomes must be
	// [applied, rejected, applied] and the third still decrements.
	rec, store := setup(t)
	ctx := context.Background()
	seedBatch(t, store, "b1", 5)
	seedBatch(t, store, "b2", 5)

	outcomes, err := rec.Reconcile(ctx, []models.SaleRecord{
		queued("k1", "b1", 2),
		queued("k2", "b1", 99),
		queued("k3", "b2", 1),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, models.SyncOutcomeApplied, outcomes[0].Status)
	assert.Equal(t, models.SyncOutcomeRejected, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Reason, "insufficient stock")
	assert.Equal(t, models.SyncOutcomeApplied, outcomes[2].Status)

	b1, _ := store.GetBatch(ctx, "b1")
	b2, _ := store.GetBatch(ctx, "b2")
	assert.Equal(t, 3, b1.Quantity)
	assert.Equal(t, 4, b2.Quantity)
}

func TestReconcileRejectsMissingKey(t *testing.T) {
	rec, store := setup(t)
	ctx := context.Background()
	seedBatch(t, store, "b1", 5)

	r := queued("", "b1", 1)
	outcomes, err := rec.Reconcile(ctx, []models.SaleRecord{r})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.SyncOutcomeRejected, outcomes[0].Status)

	b, _ := store.GetBatch(ctx, "b1")
	assert.Equal(t, 5, b.Quantity)
}

func TestReconcileRejectsMissingBatch(t *testing.T) {
	rec, _ := setup(t)
	ctx := context.Background()

	outcomes, err := rec.Reconcile(ctx, []models.SaleRecord{queued("k1", "ghost", 1)})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.SyncOutcomeRejected, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, "batch not found")
}

func TestReconcileCancellationIsResumable(t *testing.T) {
	rec, store := setup(t)
	seedBatch(t, store, "b1", 10)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := rec.Reconcile(cancelled, []models.SaleRecord{queued("k1", "b1", 2)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)

	// The same input set replays cleanly once the caller retries.
	outcomes, err = rec.Reconcile(context.Background(), []models.SaleRecord{queued("k1", "b1", 2)})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.SyncOutcomeApplied, outcomes[0].Status)
}
