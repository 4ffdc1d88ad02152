package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/memory"
)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(zaptest.NewLogger(t))
	return NewService(store, zaptest.NewLogger(t)), store
}

func TestAddBatchDefaultsSafetyStock(t *testing.T) {
	svc, _ := setup(t)

	b, err := svc.AddBatch(context.Background(), &models.Batch{
		Name:        "Paracetamol",
		BatchNumber: "BN-1",
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
		Quantity:    20,
		UnitPrice:   decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, models.DefaultSafetyStock, b.SafetyStock)
	assert.False(t, b.CreatedAt.IsZero())
}

func TestAddBatchValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddBatch(ctx, &models.Batch{BatchNumber: "BN-1"})
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol"})
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidBatch)
}

func TestAddBatchRejectsDuplicateNamePair(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: 9})
	require.ErrorIs(t, err, repository.ErrDuplicateKey)
}

func TestUpdateBatchPartial(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: 5, UnitPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(120)
	updated, err := svc.UpdateBatch(ctx, created.ID, BatchUpdate{UnitPrice: &newPrice})
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(newPrice))
	assert.Equal(t, "Paracetamol", updated.Name, "unset fields stay unchanged")
	assert.Equal(t, 5, updated.Quantity)
}

func TestRestock(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: 5})
	require.NoError(t, err)

	qty, err := svc.Restock(ctx, created.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 25, qty)

	_, err = svc.Restock(ctx, created.ID, 0)
	require.ErrorIs(t, err, ErrInvalidRestock)

	_, err = svc.Restock(ctx, created.ID, -5)
	require.ErrorIs(t, err, ErrInvalidRestock)
}

func TestSnapshotWindow(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	created, err := svc.AddBatch(ctx, &models.Batch{Name: "Paracetamol", BatchNumber: "BN-1", Quantity: 50, UnitPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	old := &models.SaleRecord{
		ID:             "s-old",
		IdempotencyKey: "k-old",
		Lines:          []models.SaleLine{{BatchID: created.ID, Quantity: 1, UnitPriceAtSale: decimal.NewFromInt(100)}},
		TotalAmount:    decimal.NewFromInt(100),
		PaymentMethod:  models.PaymentCash,
		OccurredAt:     time.Now().UTC().AddDate(0, 0, -30),
	}
	require.NoError(t, store.ApplySale(ctx, old))

	recent := &models.SaleRecord{
		ID:             "s-new",
		IdempotencyKey: "k-new",
		Lines:          []models.SaleLine{{BatchID: created.ID, Quantity: 2, UnitPriceAtSale: decimal.NewFromInt(100)}},
		TotalAmount:    decimal.NewFromInt(200),
		PaymentMethod:  models.PaymentCash,
		OccurredAt:     time.Now().UTC(),
	}
	require.NoError(t, store.ApplySale(ctx, recent))

	snap, err := svc.Snapshot(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.WindowDays)
	require.Len(t, snap.Batches, 1)
	require.Len(t, snap.Sales, 1, "sales outside the trailing window are excluded")
	assert.Equal(t, "k-new", snap.Sales[0].IdempotencyKey)
}
