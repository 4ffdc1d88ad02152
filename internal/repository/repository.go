package repository

import (
	"context"
	"errors"
	"time"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateKey is returned when a write violates a uniqueness constraint:
// (name, batchNumber) for batches, idempotencyKey for sales.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrUnavailable is returned when the persistence layer is unreachable. The
// failed call committed nothing and is safe to retry wholesale.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the authoritative ledger handle injected into the services. It is
// explicitly constructed with an init/shutdown lifecycle; there is no
// ambient global instance.
type Store interface {
	// InsertBatch stores a new batch. ErrDuplicateKey when another batch
	// already uses the same (name, batchNumber) pair.
	InsertBatch(ctx context.Context, b *models.Batch) error
	// GetBatch returns a copy of the batch, or ErrNotFound.
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	// UpdateBatch replaces the stored batch fields.
	UpdateBatch(ctx context.Context, b *models.Batch) error
	// DeleteBatch removes a batch. Historical sales keep their snapshots.
	DeleteBatch(ctx context.Context, id string) error
	// ListBatches returns all batches ordered by name, then batch number.
	ListBatches(ctx context.Context) ([]models.Batch, error)

	// AdjustQuantity is the only mutator of batch quantity. Calls against
	// the same batch id serialize; distinct ids may proceed concurrently.
	// A negative delta that would take the quantity below zero fails with
	// *models.InsufficientStockError and changes nothing.
	AdjustQuantity(ctx context.Context, id string, delta int) (int, error)

	// ApplySale atomically validates and decrements stock for every line,
	// snapshots batch name/number into the lines, and persists the record
	// as synced. Either everything happens or nothing does. Returns
	// *models.BatchNotFoundError, *models.InsufficientStockError, or
	// ErrDuplicateKey when the idempotency key was already committed.
	ApplySale(ctx context.Context, sale *models.SaleRecord) error
	// GetSaleByKey looks a sale up by its idempotency key.
	GetSaleByKey(ctx context.Context, key string) (*models.SaleRecord, error)
	// ListSalesSince returns sales with OccurredAt at or after the given
	// time, ordered by occurrence.
	ListSalesSince(ctx context.Context, since time.Time) ([]models.SaleRecord, error)

	Close(ctx context.Context) error
}
