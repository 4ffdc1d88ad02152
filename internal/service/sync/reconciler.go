// Package sync implements reconciliation of offline sale queues: replaying
// at-least-once delivered records against authoritative stock while applying
// each logical sale exactly once.
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
)

// Applier is the sale applier contract the reconciler drives.
type Applier interface {
	Apply(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error)
}

// Reconciler replays client-queued sales, deduplicating on idempotency key.
type Reconciler struct {
	store   repository.Store
	applier Applier
	logger  *zap.Logger
}

// NewReconciler wires a reconciler over the given store and applier.
func NewReconciler(store repository.Store, applier Applier, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, applier: applier, logger: logger}
}

// Reconcile processes records in input order and returns one outcome per
// processed record. Records are independent: a rejection never blocks or
// rolls back its siblings. Cancellation aborts between records; everything
// committed so far stays committed, and re-invoking with the same input is
// safe because already-applied keys resolve to already_synced.
//
// A storage outage also aborts the pass: outcomes collected so far are
// returned alongside the error, and the whole call may be retried later.
func (r *Reconciler) Reconcile(ctx context.Context, records []models.SaleRecord) ([]models.SyncOutcome, error) {
	outcomes := make([]models.SyncOutcome, 0, len(records))

	for i := range records {
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		default:
		}

		rec := records[i]
		if rec.IdempotencyKey == "" {
			outcomes = append(outcomes, models.SyncOutcome{
				Status: models.SyncOutcomeRejected,
				Reason: "missing idempotency key",
			})
			continue
		}

		existing, err := r.store.GetSaleByKey(ctx, rec.IdempotencyKey)
		if err == nil {
			outcomes = append(outcomes, models.SyncOutcome{
				IdempotencyKey: rec.IdempotencyKey,
				Status:         models.SyncOutcomeAlreadySynced,
				SaleID:         existing.ID,
			})
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return outcomes, fmt.Errorf("lookup key %s: %w", rec.IdempotencyKey, err)
		}

		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		applied, err := r.applier.Apply(ctx, &rec)
		switch {
		case err == nil:
			outcomes = append(outcomes, models.SyncOutcome{
				IdempotencyKey: rec.IdempotencyKey,
				Status:         models.SyncOutcomeApplied,
				SaleID:         applied.ID,
			})
		case errors.Is(err, repository.ErrDuplicateKey):
			// Lost a race with a concurrent submission of the same key.
			// The sale is committed, just not by us.
			outcomes = append(outcomes, models.SyncOutcome{
				IdempotencyKey: rec.IdempotencyKey,
				Status:         models.SyncOutcomeAlreadySynced,
			})
		case errors.Is(err, repository.ErrUnavailable):
			return outcomes, err
		default:
			r.logger.Warn("sale rejected",
				zap.String("idempotency_key", rec.IdempotencyKey),
				zap.Error(err))
			outcomes = append(outcomes, models.SyncOutcome{
				IdempotencyKey: rec.IdempotencyKey,
				Status:         models.SyncOutcomeRejected,
				Reason:         err.Error(),
			})
		}
	}

	r.logger.Info("reconciliation pass finished",
		zap.Int("records", len(records)),
		zap.Int("outcomes", len(outcomes)))
	return outcomes, nil
}
