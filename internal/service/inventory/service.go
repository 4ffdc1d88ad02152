// Package inventory exposes batch management and read paths over the stock
// store: CRUD, restocking through the shared adjust primitive, and the
// bounded-window snapshot consumed by the restock advisor.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
)

// ErrInvalidBatch is returned when a batch fails validation.
var ErrInvalidBatch = errors.New("invalid batch")

// ErrInvalidRestock is returned for a non-positive restock quantity.
var ErrInvalidRestock = errors.New("restock quantity must be positive")

// BatchUpdate carries the mutable fields of a batch; nil means unchanged.
type BatchUpdate struct {
	Name      *string
	UnitPrice *decimal.Decimal
	Quantity  *int
}

// Service provides batch management on top of the ledger store.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService wires a new inventory service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// AddBatch validates and stores a new medicine batch. SafetyStock defaults
// when unset.
func (s *Service) AddBatch(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBatch)
	}
	if b.BatchNumber == "" {
		return nil, fmt.Errorf("%w: batch number is required", ErrInvalidBatch)
	}
	if b.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidBatch)
	}
	if b.SafetyStock < 0 {
		return nil, fmt.Errorf("%w: safety stock must not be negative", ErrInvalidBatch)
	}
	if b.SafetyStock == 0 {
		b.SafetyStock = models.DefaultSafetyStock
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.store.InsertBatch(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("batch added",
		zap.String("batch_id", b.ID),
		zap.String("name", b.Name),
		zap.String("batch_number", b.BatchNumber),
		zap.Int("quantity", b.Quantity))
	return b, nil
}

// GetBatch returns one batch by id.
func (s *Service) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	return s.store.GetBatch(ctx, id)
}

// UpdateBatch applies a partial correction to a batch. Quantity replacement
// here is an operator correction path; sales never go through it.
func (s *Service) UpdateBatch(ctx context.Context, id string, upd BatchUpdate) (*models.Batch, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil && *upd.Name != "" {
		b.Name = *upd.Name
	}
	if upd.UnitPrice != nil {
		b.UnitPrice = *upd.UnitPrice
	}
	if upd.Quantity != nil {
		if *upd.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidBatch)
		}
		b.Quantity = *upd.Quantity
	}

	if err := s.store.UpdateBatch(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("batch updated", zap.String("batch_id", id))
	return b, nil
}

// DeleteBatch removes a batch. Historical sales keep their snapshots.
func (s *Service) DeleteBatch(ctx context.Context, id string) error {
	if err := s.store.DeleteBatch(ctx, id); err != nil {
		return err
	}
	s.logger.Info("batch deleted", zap.String("batch_id", id))
	return nil
}

// Restock adds stock through the same adjust primitive sales decrement
// through, so the per-batch serialization contract covers both directions.
func (s *Service) Restock(ctx context.Context, id string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidRestock
	}
	newQty, err := s.store.AdjustQuantity(ctx, id, qty)
	if err != nil {
		return 0, err
	}
	s.logger.Info("batch restocked",
		zap.String("batch_id", id),
		zap.Int("added", qty),
		zap.Int("new_quantity", newQty))
	return newQty, nil
}

// ListBatches returns all batches ordered by name.
func (s *Service) ListBatches(ctx context.Context) ([]models.Batch, error) {
	return s.store.ListBatches(ctx)
}

// Snapshot returns current stock plus sales inside the trailing window. It
// is a read-only projection; consumers never mutate through it.
func (s *Service) Snapshot(ctx context.Context, windowDays int) (*models.Snapshot, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -windowDays)

	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.store.ListSalesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Batches:    batches,
		Sales:      sales,
		WindowDays: windowDays,
		TakenAt:    now,
	}, nil
}
