// Package pos implements the sale applier: the single entry point through
// which completed sales reach the stock ledger.
package pos

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

// ErrNoLines is returned for a sale without line items.
var ErrNoLines = errors.New("sale has no line items")

// ErrInvalidQuantity is returned when a line requests a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("line quantity must be positive")

// ErrInvalidPayment is returned for an unknown payment method.
var ErrInvalidPayment = errors.New("unknown payment method")

// Service applies sales against the authoritative stock store.
type Service struct {
	store  repository.Store
	logger *zap.Logger
}

// NewService wires a new sale applier.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Apply validates the sale and commits it as one atomic unit: every line's
// stock decrement and the record write happen together or not at all. The
// store is left untouched on any failure, so a rejected sale can be
// corrected and resubmitted without cleanup.
func (s *Service) Apply(ctx context.Context, sale *models.SaleRecord) (*models.SaleRecord, error) {
	if len(sale.Lines) == 0 {
		return nil, ErrNoLines
	}
	for _, l := range sale.Lines {
		if l.BatchID == "" {
			return nil, fmt.Errorf("%w: missing batch id", ErrInvalidQuantity)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: batch %s requested %d", ErrInvalidQuantity, l.BatchID, l.Quantity)
		}
	}
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = models.PaymentCash
	}
	if !sale.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayment, sale.PaymentMethod)
	}
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = time.Now().UTC()
	}

	// Client-supplied totals are stored as-is; drift against the line sum
	// is surfaced in the logs, not rejected.
	if lineTotal := sale.LineTotal(); !sale.TotalAmount.Equal(lineTotal) {
		s.logger.Warn("sale total differs from line sum",
			zap.String("idempotency_key", sale.IdempotencyKey),
			zap.String("stated_total", sale.TotalAmount.String()),
			zap.String("line_total", lineTotal.String()))
	}

	if err := s.store.ApplySale(ctx, sale); err != nil {
		return nil, err
	}

	s.logger.Info("sale applied",
		zap.String("sale_id", sale.ID),
		zap.String("idempotency_key", sale.IdempotencyKey),
		zap.Int("lines", len(sale.Lines)),
		zap.String("total", sale.TotalAmount.String()))
	return sale, nil
}

// Submit is the online point-of-sale path: it stamps the sale with a server
// id, a fresh idempotency key and the current time, then applies it.
func (s *Service) Submit(ctx context.Context, lines []models.SaleLine, payment models.PaymentMethod, total decimal.Decimal) (*models.SaleRecord, error) {
	sale := &models.SaleRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: uuid.NewString(),
		Lines:          lines,
		TotalAmount:    total,
		PaymentMethod:  payment,
		OccurredAt:     time.Now().UTC(),
		SyncState:      models.SyncPending,
	}
	return s.Apply(ctx, sale)
}
