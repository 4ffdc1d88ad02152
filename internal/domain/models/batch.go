package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSafetyStock is applied to batches created without an explicit
// reorder threshold.
const DefaultSafetyStock = 10

// Batch is a tracked quantity of one medicine lot, identified by name and
// batch number. Quantity is only ever mutated through the stock store's
// adjust primitive.
type Batch struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BatchNumber string          `json:"batchNumber"`
	ExpiryDate  time.Time       `json:"expiryDate"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Category    string          `json:"category,omitempty"`
	SafetyStock int             `json:"safetyStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LowStock reports whether the batch has fallen to or below its reorder
// threshold.
func (b *Batch) LowStock() bool {
	return b.Quantity <= b.SafetyStock
}

// ExpiresWithin reports whether the batch expires inside the given window.
func (b *Batch) ExpiresWithin(d time.Duration, now time.Time) bool {
	return b.ExpiryDate.Before(now.Add(d))
}
