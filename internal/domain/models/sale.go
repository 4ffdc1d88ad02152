package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a sale was settled. The wire values match the
// upstream API, including the space in "Mobile Money".
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "Cash"
	PaymentMobileMoney PaymentMethod = "Mobile Money"
	PaymentCard        PaymentMethod = "Card"
	PaymentOther       PaymentMethod = "Other"
)

// Valid reports whether the payment method is one of the known values.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentMobileMoney, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// SyncState tracks whether a sale has been durably committed server-side.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
)

// SaleLine is one line item of a sale. Name and BatchNumber are snapshots
// captured at apply time so the record stays auditable after the batch is
// deleted.
type SaleLine struct {
	BatchID         string          `json:"batchId"`
	Name            string          `json:"name,omitempty"`
	BatchNumber     string          `json:"batchNumber,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPriceAtSale decimal.Decimal `json:"unitPriceAtSale"`
}

// SaleRecord is a completed point-of-sale transaction. It is created
// client-side as pending with a locally generated idempotency key, and
// becomes immutable once synced.
type SaleRecord struct {
	ID             string          `json:"id"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Lines          []SaleLine      `json:"lines"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	OccurredAt     time.Time       `json:"occurredAt"`
	SyncState      SyncState       `json:"syncState"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// LineTotal recomputes the sale total from its line items. TotalAmount is
// stored as the client supplied it; this is only used to surface drift.
func (s *SaleRecord) LineTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.UnitPriceAtSale.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
