package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

// Persistence documents. Money travels as Decimal128 so the database keeps
// exact values; the domain layer stays on shopspring decimals.

type batchDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	BatchNumber string               `bson:"batchNumber"`
	ExpiryDate  time.Time            `bson:"expiryDate"`
	Quantity    int                  `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unitPrice"`
	Category    string               `bson:"category,omitempty"`
	SafetyStock int                  `bson:"safetyStock"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type saleLineDoc struct {
	BatchID         string               `bson:"batchId"`
	Name            string               `bson:"name,omitempty"`
	BatchNumber     string               `bson:"batchNumber,omitempty"`
	Quantity        int                  `bson:"quantity"`
	UnitPriceAtSale primitive.Decimal128 `bson:"unitPriceAtSale"`
}

type saleDoc struct {
	ID             string               `bson:"_id"`
	IdempotencyKey string               `bson:"idempotencyKey"`
	Lines          []saleLineDoc        `bson:"lines"`
	TotalAmount    primitive.Decimal128 `bson:"totalAmount"`
	PaymentMethod  string               `bson:"paymentMethod"`
	OccurredAt     time.Time            `bson:"occurredAt"`
	SyncState      string               `bson:"syncState"`
	CreatedAt      time.Time            `bson:"createdAt"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return out, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", d, err)
	}
	return out, nil
}

func toBatchDoc(b *models.Batch) (*batchDoc, error) {
	price, err := toDecimal128(b.UnitPrice)
	if err != nil {
		return nil, err
	}
	return &batchDoc{
		ID:          b.ID,
		Name:        b.Name,
		BatchNumber: b.BatchNumber,
		ExpiryDate:  b.ExpiryDate,
		Quantity:    b.Quantity,
		UnitPrice:   price,
		Category:    b.Category,
		SafetyStock: b.SafetyStock,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}, nil
}

func (d *batchDoc) toModel() (*models.Batch, error) {
	price, err := fromDecimal128(d.UnitPrice)
	if err != nil {
		return nil, err
	}
	return &models.Batch{
		ID:          d.ID,
		Name:        d.Name,
		BatchNumber: d.BatchNumber,
		ExpiryDate:  d.ExpiryDate,
		Quantity:    d.Quantity,
		UnitPrice:   price,
		Category:    d.Category,
		SafetyStock: d.SafetyStock,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func toSaleDoc(s *models.SaleRecord) (*saleDoc, error) {
	total, err := toDecimal128(s.TotalAmount)
	if err != nil {
		return nil, err
	}
	lines := make([]saleLineDoc, 0, len(s.Lines))
	for _, l := range s.Lines {
		price, err := toDecimal128(l.UnitPriceAtSale)
		if err != nil {
			return nil, err
		}
		lines = append(lines, saleLineDoc{
			BatchID:         l.BatchID,
			Name:            l.Name,
			BatchNumber:     l.BatchNumber,
			Quantity:        l.Quantity,
			UnitPriceAtSale: price,
		})
	}
	return &saleDoc{
		ID:             s.ID,
		IdempotencyKey: s.IdempotencyKey,
		Lines:          lines,
		TotalAmount:    total,
		PaymentMethod:  string(s.PaymentMethod),
		OccurredAt:     s.OccurredAt,
		SyncState:      string(s.SyncState),
		CreatedAt:      s.CreatedAt,
	}, nil
}

func (d *saleDoc) toModel() (*models.SaleRecord, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return nil, err
	}
	lines := make([]models.SaleLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		price, err := fromDecimal128(l.UnitPriceAtSale)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.SaleLine{
			BatchID:         l.BatchID,
			Name:            l.Name,
			BatchNumber:     l.BatchNumber,
			Quantity:        l.Quantity,
			UnitPriceAtSale: price,
		})
	}
	return &models.SaleRecord{
		ID:             d.ID,
		IdempotencyKey: d.IdempotencyKey,
		Lines:          lines,
		TotalAmount:    total,
		PaymentMethod:  models.PaymentMethod(d.PaymentMethod),
		OccurredAt:     d.OccurredAt,
		SyncState:      models.SyncState(d.SyncState),
		CreatedAt:      d.CreatedAt,
	}, nil
}
