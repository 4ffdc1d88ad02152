package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	snap := &models.Snapshot{
		TakenAt:    now,
		WindowDays: 7,
		Batches: []models.Batch{
			{Name: "Paracetamol", Quantity: 4, SafetyStock: 10, ExpiryDate: now.AddDate(1, 0, 0)},
			{Name: "Amoxicillin", Quantity: 50, SafetyStock: 10, ExpiryDate: now.AddDate(0, 0, 12)},
			{Name: "Ibuprofen", Quantity: 30, SafetyStock: 10, ExpiryDate: now.AddDate(0, 6, 0)},
		},
		Sales: []models.SaleRecord{
			{
				TotalAmount: decimal.NewFromInt(300),
				Lines:       []models.SaleLine{{Quantity: 2}, {Quantity: 1}},
			},
			{
				TotalAmount: decimal.NewFromInt(150),
				Lines:       []models.SaleLine{{Quantity: 1}},
			},
		},
	}

	sum := summarize(snap)
	assert.Equal(t, 3, sum.BatchCount)
	assert.Equal(t, 1, sum.LowStockCount)
	assert.Equal(t, 1, sum.ExpiringSoon)
	assert.Equal(t, 4, sum.UnitsSold)
	assert.True(t, sum.Revenue.Equal(decimal.NewFromInt(450)))
}

func TestSummarizeEmptySnapshot(t *testing.T) {
	sum := summarize(&models.Snapshot{TakenAt: time.Now().UTC()})
	assert.Equal(t, 0, sum.BatchCount)
	assert.Equal(t, 0, sum.UnitsSold)
	assert.True(t, sum.Revenue.IsZero())
}
