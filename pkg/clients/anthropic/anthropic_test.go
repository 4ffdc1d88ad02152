package anthropic

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

func TestParseAdvice(t *testing.T) {
	raw := `{
		"restock_recommendations": [
			{"medicine": "Paracetamol", "status": "Critical", "suggested_action": "Order 200 units", "reason": "High sales velocity"}
		],
		"expiry_alerts": [
			{"medicine": "Amoxicillin", "batch": "BN-7", "days_remaining": 12, "advice": "Discount by 20%"}
		]
	}`

	advice, err := parseAdvice(raw)
	require.NoError(t, err)
	require.Len(t, advice.RestockRecommendations, 1)
	assert.Equal(t, "Paracetamol", advice.RestockRecommendations[0].Medicine)
	assert.Equal(t, "Critical", advice.RestockRecommendations[0].Status)
	require.Len(t, advice.ExpiryAlerts, 1)
	assert.Equal(t, 12, advice.ExpiryAlerts[0].DaysRemaining)
}

func TestParseAdviceStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"restock_recommendations\": [], \"expiry_alerts\": []}\n```"

	advice, err := parseAdvice(raw)
	require.NoError(t, err)
	assert.Empty(t, advice.RestockRecommendations)
	assert.Empty(t, advice.ExpiryAlerts)
}

func TestParseAdviceRejectsGarbage(t *testing.T) {
	_, err := parseAdvice("sorry, I cannot help with that")
	require.Error(t, err)
}

func TestBuildPromptIncludesStockAndSales(t *testing.T) {
	snap := &models.Snapshot{
		Batches: []models.Batch{{
			Name:        "Paracetamol",
			BatchNumber: "BN-1",
			Quantity:    4,
			SafetyStock: 10,
			ExpiryDate:  time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		}},
		Sales: []models.SaleRecord{{
			OccurredAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			Lines: []models.SaleLine{{
				Name:            "Paracetamol",
				Quantity:        2,
				UnitPriceAtSale: decimal.NewFromInt(100),
			}},
		}},
		WindowDays: 7,
	}

	prompt := buildPrompt(snap)
	assert.Contains(t, prompt, "Paracetamol: 4 units")
	assert.Contains(t, prompt, "Batch: BN-1")
	assert.Contains(t, prompt, "Paracetamol x2")
	assert.Contains(t, prompt, "last 7 days")
}
