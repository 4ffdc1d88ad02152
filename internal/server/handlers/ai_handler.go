package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/service/inventory"
	"github.com/theb0imanuu/PharmaCheck/pkg/clients/anthropic"
)

// AIHandler exposes the restock advisor. The core only projects a snapshot
// and relays the advisor's output.
type AIHandler struct {
	inv        *inventory.Service
	client     anthropic.Client
	windowDays int
	logger     *zap.Logger
}

// NewAIHandler constructs the advisor endpoint. client may be nil when no
// API key is configured.
func NewAIHandler(inv *inventory.Service, client anthropic.Client, windowDays int, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{inv: inv, client: client, windowDays: windowDays, logger: logger}
}

// Predict returns restock recommendations for current stock and recent
// sales.
func (h *AIHandler) Predict(c *gin.Context) {
	if h.client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "restock advisor is not configured"})
		return
	}

	snap, err := h.inv.Snapshot(c.Request.Context(), h.windowDays)
	if err != nil {
		h.logger.Error("failed to take snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	advice, err := h.client.RestockAdvice(c.Request.Context(), snap)
	if err != nil {
		h.logger.Error("advisor call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate predictions"})
		return
	}
	c.JSON(http.StatusOK, advice)
}
