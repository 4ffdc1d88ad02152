package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository"
	"github.com/theb0imanuu/PharmaCheck/internal/service/pos"
	syncsvc "github.com/theb0imanuu/PharmaCheck/internal/service/sync"
)

// SaleHandler serves the online sale path and the offline sync endpoint.
type SaleHandler struct {
	pos        *pos.Service
	reconciler *syncsvc.Reconciler
	logger     *zap.Logger
}

// NewSaleHandler constructs the HTTP handler adapter for sales.
func NewSaleHandler(posSvc *pos.Service, reconciler *syncsvc.Reconciler, logger *zap.Logger) *SaleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleHandler{pos: posSvc, reconciler: reconciler, logger: logger}
}

type saleLineRequest struct {
	BatchID         string          `json:"batchId" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required,gt=0"`
	UnitPriceAtSale decimal.Decimal `json:"unitPriceAtSale"`
}

type submitSaleRequest struct {
	Lines         []saleLineRequest `json:"lines" binding:"required,min=1,dive"`
	TotalAmount   decimal.Decimal   `json:"totalAmount"`
	PaymentMethod string            `json:"paymentMethod"`
}

type queuedSaleRequest struct {
	IdempotencyKey string            `json:"idempotencyKey" binding:"required"`
	Lines          []saleLineRequest `json:"lines" binding:"required,min=1,dive"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	PaymentMethod  string            `json:"paymentMethod"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

type syncRequest struct {
	Sales []queuedSaleRequest `json:"sales" binding:"required"`
}

func toLines(reqs []saleLineRequest) []models.SaleLine {
	lines := make([]models.SaleLine, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, models.SaleLine{
			BatchID:         r.BatchID,
			Quantity:        r.Quantity,
			UnitPriceAtSale: r.UnitPriceAtSale,
		})
	}
	return lines
}

// Submit handles the online, synchronous sale path.
func (h *SaleHandler) Submit(c *gin.Context) {
	var req submitSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sale payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sale, err := h.pos.Submit(c.Request.Context(), toLines(req.Lines),
		models.PaymentMethod(req.PaymentMethod), req.TotalAmount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// Sync reconciles a batch of offline-queued sales and returns one outcome
// per record.
func (h *SaleHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sync payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if len(req.Sales) == 0 {
		c.JSON(http.StatusOK, gin.H{"outcomes": []models.SyncOutcome{}})
		return
	}

	records := make([]models.SaleRecord, 0, len(req.Sales))
	for _, r := range req.Sales {
		records = append(records, models.SaleRecord{
			IdempotencyKey: r.IdempotencyKey,
			Lines:          toLines(r.Lines),
			TotalAmount:    r.TotalAmount,
			PaymentMethod:  models.PaymentMethod(r.PaymentMethod),
			OccurredAt:     r.OccurredAt,
			SyncState:      models.SyncPending,
		})
	}

	outcomes, err := h.reconciler.Reconcile(c.Request.Context(), records)
	if err != nil {
		// Partial progress stays committed; the client may retry the whole
		// batch, already-applied keys will resolve to already_synced.
		h.logger.Error("reconciliation aborted", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "reconciliation aborted, retry later",
			"outcomes": outcomes,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func (h *SaleHandler) fail(c *gin.Context, err error) {
	var notFound *models.BatchNotFoundError
	var insufficient *models.InsufficientStockError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "batch not found",
			"batchId": notFound.BatchID,
		})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient stock",
			"batchId":   insufficient.BatchID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.Is(err, pos.ErrNoLines), errors.Is(err, pos.ErrInvalidQuantity), errors.Is(err, pos.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrUnavailable):
		h.logger.Error("storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
	default:
		h.logger.Error("sale request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
