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
	"github.com/theb0imanuu/PharmaCheck/internal/service/inventory"
)

// InventoryHandler serves the batch management endpoints.
type InventoryHandler struct {
	svc    *inventory.Service
	logger *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter for inventory.
func NewInventoryHandler(svc *inventory.Service, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

type createBatchRequest struct {
	Name        string          `json:"name" binding:"required"`
	BatchNumber string          `json:"batchNumber" binding:"required"`
	ExpiryDate  time.Time       `json:"expiryDate" binding:"required"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Category    string          `json:"category"`
	SafetyStock int             `json:"safetyStock"`
}

type updateBatchRequest struct {
	Name      *string          `json:"name"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Quantity  *int             `json:"quantity"`
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// List returns all batches ordered by name.
func (h *InventoryHandler) List(c *gin.Context) {
	batches, err := h.svc.ListBatches(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batches)
}

// Create adds a new medicine batch.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.svc.AddBatch(c.Request.Context(), &models.Batch{
		Name:        req.Name,
		BatchNumber: req.BatchNumber,
		ExpiryDate:  req.ExpiryDate,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Category:    req.Category,
		SafetyStock: req.SafetyStock,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// Update applies an operator correction to a batch.
func (h *InventoryHandler) Update(c *gin.Context) {
	var req updateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, err := h.svc.UpdateBatch(c.Request.Context(), c.Param("id"), inventory.BatchUpdate{
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Restock adds stock to an existing batch.
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid restock payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	newQty, err := h.svc.Restock(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "quantity": newQty})
}

// Delete removes a batch. Historical sales keep their snapshots.
func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	case errors.Is(err, repository.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{"error": "batch with this name and batch number already exists"})
	case errors.Is(err, inventory.ErrInvalidBatch), errors.Is(err, inventory.ErrInvalidRestock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrUnavailable):
		h.logger.Error("storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
	default:
		h.logger.Error("inventory request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
