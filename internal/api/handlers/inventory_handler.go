// backend-go/internal/api/handlers/inventory_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/andresuchdata/replenish/backend-go/internal/api/middleware"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/pipeline"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type InventoryService interface {
	RunInventoryOptimization(ctx context.Context, req service.InventoryOptimizationRequest) (*service.InventoryOptimizationResponse, error)
	GetInventoryParams(ctx context.Context, tenantID, skuNumber int64) (*domain.InventoryParamsRecord, error)
	RecordPrediction(ctx context.Context, prediction *domain.Prediction) error
	ListOptimizations(ctx context.Context, filter domain.InventoryOptimizationFilter) ([]domain.InventoryOptimization, error)
}

type BatchRunner interface {
	Run(ctx context.Context, tenantID int64, skus []int64) (*pipeline.BatchRun, error)
}

type InventoryHandler struct {
	inventoryService InventoryService
	batch            BatchRunner
}

func NewInventoryHandler(inventoryService InventoryService, batch BatchRunner) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, batch: batch}
}

type optimizeInventoryRequest struct {
	SKUNumber int64          `json:"sku_number" binding:"required"`
	Params    map[string]any `json:"inventory_params"`
}

// Optimize runs the reorder-policy optimisation for one SKU. Params, when
// present, override the ERP record entirely.
func (h *InventoryHandler) Optimize(c *gin.Context) {
	var body optimizeInventoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	req := service.InventoryOptimizationRequest{
		TenantID:  middleware.TenantID(c),
		SKUNumber: body.SKUNumber,
	}
	if body.Params != nil {
		params, err := optimizer.InventoryParamsFromMap(body.Params)
		if err != nil {
			respondError(c, err, "invalid inventory parameters")
			return
		}
		req.Params = &params
	}

	resp, err := h.inventoryService.RunInventoryOptimization(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to optimize inventory")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetParams returns the ERP cost parameters with estimated demand filled in.
func (h *InventoryHandler) GetParams(c *gin.Context) {
	sku, ok := parseOptionalInt64(c, "sku_number")
	if !ok || sku == nil {
		badQuery(c, "sku_number")
		return
	}

	params, err := h.inventoryService.GetInventoryParams(c.Request.Context(), middleware.TenantID(c), *sku)
	if err != nil {
		respondError(c, err, "failed to fetch inventory params")
		return
	}

	c.JSON(http.StatusOK, params)
}

func (h *InventoryHandler) ListOptimizations(c *gin.Context) {
	filter := domain.InventoryOptimizationFilter{
		TenantID:   middleware.TenantID(c),
		PageParams: parsePageParams(c),
	}

	var ok bool
	if filter.SKUNumber, ok = parseOptionalInt64(c, "sku_number"); !ok {
		badQuery(c, "sku_number")
		return
	}
	if filter.InventoryRecordID, ok = parseOptionalInt64(c, "inventory_record_id"); !ok {
		badQuery(c, "inventory_record_id")
		return
	}
	if filter.StartDate, ok = parseOptionalDate(c, "start_date"); !ok {
		badQuery(c, "start_date")
		return
	}
	if filter.EndDate, ok = parseOptionalDate(c, "end_date"); !ok {
		badQuery(c, "end_date")
		return
	}

	items, err := h.inventoryService.ListOptimizations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch inventory optimizations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *InventoryHandler) RecordPrediction(c *gin.Context) {
	var prediction domain.Prediction
	if err := c.ShouldBindJSON(&prediction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	prediction.ID = 0
	prediction.TenantID = middleware.TenantID(c)

	if err := h.inventoryService.RecordPrediction(c.Request.Context(), &prediction); err != nil {
		respondError(c, err, "failed to record prediction")
		return
	}

	c.JSON(http.StatusCreated, prediction)
}

type batchRequest struct {
	SKUNumbers []int64 `json:"sku_numbers" binding:"required,min=1"`
}

// RunBatch optimises several SKUs and reports per-SKU outcomes. Individual
// failures are part of the response body, not the status code.
func (h *InventoryHandler) RunBatch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	run, err := h.batch.Run(c.Request.Context(), middleware.TenantID(c), body.SKUNumbers)
	if err != nil {
		respondError(c, err, "batch optimization aborted")
		return
	}

	c.JSON(http.StatusOK, run)
}
