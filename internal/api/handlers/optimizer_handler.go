package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

// OptimizerHandler exposes the solvers directly. Nothing is read from or
// written to storage.
type OptimizerHandler struct {
	inventory *optimizer.InventoryOptimizer
	routing   *optimizer.RoutingOptimizer
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// NewOptimizerHandler builds the handler. A positive timeout bounds every
// solve on top of the request context.
func NewOptimizerHandler(inventory *optimizer.InventoryOptimizer, routing *optimizer.RoutingOptimizer, timeout time.Duration, m *metrics.Metrics) *OptimizerHandler {
	if inventory == nil {
		inventory = &optimizer.InventoryOptimizer{}
	}
	if routing == nil {
		routing = &optimizer.RoutingOptimizer{}
	}
	return &OptimizerHandler{inventory: inventory, routing: routing, timeout: timeout, metrics: m}
}

type demandRequest struct {
	Predictions []optimizer.PredictionRecord `json:"predictions"`
}

// EstimateDemand fits (lambda, sigma) to the posted predictions.
func (h *OptimizerHandler) EstimateDemand(c *gin.Context) {
	var body demandRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params, ok := optimizer.EstimateDemandParameters(body.Predictions)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no predictions supplied"})
		return
	}

	c.JSON(http.StatusOK, params)
}

func (h *OptimizerHandler) OptimizeInventory(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params, err := optimizer.InventoryParamsFromMap(body)
	if err != nil {
		respondError(c, err, "invalid inventory parameters")
		return
	}
	params.Source = optimizer.SourceCustom

	ctx, cancel := h.solveContext(c)
	defer cancel()

	start := time.Now()
	result, err := h.inventory.Optimize(ctx, params)
	err = deadlineToTimeout(err)
	var cost float64
	if result != nil {
		cost = result.TotalCost
	}
	h.metrics.RecordOptimization(metrics.KindInventory, outcome(err), time.Since(start), cost)
	if err != nil {
		respondError(c, err, "failed to optimize inventory")
		return
	}

	c.JSON(http.StatusOK, result)
}

type routingRequest struct {
	Model     *optimizer.RoutingDataModel `json:"model"`
	Locations []optimizer.Location        `json:"locations"`
	Routes    []optimizer.Route           `json:"routes"`
	Vehicles  []optimizer.Vehicle         `json:"vehicles"`
}

// OptimizeRouting accepts either a prebuilt model or raw network data.
func (h *OptimizerHandler) OptimizeRouting(c *gin.Context) {
	var body routingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	model := body.Model
	if model == nil {
		var err error
		model, err = optimizer.BuildRoutingDataModel(body.Locations, body.Routes, body.Vehicles)
		if err != nil {
			respondError(c, err, "failed to build routing data model")
			return
		}
	}

	ctx, cancel := h.solveContext(c)
	defer cancel()

	start := time.Now()
	result, err := h.routing.Optimize(ctx, model)
	err = deadlineToTimeout(err)
	var cost float64
	if result != nil {
		cost = result.TotalCost
	}
	h.metrics.RecordOptimization(metrics.KindRouting, outcome(err), time.Since(start), cost)
	if err != nil {
		respondError(c, err, "failed to optimize distribution routing")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_cost":    result.TotalCost,
		"results":       result.Results,
		"location_data": model.LocationData,
	})
}

func (h *OptimizerHandler) solveContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

func deadlineToTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrOptimizationTimeout
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, optimizer.ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, optimizer.ErrInvalidParameter), errors.Is(err, optimizer.ErrNoDepotFound):
		return metrics.OutcomeInvalid
	case errors.Is(err, service.ErrOptimizationTimeout):
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeFailure
}
