package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/rs/zerolog/log"
)

// Worker optimises a single SKU with retries for transient failures
type Worker struct {
	optimizer InventoryOptimizer
	config    PipelineConfig
}

// NewWorker creates a new pipeline worker
func NewWorker(opt InventoryOptimizer, config PipelineConfig) *Worker {
	return &Worker{optimizer: opt, config: config}
}

// Process fills item in place. It only returns an error when ctx is done.
func (w *Worker) Process(ctx context.Context, tenantID int64, item *ItemResult) error {
	attempts := 1 + w.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		item.Attempts = attempt

		resp, err := w.optimizer.RunInventoryOptimization(ctx, service.InventoryOptimizationRequest{
			TenantID:  tenantID,
			SKUNumber: item.SKUNumber,
		})
		if err == nil {
			w.finish(item, domain.RunStatusSucceeded, resp, nil)
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			break
		}
		log.Warn().
			Err(err).
			Int64("sku_number", item.SKUNumber).
			Int("attempt", attempt).
			Msg("pipeline: retrying sku")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.RetryBackoff):
		}
	}

	w.finish(item, domain.RunStatusFailed, nil, lastErr)
	log.Error().Err(lastErr).Int64("sku_number", item.SKUNumber).Msg("pipeline: sku failed")
	return nil
}

func (w *Worker) finish(item *ItemResult, status domain.RunStatus, resp *service.InventoryOptimizationResponse, err error) {
	now := time.Now()
	item.Status = status
	item.Response = resp
	item.CompletedAt = &now
	if err != nil {
		item.Error = err.Error()
	}
}

// retryable is false for failures that another attempt cannot fix.
func retryable(err error) bool {
	switch {
	case errors.Is(err, optimizer.ErrInvalidParameter),
		errors.Is(err, optimizer.ErrSolverConvergence),
		errors.Is(err, service.ErrOptimizationTimeout),
		errors.Is(err, service.ErrERPUnavailable),
		errors.Is(err, context.Canceled),
		service.IsNotFound(err):
		return false
	}
	return true
}
