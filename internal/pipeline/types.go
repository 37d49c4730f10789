package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/google/uuid"
)

// InventoryOptimizer runs one SKU's reorder-policy optimisation.
type InventoryOptimizer interface {
	RunInventoryOptimization(ctx context.Context, req service.InventoryOptimizationRequest) (*service.InventoryOptimizationResponse, error)
}

// PipelineConfig holds configuration for a batch run
type PipelineConfig struct {
	WorkerCount   int           // Number of SKUs optimised concurrently
	RetryAttempts int           // Extra attempts for transient failures
	RetryBackoff  time.Duration // Backoff duration between retries
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		WorkerCount:   4,
		RetryAttempts: 1,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// ItemResult tracks the processing of a single SKU
type ItemResult struct {
	SKUNumber   int64                                  `json:"sku_number"`
	Status      domain.RunStatus                       `json:"status"`
	Attempts    int                                    `json:"attempts"`
	Error       string                                 `json:"error,omitempty"`
	Response    *service.InventoryOptimizationResponse `json:"response,omitempty"`
	CompletedAt *time.Time                             `json:"completed_at,omitempty"`
}

// BatchRun tracks a single execution over a tenant's SKU list
type BatchRun struct {
	ID          uuid.UUID    `json:"id"`
	TenantID    int64        `json:"tenant_id"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Items       []ItemResult `json:"items"`
}

// Counts returns how many items ended in each status.
func (r *BatchRun) Counts() map[domain.RunStatus]int {
	counts := make(map[domain.RunStatus]int)
	for _, item := range r.Items {
		counts[item.Status]++
	}
	return counts
}

// Failed reports whether any item failed.
func (r *BatchRun) Failed() bool {
	return r.Counts()[domain.RunStatusFailed] > 0
}
