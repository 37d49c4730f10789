package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Runner runs inventory optimisation over a tenant's SKU list.
type Runner struct {
	cfg   PipelineConfig
	makeW func(opt InventoryOptimizer, cfg PipelineConfig) *Worker
	opt   InventoryOptimizer
}

// NewRunner creates a new Runner.
func NewRunner(opt InventoryOptimizer, cfg PipelineConfig) *Runner {
	return &Runner{
		cfg:   cfg,
		makeW: NewWorker,
		opt:   opt,
	}
}

// Run optimises every distinct SKU, at most WorkerCount at a time. A failed
// SKU is recorded on its item and does not stop the others; only
// cancellation of ctx aborts the batch, in which case the partial run is
// returned along with the context error.
func (r *Runner) Run(ctx context.Context, tenantID int64, skus []int64) (*BatchRun, error) {
	run := &BatchRun{
		ID:        uuid.New(),
		TenantID:  tenantID,
		StartedAt: time.Now(),
		Items:     make([]ItemResult, 0, len(skus)),
	}

	seen := make(map[int64]bool, len(skus))
	for _, sku := range skus {
		if seen[sku] {
			continue
		}
		seen[sku] = true
		run.Items = append(run.Items, ItemResult{SKUNumber: sku, Status: domain.RunStatusPending})
	}

	log.Info().
		Str("run_id", run.ID.String()).
		Int64("tenant_id", tenantID).
		Int("skus", len(run.Items)).
		Msg("pipeline: starting batch")

	workerCount := r.cfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	worker := r.makeW(r.opt, r.cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)
	for i := range run.Items {
		item := &run.Items[i]
		g.Go(func() error {
			return worker.Process(gctx, tenantID, item)
		})
	}
	err := g.Wait()

	now := time.Now()
	run.CompletedAt = &now

	counts := run.Counts()
	log.Info().
		Str("run_id", run.ID.String()).
		Int("succeeded", counts[domain.RunStatusSucceeded]).
		Int("failed", counts[domain.RunStatusFailed]).
		Int("pending", counts[domain.RunStatusPending]).
		Dur("elapsed", now.Sub(run.StartedAt)).
		Msg("pipeline: batch finished")

	return run, err
}
