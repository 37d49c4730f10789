package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
)

var (
	// ErrNoDemandData means no predictions exist for the SKU, even after
	// asking the forecaster for one.
	ErrNoDemandData = errors.New("no demand data available for sku")
	// ErrOptimizationTimeout is returned when a solver exceeds the configured
	// per-call limit.
	ErrOptimizationTimeout = errors.New("optimization timed out")
	// ErrERPUnavailable is returned when ERP data is needed but no client is
	// configured.
	ErrERPUnavailable = errors.New("erp integration is not configured")
)

type solveResult[T any] struct {
	value T
	err   error
}

// solveWithTimeout runs fn on its own goroutine with a context that carries
// the per-call limit. The solvers stop at their next node or start once that
// context is done, so an abandoned solve winds down shortly after the limit.
func solveWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan solveResult[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- solveResult[T]{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return zero, ErrOptimizationTimeout
		}
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrOptimizationTimeout
		}
		return zero, ctx.Err()
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, optimizer.ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, optimizer.ErrInvalidParameter), errors.Is(err, optimizer.ErrNoDepotFound):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrOptimizationTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailure
	}
}
