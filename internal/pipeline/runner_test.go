package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOptimizer struct {
	mu       sync.Mutex
	calls    map[int64]int
	failures map[int64][]error
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeOptimizer) RunInventoryOptimization(ctx context.Context, req service.InventoryOptimizationRequest) (*service.InventoryOptimizationResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int64]int{}
	}
	f.calls[req.SKUNumber]++
	if errs := f.failures[req.SKUNumber]; len(errs) > 0 {
		err := errs[0]
		f.failures[req.SKUNumber] = errs[1:]
		return nil, err
	}
	return &service.InventoryOptimizationResponse{
		InventoryOptimization: &domain.InventoryOptimization{TenantID: req.TenantID, SKUNumber: req.SKUNumber},
	}, nil
}

func testConfig(workers int) PipelineConfig {
	return PipelineConfig{WorkerCount: workers, RetryAttempts: 1, RetryBackoff: time.Millisecond}
}

func TestRunnerRunIsolatesFailures(t *testing.T) {
	opt := &fakeOptimizer{failures: map[int64][]error{
		2: {&optimizer.InvalidParameterError{Param: "lambda", Reason: "must be greater than zero"}},
	}}
	o := NewRunner(opt, testConfig(2))

	run, err := o.Run(context.Background(), 5, []int64{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, run.CompletedAt)
	require.Len(t, run.Items, 3)

	assert.Equal(t, domain.RunStatusSucceeded, run.Items[0].Status)
	assert.Equal(t, domain.RunStatusFailed, run.Items[1].Status)
	assert.Contains(t, run.Items[1].Error, "lambda")
	assert.Equal(t, 1, run.Items[1].Attempts)
	assert.Equal(t, domain.RunStatusSucceeded, run.Items[2].Status)
	assert.Equal(t, int64(5), run.Items[2].Response.InventoryOptimization.TenantID)

	assert.True(t, run.Failed())
	assert.Equal(t, 2, run.Counts()[domain.RunStatusSucceeded])
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	opt := &fakeOptimizer{failures: map[int64][]error{
		1: {errors.New("connection reset")},
	}}
	o := NewRunner(opt, testConfig(1))

	run, err := o.Run(context.Background(), 5, []int64{1})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSucceeded, run.Items[0].Status)
	assert.Equal(t, 2, run.Items[0].Attempts)
	assert.Equal(t, 2, opt.calls[1])
}

func TestRunnerDeduplicatesSKUs(t *testing.T) {
	opt := &fakeOptimizer{}
	o := NewRunner(opt, testConfig(4))

	run, err := o.Run(context.Background(), 5, []int64{7, 7, 8})
	require.NoError(t, err)
	assert.Len(t, run.Items, 2)
	assert.Equal(t, 1, opt.calls[7])
}

func TestRunnerRespectsWorkerLimit(t *testing.T) {
	opt := &fakeOptimizer{delay: 5 * time.Millisecond}
	o := NewRunner(opt, testConfig(2))

	_, err := o.Run(context.Background(), 5, []int64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.LessOrEqual(t, opt.peak.Load(), int32(2))
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewRunner(&fakeOptimizer{}, testConfig(2))
	run, err := o.Run(ctx, 5, []int64{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Equal(t, 2, run.Counts()[domain.RunStatusPending])
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(optimizer.ErrInvalidParameter))
	assert.False(t, retryable(service.ErrNoDemandData))
	assert.False(t, retryable(service.ErrOptimizationTimeout))
	assert.True(t, retryable(errors.New("connection refused")))
}
