package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/erp"
	"github.com/andresuchdata/replenish/backend-go/internal/metrics"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptimizerConfig() config.OptimizerConfig {
	return config.OptimizerConfig{
		MaxEvaluations:    20000,
		MaxNodes:          5000,
		TimeoutSeconds:    30,
		RecentWindowHours: 10,
		BatchConcurrency:  2,
	}
}

type inventoryFixture struct {
	erp         *fakeERP
	forecaster  *fakeForecaster
	predictions *fakePredictionRepo
	store       *fakeInventoryRepo
	metrics     *metrics.Metrics
	svc         *InventoryService
}

func newInventoryFixture(t *testing.T, demandCache cache.DemandCache) *inventoryFixture {
	t.Helper()
	f := &inventoryFixture{
		erp:        &fakeERP{record: erpRecord()},
		forecaster: &fakeForecaster{value: 100},
		predictions: &fakePredictionRepo{items: []domain.Prediction{
			{TenantID: 1, SKUNumber: 7, PredictedValue: 90},
			{TenantID: 1, SKUNumber: 7, PredictedValue: 110},
		}},
		store:   &fakeInventoryRepo{},
		metrics: metrics.New(),
	}
	f.svc = NewInventoryService(InventoryServiceDeps{
		ERP:           f.erp,
		Forecaster:    f.forecaster,
		Predictions:   f.predictions,
		Optimizations: f.store,
		Cache:         demandCache,
		Metrics:       f.metrics,
	}, testOptimizerConfig())
	return f
}

func TestRunInventoryOptimizationFromERP(t *testing.T) {
	f := newInventoryFixture(t, nil)

	resp, err := f.svc.RunInventoryOptimization(context.Background(), InventoryOptimizationRequest{TenantID: 1, SKUNumber: 7})
	require.NoError(t, err)

	assert.Equal(t, optimizer.SourceERP, resp.InventoryParams.Source)
	assert.InDelta(t, 100, resp.InventoryParams.Lambda, 1e-9)
	assert.InDelta(t, 10, resp.InventoryParams.Sigma, 1e-9)

	require.Len(t, f.store.stored, 1)
	rec := f.store.stored[0]
	assert.Equal(t, int64(1), rec.TenantID)
	assert.Equal(t, int64(7), rec.SKUNumber)
	require.NotNil(t, rec.InventoryRecordID)
	assert.Equal(t, int64(42), *rec.InventoryRecordID)
	assert.False(t, rec.IsCustom)
	assert.Equal(t, resp.Result.OptimizedValues.Q, rec.OrderQuantityQ)
	assert.Equal(t, resp.Result.TotalCost, rec.TotalCost)
	assert.InDelta(t, resp.Result.OrderFrequency(), rec.OrderFrequency, 1e-12)
	assert.Equal(t, 10*time.Hour, f.store.window)
	assert.Zero(t, f.forecaster.calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OptimizationsTotal.WithLabelValues(metrics.KindInventory, metrics.OutcomeSuccess)))
}

func TestRunInventoryOptimizationCustomParams(t *testing.T) {
	f := newInventoryFixture(t, nil)
	params := optimizer.InventoryParams{Lambda: 100, Sigma: 10, T: 1, K: 50, P: 20, I: 0.02, C: 30, FTL: 40, TR: 100}

	resp, err := f.svc.RunInventoryOptimization(context.Background(), InventoryOptimizationRequest{TenantID: 1, SKUNumber: 9, Params: &params})
	require.NoError(t, err)

	assert.Equal(t, optimizer.SourceCustom, resp.InventoryParams.Source)
	assert.Zero(t, f.erp.calls)
	require.Len(t, f.store.stored, 1)
	assert.True(t, f.store.stored[0].IsCustom)
	assert.Nil(t, f.store.stored[0].InventoryRecordID)
}

func TestRunInventoryOptimizationInvalidCustomParams(t *testing.T) {
	f := newInventoryFixture(t, nil)
	params := optimizer.InventoryParams{Lambda: 0, Sigma: 10, T: 1, C: 30, FTL: 40}

	_, err := f.svc.RunInventoryOptimization(context.Background(), InventoryOptimizationRequest{TenantID: 1, SKUNumber: 9, Params: &params})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimizer.ErrInvalidParameter))
	assert.Empty(t, f.store.stored)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OptimizationsTotal.WithLabelValues(metrics.KindInventory, metrics.OutcomeInvalid)))
}

func TestRunInventoryOptimizationMissingERPField(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.erp.record.PenaltyCostP = nil

	_, err := f.svc.RunInventoryOptimization(context.Background(), InventoryOptimizationRequest{TenantID: 1, SKUNumber: 7})
	require.Error(t, err)

	var paramErr *optimizer.InvalidParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Equal(t, "penalty_cost_p", paramErr.Param)
}

func TestRunInventoryOptimizationERPNoData(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.erp.err = erp.ErrNoData

	_, err := f.svc.RunInventoryOptimization(context.Background(), InventoryOptimizationRequest{TenantID: 1, SKUNumber: 7})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetInventoryParamsWithoutERP(t *testing.T) {
	svc := NewInventoryService(InventoryServiceDeps{Predictions: &fakePredictionRepo{}, Optimizations: &fakeInventoryRepo{}}, testOptimizerConfig())

	_, err := svc.GetInventoryParams(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrERPUnavailable)
}

func TestDemandParametersRunsInferenceWhenEmpty(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.forecaster.value = 64

	params, err := f.svc.DemandParameters(context.Background(), 1, 99)
	require.NoError(t, err)

	assert.Equal(t, 1, f.forecaster.calls)
	assert.Equal(t, 64.0, params.Lambda)
	assert.Equal(t, 1.0, params.Sigma)

	stored, _ := f.predictions.ListBySKU(context.Background(), 1, 99)
	require.Len(t, stored, 1)
	assert.Equal(t, "fake", stored[0].ModelName)
}

func TestDemandParametersInferenceFailure(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.forecaster.err = erp.ErrInferenceUnavailable

	_, err := f.svc.DemandParameters(context.Background(), 1, 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDemandData)
	assert.True(t, IsNotFound(err))
}

func TestDemandParametersNoForecaster(t *testing.T) {
	svc := NewInventoryService(InventoryServiceDeps{Predictions: &fakePredictionRepo{}, Optimizations: &fakeInventoryRepo{}}, testOptimizerConfig())

	_, err := svc.DemandParameters(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNoDemandData)
}

func TestDemandParametersCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newInventoryFixture(t, cache.NewRedisDemandCache(client, time.Minute))
	ctx := context.Background()

	first, err := f.svc.DemandParameters(ctx, 1, 7)
	require.NoError(t, err)
	second, err := f.svc.DemandParameters(ctx, 1, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.predictions.lists)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("hit")))

	// A new prediction drops the cached entry.
	require.NoError(t, f.svc.RecordPrediction(ctx, &domain.Prediction{TenantID: 1, SKUNumber: 7, PredictedValue: 130}))
	third, err := f.svc.DemandParameters(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, f.predictions.lists)
	assert.InDelta(t, 110, third.Lambda, 1e-9)
}

func TestRecordPredictionValidates(t *testing.T) {
	f := newInventoryFixture(t, nil)

	err := f.svc.RecordPrediction(context.Background(), &domain.Prediction{TenantID: 1, SKUNumber: 0, PredictedValue: 1})
	assert.ErrorIs(t, err, optimizer.ErrInvalidParameter)
}

func TestListOptimizationsScopesTenant(t *testing.T) {
	f := newInventoryFixture(t, nil)
	f.store.stored = []domain.InventoryOptimization{{TenantID: 1, SKUNumber: 7}, {TenantID: 2, SKUNumber: 7}}

	rows, err := f.svc.ListOptimizations(context.Background(), domain.InventoryOptimizationFilter{TenantID: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].TenantID)
}

func TestSolveWithTimeout(t *testing.T) {
	stopped := make(chan error, 1)
	_, err := solveWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		stopped <- ctx.Err()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrOptimizationTimeout)
	select {
	case solveErr := <-stopped:
		assert.ErrorIs(t, solveErr, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("solver did not observe the deadline")
	}

	v, err := solveWithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
