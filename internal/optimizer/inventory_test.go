package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioParams() InventoryParams {
	return InventoryParams{
		Lambda: 100,
		Sigma:  10,
		T:      1,
		K:      50,
		P:      20,
		I:      0.02,
		C:      30,
		FTL:    40,
		TR:     100,
	}
}

func TestInventoryParamsCosts(t *testing.T) {
	costs := scenarioParams().Costs(80, 100)

	// z = 0 at R = lambda*T, so the loss integral is sigma*pdf(0).
	assert.InDelta(t, 24.0, costs.HoldingCost, 1e-9)
	assert.InDelta(t, 312.5, costs.SetupAndTransportationCost, 1e-9)
	assert.InDelta(t, 20*1.25*10*0.3989422804014327, costs.StockoutCost, 1e-9)
	assert.InDelta(t, costs.HoldingCost+costs.SetupAndTransportationCost+costs.StockoutCost, costs.Total(), 1e-12)
}

func TestInventoryParamsCostsClampsQ(t *testing.T) {
	p := scenarioParams()
	assert.Equal(t, p.Costs(minOrderQuantity, 100), p.Costs(0, 100))
	assert.Equal(t, p.Costs(minOrderQuantity, 100), p.Costs(-5, 100))
}

func TestInventoryParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *InventoryParams)
		param  string
	}{
		{"zero lambda", func(p *InventoryParams) { p.Lambda = 0 }, "lambda"},
		{"negative T", func(p *InventoryParams) { p.T = -1 }, "T"},
		{"zero unit cost", func(p *InventoryParams) { p.C = 0 }, "c"},
		{"zero truckload", func(p *InventoryParams) { p.FTL = 0 }, "FTL"},
		{"negative K", func(p *InventoryParams) { p.K = -0.1 }, "K"},
		{"negative penalty", func(p *InventoryParams) { p.P = -1 }, "p"},
		{"negative holding rate", func(p *InventoryParams) { p.I = -0.5 }, "i"},
		{"negative transport", func(p *InventoryParams) { p.TR = -3 }, "TR"},
		{"zero sigma", func(p *InventoryParams) { p.Sigma = 0 }, "sigma"},
		{"NaN lambda", func(p *InventoryParams) { p.Lambda = math.NaN() }, "lambda"},
		{"infinite K", func(p *InventoryParams) { p.K = math.Inf(1) }, "K"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scenarioParams()
			tt.mutate(&p)

			_, err := OptimizeInventory(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))

			var paramErr *InvalidParameterError
			require.True(t, errors.As(err, &paramErr))
			assert.Equal(t, tt.param, paramErr.Param)
		})
	}

	t.Run("zero cost terms are allowed", func(t *testing.T) {
		p := scenarioParams()
		p.K, p.TR = 0, 0
		assert.NoError(t, p.Validate())
	})
}

func TestOptimizeInventoryScenario(t *testing.T) {
	params := scenarioParams()

	result, err := OptimizeInventory(params)
	require.NoError(t, err)

	assert.Greater(t, result.OptimizedValues.Q, 0.0)
	assert.GreaterOrEqual(t, result.OptimizedValues.R, 0.0)
	assert.False(t, math.IsNaN(result.TotalCost) || math.IsInf(result.TotalCost, 0))

	costs := result.CostDetails
	assert.GreaterOrEqual(t, costs.HoldingCost, 0.0)
	assert.GreaterOrEqual(t, costs.SetupAndTransportationCost, 0.0)
	assert.GreaterOrEqual(t, costs.StockoutCost, 0.0)
	assert.InEpsilon(t, costs.Total(), result.TotalCost, 1e-6)

	// Costs are re-evaluated at the returned point.
	assert.Equal(t, params.Costs(result.OptimizedValues.Q, result.OptimizedValues.R), costs)

	// The optimum must improve on the fixed starting guess.
	assert.Less(t, result.TotalCost, params.Costs(initialOrderQuantity, initialReorderPoint).Total())
	assert.Equal(t, params, result.ParametersUsed)

	again, err := OptimizeInventory(params)
	require.NoError(t, err)
	assert.InDelta(t, result.TotalCost, again.TotalCost, 1e-6*math.Abs(result.TotalCost))
}

func TestOptimizeInventoryFindsTruckloadOptimum(t *testing.T) {
	// Every truckload band is cheapest at its upper edge here, and three
	// trucks per order (Q = 120) is the best band: about 340.85 per period.
	result, err := OptimizeInventory(scenarioParams())
	require.NoError(t, err)

	assert.InDelta(t, 120.0, result.OptimizedValues.Q, 0.5)
	assert.Less(t, result.TotalCost, 341.5)
	assert.Less(t, result.TotalCost, scenarioParams().Costs(240, result.OptimizedValues.R).Total())
}

func TestStartingPointsIncludeTruckloadMultiples(t *testing.T) {
	p := scenarioParams()

	// Order-cost EOQ is sqrt(2*100*50/0.6) ~ 129, between 3 and 4 truckloads.
	var qs []float64
	for _, s := range startingPoints(p) {
		qs = append(qs, s[0])
	}
	assert.Contains(t, qs, 120.0)
	assert.Contains(t, qs, 160.0)
	assert.Contains(t, qs, initialOrderQuantity)
}

func TestSnapToTruckload(t *testing.T) {
	p := scenarioParams()

	snapped := snapToTruckload(p, []float64{119.7, 118})
	assert.Equal(t, []float64{120, 118}, snapped)

	// Just past an edge the extra truck makes the lower multiple cheaper.
	snapped = snapToTruckload(p, []float64{120.5, 118})
	assert.Equal(t, []float64{120, 118}, snapped)
}

func TestOptimizeInventoryWithoutStockoutPenalty(t *testing.T) {
	// With no penalty and no ordering costs nothing holds R up, so it falls
	// to zero and the safety-stock part of the holding cost goes negative.
	// The holding term is not clamped.
	p := scenarioParams()
	p.K, p.TR, p.P = 0, 0, 0

	result, err := OptimizeInventory(p)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.OptimizedValues.R, 1e-6)
	assert.Less(t, result.CostDetails.HoldingCost, 0.0)
	assert.InDelta(t, -p.I*p.C*p.Lambda*p.T, result.CostDetails.HoldingCost, 0.5)
	assert.Zero(t, result.CostDetails.StockoutCost)
	assert.Zero(t, result.CostDetails.SetupAndTransportationCost)
	assert.InDelta(t, result.CostDetails.HoldingCost, result.TotalCost, 1e-12)
}

func TestOptimizeInventoryContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&InventoryOptimizer{}).Optimize(ctx, scenarioParams())
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = (&InventoryOptimizer{}).Optimize(ctx, scenarioParams())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOptimizeInventoryFixedCostMonotonic(t *testing.T) {
	base := scenarioParams()
	doubled := base
	doubled.K = 2 * base.K

	r1, err := OptimizeInventory(base)
	require.NoError(t, err)
	r2, err := OptimizeInventory(doubled)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, r2.TotalCost, r1.TotalCost-1e-3*r1.TotalCost)
}

func TestOptimizeInventoryDerivedMetrics(t *testing.T) {
	result, err := OptimizeInventory(scenarioParams())
	require.NoError(t, err)

	q := result.OptimizedValues.Q
	assert.InDelta(t, 100/q, result.OrderFrequency(), 1e-12)
	assert.InDelta(t, q/100, result.CycleTime(), 1e-12)
}

func TestOptimizeInventoryConvergenceFailure(t *testing.T) {
	opt := &InventoryOptimizer{MaxEvaluations: 3}

	_, err := opt.Optimize(context.Background(), scenarioParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSolverConvergence))

	var convErr *SolverConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Greater(t, convErr.Q, 0.0)
	assert.GreaterOrEqual(t, convErr.R, 0.0)
	assert.NotEmpty(t, convErr.Message)
}

func TestInventoryParamsFromMap(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"lambda": 100.0, "sigma": 10, "stock_level": 5, "T": 1.0, "K": 50.0,
			"p": 20.0, "i": json.Number("0.02"), "c": 30.0, "FTL": 40, "TR": 100.0,
		}
	}

	t.Run("valid", func(t *testing.T) {
		p, err := InventoryParamsFromMap(valid())
		require.NoError(t, err)
		assert.Equal(t, 100.0, p.Lambda)
		assert.Equal(t, 10.0, p.Sigma)
		assert.Equal(t, 0.02, p.I)
		assert.Equal(t, 40.0, p.FTL)
		require.NotNil(t, p.StockLevel)
		assert.Equal(t, 5.0, *p.StockLevel)
	})

	t.Run("missing key", func(t *testing.T) {
		m := valid()
		delete(m, "FTL")
		_, err := InventoryParamsFromMap(m)
		var paramErr *InvalidParameterError
		require.True(t, errors.As(err, &paramErr))
		assert.Equal(t, "FTL", paramErr.Param)
	})

	t.Run("non numeric", func(t *testing.T) {
		m := valid()
		m["K"] = "fifty"
		_, err := InventoryParamsFromMap(m)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})

	t.Run("stock level optional", func(t *testing.T) {
		m := valid()
		delete(m, "stock_level")
		p, err := InventoryParamsFromMap(m)
		require.NoError(t, err)
		assert.Nil(t, p.StockLevel)
	})
}

func TestInventoryResultJSONShape(t *testing.T) {
	result, err := OptimizeInventory(scenarioParams())
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "optimized_values")
	assert.Contains(t, decoded, "cost_details")
	assert.Contains(t, decoded, "total_cost")
	assert.Contains(t, decoded, "parameters_used")

	costs := decoded["cost_details"].(map[string]any)
	assert.Contains(t, costs, "setup_cost_and_transportation_cost")
	values := decoded["optimized_values"].(map[string]any)
	assert.Contains(t, values, "Q")
	assert.Contains(t, values, "R")
}
