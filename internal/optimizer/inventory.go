package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// minOrderQuantity keeps Q away from zero before any division.
	minOrderQuantity = 1e-5

	initialOrderQuantity = 500.0
	initialReorderPoint  = 1000.0

	defaultMaxEvaluations = 20000
)

// ParamSource records where an inventory parameter set came from. It is
// persisted with the result and never enters the cost function.
type ParamSource string

const (
	SourceCustom ParamSource = "custom"
	SourceERP    ParamSource = "erp"
)

// InventoryParams is the cost/demand parameter set of the reorder model.
type InventoryParams struct {
	Lambda     float64     `json:"lambda"`
	Sigma      float64     `json:"sigma"`
	StockLevel *float64    `json:"stock_level,omitempty"`
	T          float64     `json:"T"`
	K          float64     `json:"K"`
	P          float64     `json:"p"`
	I          float64     `json:"i"`
	C          float64     `json:"c"`
	FTL        float64     `json:"FTL"`
	TR         float64     `json:"TR"`
	Source     ParamSource `json:"source,omitempty"`
}

// OptimizedValues are the decision variables at the optimum.
type OptimizedValues struct {
	Q float64 `json:"Q"`
	R float64 `json:"R"`
}

// CostDetails is the per-unit-time cost breakdown at (Q, R).
type CostDetails struct {
	HoldingCost                float64 `json:"holding_cost"`
	SetupAndTransportationCost float64 `json:"setup_cost_and_transportation_cost"`
	StockoutCost               float64 `json:"stockout_cost"`
}

// Total sums the three components.
func (c CostDetails) Total() float64 {
	return c.HoldingCost + c.SetupAndTransportationCost + c.StockoutCost
}

// InventoryResult is produced once per optimization call.
type InventoryResult struct {
	OptimizedValues OptimizedValues `json:"optimized_values"`
	CostDetails     CostDetails     `json:"cost_details"`
	TotalCost       float64         `json:"total_cost"`
	ParametersUsed  InventoryParams `json:"parameters_used"`
}

// OrderFrequency is the expected number of orders per period, lambda/Q.
func (r *InventoryResult) OrderFrequency() float64 {
	return r.ParametersUsed.Lambda / r.OptimizedValues.Q
}

// CycleTime is the expected time between orders, Q/lambda.
func (r *InventoryResult) CycleTime() float64 {
	return r.OptimizedValues.Q / r.ParametersUsed.Lambda
}

// Validate checks presence-independent preconditions: lambda, T, c and FTL
// must be strictly positive, K, p, i and TR non-negative, and sigma non-zero
// so the standardised reorder point is defined.
func (p InventoryParams) Validate() error {
	strictlyPositive := []struct {
		name  string
		value float64
	}{
		{"lambda", p.Lambda},
		{"T", p.T},
		{"c", p.C},
		{"FTL", p.FTL},
	}
	for _, f := range strictlyPositive {
		if err := checkFinite(f.name, f.value); err != nil {
			return err
		}
		if f.value <= 0 {
			return &InvalidParameterError{Param: f.name, Reason: "must be greater than zero"}
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"sigma", p.Sigma},
		{"K", p.K},
		{"p", p.P},
		{"i", p.I},
		{"TR", p.TR},
	}
	for _, f := range nonNegative {
		if err := checkFinite(f.name, f.value); err != nil {
			return err
		}
		if f.value < 0 {
			return &InvalidParameterError{Param: f.name, Reason: "must not be negative"}
		}
	}

	if p.Sigma == 0 {
		return &InvalidParameterError{Param: "sigma", Reason: "demand standard deviation must be non-zero"}
	}
	if p.StockLevel != nil && *p.StockLevel < 0 {
		return &InvalidParameterError{Param: "stock_level", Reason: "must not be negative"}
	}
	return nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidParameterError{Param: name, Reason: "must be a finite number"}
	}
	return nil
}

// Costs evaluates the cost components at (q, r). q is clamped to a small
// positive floor first.
//
// The setup/transport term contains ceil(Q/FTL), so the surface has steps at
// every multiple of FTL.
func (p InventoryParams) Costs(q, r float64) CostDetails {
	q = math.Max(q, minOrderQuantity)

	numOrders := p.Lambda / q
	demandStd := p.Sigma * math.Sqrt(p.T)
	z := (r - p.Lambda*p.T) / demandStd

	holding := p.I * p.C * (q/2 + demandStd*z)
	setupTransport := numOrders * (p.K + p.TR*math.Ceil(q/p.FTL))

	pdf := distuv.UnitNormal.Prob(z)
	cdf := distuv.UnitNormal.CDF(z)
	expectedShortfall := demandStd * (pdf - z*(1-cdf))
	stockout := p.P * numOrders * expectedShortfall

	return CostDetails{
		HoldingCost:                holding,
		SetupAndTransportationCost: setupTransport,
		StockoutCost:               stockout,
	}
}

// InventoryOptimizer minimises the expected total cost per period over
// Q >= 1e-5 and R >= 0.
//
// Nelder-Mead is used on the box-projected objective. It needs no gradient,
// which suits the ceil(Q/FTL) steps, and it returns a good local optimum rather
// than a guaranteed global one. The steps are small against the cost scale in
// practice, and the surface is deliberately not smoothed.
type InventoryOptimizer struct {
	// MaxEvaluations bounds objective evaluations per start. Zero means 20000.
	MaxEvaluations int
}

// OptimizeInventory runs an InventoryOptimizer with default settings.
func OptimizeInventory(params InventoryParams) (*InventoryResult, error) {
	return (&InventoryOptimizer{}).Optimize(context.Background(), params)
}

// Optimize solves for (Q, R). It starts from (500, 1000), from an EOQ-based
// point and from whole truckloads near the order-cost EOQ, keeping the
// cheapest converged start. If no start converges the error from the first
// start is returned. A deadline on ctx caps each start's runtime, and a
// cancelled ctx is returned as its error.
func (o *InventoryOptimizer) Optimize(ctx context.Context, params InventoryParams) (*InventoryResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var (
		best     []float64
		bestCost = math.Inf(1)
		firstErr error
	)
	for _, start := range startingPoints(params) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, err := o.solve(ctx, params, start)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		x = snapToTruckload(params, x)
		if cost := params.Costs(x[0], x[1]).Total(); cost < bestCost {
			best, bestCost = x, cost
		}
	}
	if best == nil {
		return nil, firstErr
	}

	q, r := best[0], best[1]
	costs := params.Costs(q, r)
	return &InventoryResult{
		OptimizedValues: OptimizedValues{Q: q, R: r},
		CostDetails:     costs,
		TotalCost:       costs.Total(),
		ParametersUsed:  params,
	}, nil
}

func (o *InventoryOptimizer) solve(ctx context.Context, params InventoryParams, start []float64) ([]float64, error) {
	maxEvals := o.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = defaultMaxEvaluations
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			q, r := project(x)
			return params.Costs(q, r).Total()
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Relative:   1e-10,
			Iterations: 500,
		},
	}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
		if settings.Runtime <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	method := &optimize.NelderMead{
		SimplexSize: 0.1 * math.Max(math.Max(math.Abs(start[0]), math.Abs(start[1])), 1),
	}

	result, err := optimize.Minimize(problem, start, settings, method)
	if err == nil && result != nil && !converged(result.Status) {
		err = fmt.Errorf("terminated with status %s", result.Status)
	}
	if err != nil {
		convErr := &SolverConvergenceError{Q: start[0], R: start[1], Message: err.Error()}
		if result != nil && len(result.X) == 2 {
			convErr.Q, convErr.R = project(result.X)
		}
		return nil, convErr
	}

	q, r := project(result.X)
	if math.IsNaN(q) || math.IsNaN(r) || math.IsNaN(params.Costs(q, r).Total()) {
		return nil, &SolverConvergenceError{Q: q, R: r, Message: "objective is not a number at the returned point"}
	}
	return []float64{q, r}, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Failure, optimize.IterationLimit, optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit, optimize.NotTerminated:
		return false
	}
	return true
}

func project(x []float64) (q, r float64) {
	return math.Max(x[0], minOrderQuantity), math.Max(x[1], 0)
}

func startingPoints(p InventoryParams) [][]float64 {
	starts := [][]float64{{initialOrderQuantity, initialReorderPoint}}

	holdingPerUnit := p.I * p.C
	if holdingPerUnit <= 0 {
		return starts
	}
	r := p.Lambda*p.T + p.Sigma*math.Sqrt(p.T)

	eoq := math.Sqrt(2 * p.Lambda * (p.K + p.TR) / holdingPerUnit)
	if eoq > minOrderQuantity && !math.IsInf(eoq, 0) {
		starts = append(starts, []float64{eoq, r})
	}

	// Within one truckload band the cost falls towards the band's upper edge
	// whenever the band's own EOQ lies beyond it, so the best Q often sits on
	// a multiple of FTL. The order-cost EOQ picks which multiples to try.
	orderEOQ := math.Sqrt(2 * p.Lambda * p.K / holdingPerUnit)
	if math.IsNaN(orderEOQ) || math.IsInf(orderEOQ, 0) {
		return starts
	}
	lo := math.Max(math.Floor(orderEOQ/p.FTL), 1)
	hi := math.Max(math.Ceil(orderEOQ/p.FTL), 1)
	for k := lo; k <= hi; k++ {
		starts = append(starts, []float64{k * p.FTL, r})
	}
	return starts
}

// snapToTruckload moves Q onto the nearest multiples of FTL around it, keeping
// R, whenever that is cheaper. Nelder-Mead tends to stall just short of the
// step at a band edge.
func snapToTruckload(p InventoryParams, x []float64) []float64 {
	q, r := x[0], x[1]
	best, bestCost := x, p.Costs(q, r).Total()
	for _, candidate := range []float64{math.Floor(q/p.FTL) * p.FTL, math.Ceil(q/p.FTL) * p.FTL} {
		if candidate < minOrderQuantity || candidate == q {
			continue
		}
		if cost := p.Costs(candidate, r).Total(); cost < bestCost {
			best, bestCost = []float64{candidate, r}, cost
		}
	}
	return best
}

var inventoryParamKeys = []string{"lambda", "sigma", "T", "K", "p", "i", "c", "FTL", "TR"}

// InventoryParamsFromMap reads a loosely typed parameter map keyed by lambda,
// sigma, stock_level, T, K, p, i, c, FTL and TR. Missing or non-numeric
// required keys are reported as *InvalidParameterError.
func InventoryParamsFromMap(m map[string]any) (InventoryParams, error) {
	values := make(map[string]float64, len(inventoryParamKeys))
	for _, key := range inventoryParamKeys {
		raw, ok := m[key]
		if !ok || raw == nil {
			return InventoryParams{}, &InvalidParameterError{Param: key, Reason: "is required"}
		}
		v, ok := toFloat(raw)
		if !ok {
			return InventoryParams{}, &InvalidParameterError{Param: key, Reason: fmt.Sprintf("must be numeric, got %T", raw)}
		}
		values[key] = v
	}

	params := InventoryParams{
		Lambda: values["lambda"],
		Sigma:  values["sigma"],
		T:      values["T"],
		K:      values["K"],
		P:      values["p"],
		I:      values["i"],
		C:      values["c"],
		FTL:    values["FTL"],
		TR:     values["TR"],
	}
	if raw, ok := m["stock_level"]; ok && raw != nil {
		v, ok := toFloat(raw)
		if !ok {
			return InventoryParams{}, &InvalidParameterError{Param: "stock_level", Reason: fmt.Sprintf("must be numeric, got %T", raw)}
		}
		params.StockLevel = &v
	}
	return params, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
