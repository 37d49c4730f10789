package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize/convex/lp"
)

const defaultMaxVariables = 4000

// RouteLeg is one nonzero flow assignment: Units carried by vehicle Vehicle
// from location index From to location index To.
type RouteLeg struct {
	Vehicle int `json:"vehicle"`
	From    int `json:"from"`
	To      int `json:"to"`
	Units   int `json:"units"`
}

// RoutingResult is a complete solution of the routing program.
type RoutingResult struct {
	TotalCost float64    `json:"total_cost"`
	Results   []RouteLeg `json:"results"`
}

// RoutingOptimizer solves the capacitated multi-vehicle flow program
//
//	min  sum cost[k] * x[i,j,k] * dist[i][j] * traffic[i][j]
//	s.t. sum_{i,j} x[i,j,k] <= cap[k]                 for each vehicle k
//	     sum_{i,k} x[i,j,k] == demand[j]              for each non-depot j
//	     sum_i x[j,i,k] <= x[depot,j,k]               for each k and non-depot j
//	     x[i,j,k] integer in [0, cap[k]], i != j
//
// This balances flow volumes against capacity and depot-first supply. It
// does not eliminate subtours, so a solution is an aggregate flow plan and not
// necessarily a set of drivable round trips.
//
// Arcs into the depot serve no demand and costs are non-negative, so they are
// zero at some optimum and are left out of the program. The search starts
// from a plan that ships every unit directly from the depot, so any model
// whose demand fits the fleet yields a plan even when the node budget runs
// out before optimality is proven.
//
// When several optima exist the one returned depends on the simplex pivot
// order and branching sequence.
type RoutingOptimizer struct {
	// MaxNodes bounds the branch-and-bound search. Zero means 5000.
	MaxNodes int
	// MaxVariables rejects models with more flow variables than this, where
	// the count is vehicles * (locations-1)^2. Zero means 4000.
	MaxVariables int
}

// OptimizeDistributionRouting runs a RoutingOptimizer with default settings.
func OptimizeDistributionRouting(model *RoutingDataModel) (*RoutingResult, error) {
	return (&RoutingOptimizer{}).Optimize(context.Background(), model)
}

type flowVar struct {
	i, j, k int
}

// flowProgram is the routing model laid out as an integer program.
type flowProgram struct {
	model *RoutingDataModel
	vars  []flowVar
	index map[flowVar]int
	// byCost lists vehicle indices from cheapest to dearest per trip.
	byCost []int
}

// Optimize returns either a complete result or ErrInfeasible, never a
// partial assignment. Cancelling ctx stops the search at the next node.
func (o *RoutingOptimizer) Optimize(ctx context.Context, model *RoutingDataModel) (*RoutingResult, error) {
	if model == nil {
		return nil, &InvalidParameterError{Param: "data_model", Reason: "is required"}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	n, depot := len(model.Demands), model.Depot

	totalDemand, totalCapacity := 0, 0
	for j, d := range model.Demands {
		if j != depot {
			totalDemand += d
		}
	}
	for _, c := range model.VehicleCapacities {
		totalCapacity += c
	}
	if totalDemand == 0 {
		return &RoutingResult{TotalCost: 0, Results: []RouteLeg{}}, nil
	}
	if totalDemand > totalCapacity {
		return nil, ErrInfeasible
	}

	maxVars := o.MaxVariables
	if maxVars <= 0 {
		maxVars = defaultMaxVariables
	}
	if size := model.NumVehicles * (n - 1) * (n - 1); size > maxVars {
		return nil, &InvalidParameterError{
			Param:  "data_model",
			Reason: fmt.Sprintf("%d vehicles over %d locations needs %d flow variables, limit is %d", model.NumVehicles, n, size, maxVars),
		}
	}

	fp := newFlowProgram(model)
	ip := fp.integerProgram(o.MaxNodes)

	x, objective, err := ip.solve(ctx)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, ErrInfeasible
	case errors.Is(err, errNodeLimit):
		return nil, fmt.Errorf("%w: %v without an integer solution", ErrSolverConvergence, err)
	case err != nil:
		return nil, fmt.Errorf("routing solve: %w", err)
	}

	legs := make([]RouteLeg, 0)
	for t, v := range fp.vars {
		if x[t] > 0 {
			legs = append(legs, RouteLeg{Vehicle: v.k, From: v.i, To: v.j, Units: int(x[t])})
		}
	}

	return &RoutingResult{TotalCost: objective, Results: legs}, nil
}

func newFlowProgram(model *RoutingDataModel) *flowProgram {
	n, depot := len(model.Demands), model.Depot

	fp := &flowProgram{
		model: model,
		vars:  make([]flowVar, 0, model.NumVehicles*(n-1)*(n-1)),
	}
	fp.index = make(map[flowVar]int, cap(fp.vars))
	for k := 0; k < model.NumVehicles; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j || j == depot {
					continue
				}
				v := flowVar{i, j, k}
				fp.index[v] = len(fp.vars)
				fp.vars = append(fp.vars, v)
			}
		}
	}

	fp.byCost = make([]int, model.NumVehicles)
	for k := range fp.byCost {
		fp.byCost[k] = k
	}
	sort.SliceStable(fp.byCost, func(a, b int) bool {
		return model.CostPerTripPerVehicle[fp.byCost[a]] < model.CostPerTripPerVehicle[fp.byCost[b]]
	})
	return fp
}

func (fp *flowProgram) integerProgram(maxNodes int) *integerProgram {
	model := fp.model
	n, depot := len(model.Demands), model.Depot

	ip := &integerProgram{
		numVars:  len(fp.vars),
		cost:     make([]float64, len(fp.vars)),
		maxNodes: maxNodes,
		round:    fp.repair,
	}
	for t, v := range fp.vars {
		ip.cost[t] = model.CostPerTripPerVehicle[v.k] * model.DistanceMatrix[v.i][v.j] * model.TrafficFactors[v.i][v.j]
	}

	// Vehicle capacity. Since x >= 0 this also enforces x[i,j,k] <= cap[k].
	for k := 0; k < model.NumVehicles; k++ {
		row := constraint{sense: lessEq, rhs: float64(model.VehicleCapacities[k])}
		for t, v := range fp.vars {
			if v.k == k {
				row.idx = append(row.idx, t)
				row.val = append(row.val, 1)
			}
		}
		ip.constraints = append(ip.constraints, row)
	}

	// Demand fulfilment, exact.
	for j := 0; j < n; j++ {
		if j == depot {
			continue
		}
		row := constraint{sense: equal, rhs: float64(model.Demands[j])}
		for t, v := range fp.vars {
			if v.j == j {
				row.idx = append(row.idx, t)
				row.val = append(row.val, 1)
			}
		}
		ip.constraints = append(ip.constraints, row)
	}

	// Flow may leave j on vehicle k only after the depot supplied j on k.
	for k := 0; k < model.NumVehicles; k++ {
		for j := 0; j < n; j++ {
			if j == depot {
				continue
			}
			row := constraint{sense: lessEq, rhs: 0}
			for i := 0; i < n; i++ {
				if i != j && i != depot {
					row.idx = append(row.idx, fp.index[flowVar{j, i, k}])
					row.val = append(row.val, 1)
				}
			}
			if len(row.idx) == 0 {
				continue
			}
			row.idx = append(row.idx, fp.index[flowVar{depot, j, k}])
			row.val = append(row.val, -1)
			ip.constraints = append(ip.constraints, row)
		}
	}

	ip.incumbent = fp.repair(nil)
	return ip
}

// repair turns a relaxation into an integer plan. Every variable is floored,
// which keeps the capacity and depot-first rows satisfied because their left
// sides become integers no larger than before. Unmet demand is then shipped
// directly from the depot on the cheapest vehicles with spare capacity. A nil
// relaxation yields the all-direct plan. The result is nil if it does not
// check out as feasible.
func (fp *flowProgram) repair(relaxed []float64) []float64 {
	model := fp.model
	x := make([]float64, len(fp.vars))
	load := make([]int, model.NumVehicles)
	received := make([]int, len(model.Demands))

	for t, v := range fp.vars {
		if relaxed != nil {
			x[t] = math.Max(math.Floor(relaxed[t]+integralityTol), 0)
		}
		load[v.k] += int(x[t])
		received[v.j] += int(x[t])
	}

	for j, demand := range model.Demands {
		if j == model.Depot {
			continue
		}
		for _, k := range fp.byCost {
			short := demand - received[j]
			if short <= 0 {
				break
			}
			spare := model.VehicleCapacities[k] - load[k]
			if spare <= 0 {
				continue
			}
			units := min(short, spare)
			x[fp.index[flowVar{model.Depot, j, k}]] += float64(units)
			load[k] += units
			received[j] += units
		}
	}

	if !fp.feasible(x) {
		return nil
	}
	return x
}

// feasible checks an integer plan against every row of the program.
func (fp *flowProgram) feasible(x []float64) bool {
	model := fp.model
	n, depot := len(model.Demands), model.Depot
	load := make([]float64, model.NumVehicles)
	received := make([]float64, n)
	outflow := make([][]float64, model.NumVehicles)
	for k := range outflow {
		outflow[k] = make([]float64, n)
	}

	for t, v := range fp.vars {
		if x[t] < 0 {
			return false
		}
		load[v.k] += x[t]
		received[v.j] += x[t]
		outflow[v.k][v.i] += x[t]
	}
	for k, c := range model.VehicleCapacities {
		if load[k] > float64(c) {
			return false
		}
	}
	for j := 0; j < n; j++ {
		if j == depot {
			continue
		}
		if received[j] != float64(model.Demands[j]) {
			return false
		}
		for k := 0; k < model.NumVehicles; k++ {
			if outflow[k][j] > x[fp.index[flowVar{depot, j, k}]] {
				return false
			}
		}
	}
	return true
}
