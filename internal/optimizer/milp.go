package optimizer

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

type sense int

const (
	lessEq sense = iota
	equal
	greaterEq
)

const (
	integralityTol = 1e-6
	simplexTol     = 1e-9
	objectiveTol   = 1e-9

	defaultMaxNodes = 5000
)

var errNodeLimit = errors.New("node limit reached")

// constraint is a sparse row: sum(val[t] * x[idx[t]]) <sense> rhs.
type constraint struct {
	idx   []int
	val   []float64
	sense sense
	rhs   float64
}

// integerProgram minimises cost·x over non-negative integer x subject to the
// constraints, by best-bound branch-and-bound on simplex relaxations.
type integerProgram struct {
	numVars     int
	cost        []float64
	constraints []constraint
	maxNodes    int

	// incumbent, if set, is a feasible integer point that bounds the search
	// from the start.
	incumbent []float64
	// round, if set, turns a fractional relaxation into a feasible integer
	// point, or returns nil.
	round func(relaxed []float64) []float64
}

type node struct {
	lower []float64
	upper []float64
	bound float64
	depth int
}

// nodeQueue pops the node with the lowest parent bound, deepest first on ties.
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].bound != q[j].bound {
		return q[i].bound < q[j].bound
	}
	return q[i].depth > q[j].depth
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(*node)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// solve returns the best integer point found. If the node budget runs out
// the incumbent is returned, or errNodeLimit when there is none. The context
// is checked once per node.
func (ip *integerProgram) solve(ctx context.Context) (x []float64, objective float64, err error) {
	maxNodes := ip.maxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	var (
		incumbent []float64
		best      = math.Inf(1)
	)
	offer := func(candidate []float64) {
		if candidate == nil {
			return
		}
		if obj := ip.objective(candidate); obj < best-objectiveTol {
			incumbent, best = candidate, obj
		}
	}
	offer(ip.incumbent)

	root := &node{
		lower: make([]float64, ip.numVars),
		upper: make([]float64, ip.numVars),
		bound: math.Inf(-1),
	}
	for i := range root.upper {
		root.upper[i] = math.Inf(1)
	}

	queue := &nodeQueue{root}
	explored := 0
	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		n := heap.Pop(queue).(*node)
		if n.bound >= best-objectiveTol {
			// Every queued node is bounded at least this high.
			break
		}
		if explored >= maxNodes {
			if incumbent != nil {
				break
			}
			return nil, 0, errNodeLimit
		}
		explored++

		relaxed, obj, err := ip.relax(n)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if obj >= best-objectiveTol {
			continue
		}

		branchVar := mostFractional(relaxed)
		if branchVar < 0 {
			rounded := make([]float64, len(relaxed))
			for i, v := range relaxed {
				rounded[i] = math.Max(math.Round(v), 0)
			}
			offer(rounded)
			continue
		}
		if ip.round != nil {
			offer(ip.round(relaxed))
		}

		v := relaxed[branchVar]
		down := n.child(obj)
		down.upper[branchVar] = math.Floor(v)
		up := n.child(obj)
		up.lower[branchVar] = math.Ceil(v)
		if down.upper[branchVar] >= down.lower[branchVar] {
			heap.Push(queue, down)
		}
		if up.lower[branchVar] <= up.upper[branchVar] {
			heap.Push(queue, up)
		}
	}

	if incumbent == nil {
		return nil, 0, lp.ErrInfeasible
	}
	return incumbent, best, nil
}

func (ip *integerProgram) objective(x []float64) float64 {
	total := 0.0
	for i, v := range x {
		total += ip.cost[i] * v
	}
	return total
}

func mostFractional(x []float64) int {
	branchVar, frac := -1, 0.0
	for i, v := range x {
		f := math.Abs(v - math.Round(v))
		if f > integralityTol && f > frac {
			branchVar, frac = i, f
		}
	}
	return branchVar
}

func (n *node) child(bound float64) *node {
	c := &node{
		lower: make([]float64, len(n.lower)),
		upper: make([]float64, len(n.upper)),
		bound: bound,
		depth: n.depth + 1,
	}
	copy(c.lower, n.lower)
	copy(c.upper, n.upper)
	return c
}

// relax solves the LP relaxation of a node in standard form. Variables the
// node has fixed are substituted out, the rest are shifted by their lower
// bound, and only finite upper bounds become extra rows. Every inequality
// gets its own slack column, which keeps the matrix at full row rank.
func (ip *integerProgram) relax(n *node) ([]float64, float64, error) {
	col := make([]int, ip.numVars)
	free := 0
	for i := range col {
		if n.upper[i] <= n.lower[i] {
			col[i] = -1
			continue
		}
		col[i] = free
		free++
	}

	rows := make([]constraint, 0, len(ip.constraints))
	for _, c := range ip.constraints {
		r := constraint{sense: c.sense, rhs: c.rhs}
		for t, v := range c.idx {
			r.rhs -= c.val[t] * n.lower[v]
			if col[v] >= 0 {
				r.idx = append(r.idx, col[v])
				r.val = append(r.val, c.val[t])
			}
		}
		if len(r.idx) == 0 {
			if !r.satisfiedAtZero() {
				return nil, 0, lp.ErrInfeasible
			}
			continue
		}
		rows = append(rows, r)
	}
	for i, c := range col {
		if c >= 0 && !math.IsInf(n.upper[i], 1) {
			rows = append(rows, constraint{idx: []int{c}, val: []float64{1}, sense: lessEq, rhs: n.upper[i] - n.lower[i]})
		}
	}

	x := make([]float64, ip.numVars)
	copy(x, n.lower)

	if len(rows) == 0 {
		// Unconstrained free variables sit at whichever bound is cheaper.
		for i, c := range col {
			if c < 0 || ip.cost[i] >= 0 {
				continue
			}
			if math.IsInf(n.upper[i], 1) {
				return nil, 0, lp.ErrUnbounded
			}
			x[i] = n.upper[i]
		}
		return x, ip.objective(x), nil
	}

	numSlack := 0
	for _, r := range rows {
		if r.sense != equal {
			numSlack++
		}
	}

	m, cols := len(rows), free+numSlack
	a := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	c := make([]float64, cols)
	for i, ci := range col {
		if ci >= 0 {
			c[ci] = ip.cost[i]
		}
	}

	slack := free
	for r, row := range rows {
		sign := 1.0
		if row.rhs < 0 {
			sign = -1
		}
		for t, ci := range row.idx {
			a.Set(r, ci, a.At(r, ci)+sign*row.val[t])
		}
		switch row.sense {
		case lessEq:
			a.Set(r, slack, sign)
			slack++
		case greaterEq:
			a.Set(r, slack, -sign)
			slack++
		}
		b[r] = sign * row.rhs
	}

	_, reduced, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("lp relaxation: %w", err)
	}
	for i, ci := range col {
		if ci >= 0 {
			x[i] += reduced[ci]
		}
	}
	return x, ip.objective(x), nil
}

func (r constraint) satisfiedAtZero() bool {
	switch r.sense {
	case lessEq:
		return r.rhs >= -simplexTol
	case greaterEq:
		return r.rhs <= simplexTol
	default:
		return math.Abs(r.rhs) <= simplexTol
	}
}
