package opt

import (
	"fmt"
	"math"
)

// Evaluator computes route and solution lengths from a DistanceTable.
// Ids outside the table panic: that is a caller bug, not an input error.
type Evaluator struct {
	dt *DistanceTable
}

func NewEvaluator(dt *DistanceTable) Evaluator {
	return Evaluator{dt: dt}
}

// RouteCost sums consecutive legs, including the closing leg back to the depot.
func (e Evaluator) RouteCost(r Route) float64 {
	total := 0.0
	for i := 0; i+1 < len(r); i++ {
		total += e.dt.At(r[i], r[i+1])
	}
	return total
}

// SolutionCost sums RouteCost over routes.
func (e Evaluator) SolutionCost(routes []Route) float64 {
	total := 0.0
	for _, r := range routes {
		total += e.RouteCost(r)
	}
	return total
}

// RouteLoad is the summed demand of the route's customers.
func RouteLoad(in *Instance, r Route) float64 {
	load := 0.0
	for _, id := range r.Customers() {
		load += in.Demand(id)
	}
	return load
}

// rangeSlack absorbs floating point drift when comparing accumulated leg sums against VehicleRange.
const rangeSlack = 1e-9

// CheckSolution verifies coverage, depot bounds, capacity and range for every route.
// It is used by tests and by the API before persisting a run.
func CheckSolution(in *Instance, dt *DistanceTable, s Solution) error {
	ev := NewEvaluator(dt)
	seen := make([]bool, len(in.Nodes))
	for k, r := range s.Routes {
		if len(r) < 3 || r[0] != in.DepotID || r[len(r)-1] != in.DepotID {
			return fmt.Errorf("route %d is not depot-bounded with at least one customer: %v", k, r)
		}
		for _, id := range r.Customers() {
			if id < 0 || id >= len(in.Nodes) || id == in.DepotID {
				return fmt.Errorf("route %d visits invalid node %d", k, id)
			}
			if seen[id] {
				return fmt.Errorf("node %d visited more than once", id)
			}
			seen[id] = true
		}
		if load := RouteLoad(in, r); load > in.VehicleCapacity {
			return fmt.Errorf("route %d load %v exceeds capacity %v", k, load, in.VehicleCapacity)
		}
		if in.RangeLimited() {
			if l := ev.RouteCost(r); l > in.VehicleRange+rangeSlack {
				return fmt.Errorf("route %d length %v exceeds range %v", k, l, in.VehicleRange)
			}
		}
	}
	for _, id := range in.Customers() {
		if !seen[id] {
			return fmt.Errorf("node %d not covered", id)
		}
	}
	if c := ev.SolutionCost(s.Routes); math.Abs(c-s.Cost) > 1e-6 {
		return fmt.Errorf("stored cost %v differs from evaluated cost %v", s.Cost, c)
	}
	return nil
}
