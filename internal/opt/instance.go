package opt

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInstance marks structural problems in an Instance. Solvers refuse to run on it.
	ErrInvalidInstance = errors.New("invalid instance")
	// ErrInfeasibleInstance is returned by Greedy when a fresh vehicle cannot serve any remaining customer.
	ErrInfeasibleInstance = errors.New("infeasible instance")
	// ErrNoSolution is returned when no iteration of the colony produced a feasible solution.
	ErrNoSolution = errors.New("no feasible solution found")
)

// Node is a depot or customer location. IDs are 0-based and contiguous.
type Node struct {
	ID int
	X  float64
	Y  float64
}

// Instance is one CVRP problem. It is read-only once handed to a solver.
type Instance struct {
	Name            string
	Comment         string
	DepotID         int
	Nodes           []Node
	Demands         map[int]float64 // node id -> demand; depot absent or 0
	VehicleCapacity float64
	VehicleRange    float64 // 0 = unconstrained
	Vehicles        int     // informational, not a routing limit
}

// RangeLimited reports whether routes are bounded by VehicleRange.
func (in *Instance) RangeLimited() bool { return in.VehicleRange > 0 }

// Demand returns the demand of node id, 0 when absent.
func (in *Instance) Demand(id int) float64 { return in.Demands[id] }

// Customers returns every non-depot node id in ascending order.
func (in *Instance) Customers() []int {
	out := make([]int, 0, len(in.Nodes))
	for _, n := range in.Nodes {
		if n.ID != in.DepotID {
			out = append(out, n.ID)
		}
	}
	return out
}

// Validate checks the structural invariants every solver relies on.
func (in *Instance) Validate() error {
	if in == nil || len(in.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidInstance)
	}
	for i, n := range in.Nodes {
		if n.ID != i {
			return fmt.Errorf("%w: node at position %d has id %d, ids must be 0-based and contiguous", ErrInvalidInstance, i, n.ID)
		}
		if math.IsNaN(n.X) || math.IsInf(n.X, 0) || math.IsNaN(n.Y) || math.IsInf(n.Y, 0) {
			return fmt.Errorf("%w: node %d has non-finite coordinates", ErrInvalidInstance, n.ID)
		}
	}
	if in.DepotID < 0 || in.DepotID >= len(in.Nodes) {
		return fmt.Errorf("%w: depot id %d not among nodes", ErrInvalidInstance, in.DepotID)
	}
	if !(in.VehicleCapacity > 0) {
		return fmt.Errorf("%w: vehicle capacity must be positive, got %v", ErrInvalidInstance, in.VehicleCapacity)
	}
	if in.VehicleRange < 0 || math.IsNaN(in.VehicleRange) {
		return fmt.Errorf("%w: vehicle range must be >= 0, got %v", ErrInvalidInstance, in.VehicleRange)
	}
	for id, d := range in.Demands {
		if id < 0 || id >= len(in.Nodes) {
			return fmt.Errorf("%w: demand for unknown node %d", ErrInvalidInstance, id)
		}
		if d < 0 || math.IsNaN(d) {
			return fmt.Errorf("%w: node %d has negative demand %v", ErrInvalidInstance, id, d)
		}
		if id == in.DepotID && d != 0 {
			return fmt.Errorf("%w: depot %d has demand %v", ErrInvalidInstance, id, d)
		}
	}
	return nil
}
