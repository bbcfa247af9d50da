package opt

import (
	"fmt"
	"math"
)

// Greedy builds one solution by repeatedly driving to the nearest feasible customer.
type Greedy struct {
	in *Instance
	dt *DistanceTable
	ev Evaluator
}

func NewGreedy(in *Instance, dt *DistanceTable) *Greedy {
	return &Greedy{in: in, dt: dt, ev: NewEvaluator(dt)}
}

// Solve runs the construction once. Unvisited customers are scanned in ascending id order and only a
// strictly nearer candidate replaces the current pick, so equal distances resolve to the lowest id.
func (g *Greedy) Solve() (Solution, error) {
	unvisited := g.in.Customers()
	routes := []Route{}
	v := newVehicle(g.in, g.dt)
	for len(unvisited) > 0 {
		pick := -1
		best := math.MaxFloat64
		for i, c := range unvisited {
			if !v.canServe(c) {
				continue
			}
			if d := g.dt.At(v.current, c); d < best {
				best = d
				pick = i
			}
		}
		if pick < 0 {
			if v.empty() {
				return Solution{}, fmt.Errorf("%w: %d customers unreachable from a fresh vehicle", ErrInfeasibleInstance, len(unvisited))
			}
			routes = append(routes, v.close())
			v.reset()
			continue
		}
		v.visit(unvisited[pick])
		unvisited = append(unvisited[:pick], unvisited[pick+1:]...)
	}
	if !v.empty() {
		routes = append(routes, v.close())
	}
	return Solution{Routes: routes, Cost: g.ev.SolutionCost(routes)}, nil
}
