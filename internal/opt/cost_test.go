package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceTable(t *testing.T) {
	dt := NewDistanceTable([]Node{{0, 0, 0}, {1, 3, 4}, {2, -3, 0}})
	require.Equal(t, 3, dt.Len())
	for i := 0; i < 3; i++ {
		assert.Zero(t, dt.At(i, i))
		for j := 0; j < 3; j++ {
			assert.Equal(t, dt.At(i, j), dt.At(j, i))
		}
	}
	assert.InDelta(t, 5.0, dt.At(0, 1), 1e-12)
	assert.InDelta(t, 3.0, dt.At(0, 2), 1e-12)
	assert.InDelta(t, math.Sqrt(36+16), dt.At(1, 2), 1e-12)
	assert.Panics(t, func() { dt.At(0, 3) })
}

func TestRouteCostReversalInvariant(t *testing.T) {
	in := randomInstance(7, 9, 5, 100, 0)
	ev := NewEvaluator(NewDistanceTable(in.Nodes))
	r := Route{0, 3, 8, 1, 5, 0}
	assert.InDelta(t, ev.RouteCost(r), ev.RouteCost(r.Reversed()), 1e-9)

	routes := []Route{{0, 1, 2, 0}, {0, 4, 0}}
	assert.InDelta(t, ev.RouteCost(routes[0])+ev.RouteCost(routes[1]), ev.SolutionCost(routes), 1e-12)
}

func TestRouteStopsDisplayToggle(t *testing.T) {
	r := Route{0, 4, 2, 0}
	assert.Equal(t, []int{4, 2}, r.Stops(true))
	assert.Equal(t, []int{0, 4, 2, 0}, r.Stops(false))
	s := r.Stops(true)
	s[0] = 99
	assert.Equal(t, Route{0, 4, 2, 0}, r, "display copy must not alias the route")
}

func TestCheckSolutionRejectsBrokenSolutions(t *testing.T) {
	in := squareInstance(2, 0)
	dt := NewDistanceTable(in.Nodes)
	ev := NewEvaluator(dt)
	mk := func(routes ...Route) Solution { return Solution{Routes: routes, Cost: ev.SolutionCost(routes)} }

	require.NoError(t, CheckSolution(in, dt, mk(Route{0, 1, 2, 0}, Route{0, 3, 4, 0})))
	assert.Error(t, CheckSolution(in, dt, mk(Route{0, 1, 2, 0}, Route{0, 3, 0})), "missing customer")
	assert.Error(t, CheckSolution(in, dt, mk(Route{0, 1, 2, 0}, Route{0, 3, 4, 1, 0})), "duplicate and overload")
	assert.Error(t, CheckSolution(in, dt, mk(Route{0, 1, 2, 3, 4, 0})), "capacity exceeded")
	assert.Error(t, CheckSolution(in, dt, mk(Route{1, 2, 0}, Route{0, 3, 4, 0})), "not depot-bounded")
}
