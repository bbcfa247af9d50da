package opt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolver(t *testing.T) {
	g, err := NewSolver(AlgoGreedy, DefaultConfig(), 0)
	require.NoError(t, err)
	assert.Equal(t, AlgoGreedy, g.Name())

	a, err := NewSolver("", testConfig(10), 3)
	require.NoError(t, err)
	assert.Equal(t, AlgoACO, a.Name())

	_, err = NewSolver("tabu", DefaultConfig(), 0)
	assert.Error(t, err)
}

func TestSolversAgreeOnSquare(t *testing.T) {
	in := squareInstance(10, 0)
	aco := &ACOSolver{Config: testConfig(100), Seed: 2}
	for _, s := range []Solver{GreedySolver{}, aco} {
		sol, err := s.Solve(context.Background(), in)
		require.NoError(t, err, s.Name())
		assert.InDelta(t, bruteForceSingleRoute(in), sol.Cost, 1e-9, s.Name())
	}
	assert.Equal(t, 100, aco.LastMetrics.Iterations)
}

func TestTwoOptUntanglesCrossingRoute(t *testing.T) {
	in := squareInstance(10, 0)
	ev := NewEvaluator(NewDistanceTable(in.Nodes))
	crossed := Route{0, 1, 3, 2, 4, 0}
	out := twoOptRoute(ev, crossed)
	assert.Less(t, ev.RouteCost(out), ev.RouteCost(crossed))
	assert.InDelta(t, bruteForceSingleRoute(in), ev.RouteCost(out), 1e-9)
	assert.Equal(t, 0, out[0])
	assert.Equal(t, 0, out[len(out)-1])
	assert.ElementsMatch(t, crossed.Customers(), out.Customers())
	assert.Equal(t, Route{0, 1, 3, 2, 4, 0}, crossed, "input must not be modified")

	short := Route{0, 2, 1, 0}
	assert.Equal(t, short, twoOptRoute(ev, short))
}

func TestMetricsStore(t *testing.T) {
	RecordMetrics("square-store-test", AlgoACO, Metrics{Iterations: 7, Found: true, BestCost: 3})
	RecordMetrics("square-store-test", AlgoGreedy, Metrics{Iterations: 1, Found: true, BestCost: 4})
	RecordMetrics("other-store-test", AlgoACO, Metrics{Iterations: 2})

	got := GetMetrics("square-store-test")
	require.Len(t, got, 2)
	assert.Equal(t, 7, got[AlgoACO].Iterations)
	assert.Equal(t, 4.0, got[AlgoGreedy].BestCost)
	assert.Empty(t, GetMetrics("missing-store-test"))
}
