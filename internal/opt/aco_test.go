package opt

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(c *Config){
		"no ants":             func(c *Config) { c.Ants = 0 },
		"no iterations":       func(c *Config) { c.Iterations = 0 },
		"negative alpha":      func(c *Config) { c.Alpha = -1 },
		"nan beta":            func(c *Config) { c.Beta = math.NaN() },
		"evaporation one":     func(c *Config) { c.Evaporation = 1 },
		"evaporation below":   func(c *Config) { c.Evaporation = -0.1 },
		"zero deposit":        func(c *Config) { c.Deposit = 0 },
		"zero initial trail":  func(c *Config) { c.InitialPheromone = 0 },
		"negative elite":      func(c *Config) { c.EliteAnts = -2 },
		"negative elite gain": func(c *Config) { c.EliteReinforcement = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())

			_, _, err := ACOSolve(context.Background(), squareInstance(4, 0), cfg, 1, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestACOSquareReachesOptimum(t *testing.T) {
	in := squareInstance(10, 0)
	sol, m, err := ACOSolve(context.Background(), in, testConfig(200), 1, nil)
	require.NoError(t, err)
	require.Len(t, sol.Routes, 1)
	assert.InDelta(t, bruteForceSingleRoute(in), sol.Cost, 1e-9)
	require.NoError(t, CheckSolution(in, NewDistanceTable(in.Nodes), sol))

	assert.True(t, m.Found)
	assert.Equal(t, 200, m.Iterations)
	assert.Equal(t, 200*10, m.FeasibleAnts)
	assert.Zero(t, m.InfeasibleAnts)
	assert.InDelta(t, sol.Cost, m.BestCost, 1e-12)
	assert.GreaterOrEqual(t, m.BestIteration, 1)
}

func TestACOTwoCustomersPerTrip(t *testing.T) {
	in := squareInstance(2, 0)
	sol, _, err := ACOSolve(context.Background(), in, testConfig(50), 5, nil)
	require.NoError(t, err)
	require.Len(t, sol.Routes, 2)
	for _, r := range sol.Routes {
		assert.Len(t, r.Customers(), 2)
	}
	require.NoError(t, CheckSolution(in, NewDistanceTable(in.Nodes), sol))
}

func TestACORangeTooSmall(t *testing.T) {
	in := squareInstance(10, 1)
	_, m, err := ACOSolve(context.Background(), in, testConfig(20), 1, nil)
	assert.ErrorIs(t, err, ErrNoSolution)
	assert.False(t, m.Found)
	assert.Equal(t, 20, m.EmptyIterations)
	assert.Equal(t, 20*10, m.InfeasibleAnts)
}

func TestACOFeasibleOnRandomInstances(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		in := randomInstance(seed, 20, 10, 35, 0)
		sol, _, err := ACOSolve(context.Background(), in, testConfig(30), seed, nil)
		require.NoError(t, err)
		require.NoError(t, CheckSolution(in, NewDistanceTable(in.Nodes), sol), "seed %d", seed)
	}
}

func TestACORangeLimitedFeasible(t *testing.T) {
	in := randomInstance(11, 15, 5, 20, 160)
	cfg := testConfig(40)
	cfg.LocalSearch = true
	sol, _, err := ACOSolve(context.Background(), in, cfg, 3, nil)
	require.NoError(t, err)
	require.NoError(t, CheckSolution(in, NewDistanceTable(in.Nodes), sol))
}

func TestACOSeededRunsAreReproducible(t *testing.T) {
	in := randomInstance(21, 18, 6, 25, 0)
	cfg := testConfig(40)
	cfg.EliteAnts = 2
	cfg.EliteReinforcement = 20
	a, ma, err := ACOSolve(context.Background(), in, cfg, 42, nil)
	require.NoError(t, err)
	b, mb, err := ACOSolve(context.Background(), in, cfg, 42, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, ma, mb)

	// seed 0 is the default seed
	z, _, err := ACOSolve(context.Background(), in, cfg, 0, nil)
	require.NoError(t, err)
	d, _, err := ACOSolve(context.Background(), in, cfg, defaultSeed, nil)
	require.NoError(t, err)
	assert.Equal(t, z, d)
}

func TestACOBestNeverWorsens(t *testing.T) {
	in := randomInstance(5, 25, 8, 30, 0)
	prev := math.Inf(1)
	calls := 0
	improvements := 0
	_, m, err := ACOSolve(context.Background(), in, testConfig(60), 9, func(s IterationStats) {
		calls++
		require.Equal(t, calls, s.Iteration)
		require.True(t, s.Best.Found())
		require.LessOrEqual(t, s.Best.Cost(), prev)
		if s.Improved {
			improvements++
			require.Less(t, s.Best.Cost(), prev)
			require.Equal(t, s.Iteration, s.Best.Iteration())
		}
		if s.IterationBest != nil {
			require.GreaterOrEqual(t, s.IterationBest.Cost, s.Best.Cost())
		}
		prev = s.Best.Cost()
	})
	require.NoError(t, err)
	assert.Equal(t, 60, calls)
	assert.Equal(t, improvements, m.Improvements)
	assert.InDelta(t, prev, m.BestCost, 1e-12)
}

func TestACOSnapshots(t *testing.T) {
	cfg := testConfig(120)
	cfg.SnapshotEvery = 50
	_, m, err := ACOSolve(context.Background(), squareInstance(10, 0), cfg, 1, nil)
	require.NoError(t, err)
	require.Len(t, m.Snapshots, 3)
	assert.Equal(t, []int{50, 100, 120}, []int{m.Snapshots[0].Iteration, m.Snapshots[1].Iteration, m.Snapshots[2].Iteration})
	for _, s := range m.Snapshots {
		assert.Equal(t, 10, s.Feasible)
		assert.GreaterOrEqual(t, s.IterationBest, s.BestCost)
	}
}

func TestACOCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, m, err := ACOSolve(ctx, squareInstance(10, 0), testConfig(100), 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, m.Iterations)
}

func TestACOCancelledMidRunKeepsBest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sol, m, err := ACOSolve(ctx, squareInstance(10, 0), testConfig(1000), 1, func(s IterationStats) {
		if s.Iteration == 5 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 5, m.Iterations)
	assert.NotEmpty(t, sol.Routes)
}

func TestEvaporationOnlyWhenNoAntIsFeasible(t *testing.T) {
	in := squareInstance(10, 1)
	require.NoError(t, in.Validate())
	cfg := testConfig(3)
	cfg.Evaporation = 0.25
	cfg.InitialPheromone = 2
	col := NewColony(in, NewDistanceTable(in.Nodes), cfg, NewRand(1))
	best, _ := col.Run(context.Background(), nil)
	assert.False(t, best.Found())
	assert.True(t, math.IsInf(best.Cost(), 1))

	want := 2 * math.Pow(0.75, 3)
	for _, row := range col.Pheromones() {
		for _, v := range row {
			assert.InDelta(t, want, v, 1e-12)
		}
	}
}

func TestPheromoneDepositIsSymmetric(t *testing.T) {
	pm := NewPheromoneMatrix(4, 1)
	pm.DepositRoutes([]Route{{0, 2, 3, 0}}, 0.5)
	assert.Equal(t, 1.5, pm.At(0, 2))
	assert.Equal(t, 1.5, pm.At(2, 0))
	assert.Equal(t, 1.5, pm.At(3, 2))
	assert.Equal(t, 1.0, pm.At(1, 2))
	pm.Evaporate(0.5)
	assert.Equal(t, 0.75, pm.At(2, 3))
	assert.Equal(t, 0.5, pm.At(1, 1))
}

func TestEliteAntsGetExtraDeposit(t *testing.T) {
	in := randomInstance(8, 10, 5, 20, 0)
	dt := NewDistanceTable(in.Nodes)
	cfg := testConfig(1)

	plain := NewColony(in, dt, cfg, NewRand(7))
	plainBest, _ := plain.Run(context.Background(), nil)

	cfg.EliteAnts = 1
	cfg.EliteReinforcement = 5
	elite := NewColony(in, dt, cfg, NewRand(7))
	eliteBest, _ := elite.Run(context.Background(), nil)
	require.Equal(t, plainBest, eliteBest, "same seed, same first iteration")

	sol, ok := eliteBest.Solution()
	require.True(t, ok)
	onBest := map[[2]int]int{}
	for _, r := range sol.Routes {
		for i := 0; i+1 < len(r); i++ {
			onBest[[2]int{r[i], r[i+1]}]++
			if r[i] != r[i+1] {
				onBest[[2]int{r[i+1], r[i]}]++
			}
		}
	}
	extra := 5 / sol.Cost
	p, e := plain.Pheromones(), elite.Pheromones()
	for i := range p {
		for j := range p[i] {
			assert.InDelta(t, float64(onBest[[2]int{i, j}])*extra, e[i][j]-p[i][j], 1e-9, "edge %d-%d", i, j)
		}
	}
}

func TestSelectNextPrefersCoincidentNode(t *testing.T) {
	in := squareInstance(10, 0)
	in.Nodes = append(in.Nodes, Node{ID: 5, X: 0, Y: 0})
	in.Demands[5] = 1
	col := NewColony(in, NewDistanceTable(in.Nodes), DefaultConfig(), NewRand(1))
	unvisited := in.Customers()
	feasible := []int{0, 1, 2, 3, 4}
	for i := 0; i < 20; i++ {
		assert.Equal(t, 4, col.selectNext(in.DepotID, unvisited, feasible))
	}
}

func TestSelectNextDegenerateWeightsFallBackToUniform(t *testing.T) {
	in := squareInstance(10, 0)
	col := NewColony(in, NewDistanceTable(in.Nodes), DefaultConfig(), NewRand(3))
	col.pher = NewPheromoneMatrix(len(in.Nodes), 0)
	unvisited := in.Customers()
	feasible := []int{0, 1, 2, 3}
	counts := make([]int, len(feasible))
	for i := 0; i < 4000; i++ {
		k := col.selectNext(in.DepotID, unvisited, feasible)
		require.GreaterOrEqual(t, k, 0)
		require.Less(t, k, len(feasible))
		counts[k]++
	}
	for _, c := range counts {
		assert.InDelta(t, 1000, c, 200)
	}

	col.pher = NewPheromoneMatrix(len(in.Nodes), math.MaxFloat64)
	col.cfg.Alpha = 3
	k := col.selectNext(in.DepotID, unvisited, feasible)
	assert.Contains(t, feasible, k)
}

func TestSelectNextFavoursStrongTrail(t *testing.T) {
	in := squareInstance(10, 0)
	col := NewColony(in, NewDistanceTable(in.Nodes), DefaultConfig(), NewRand(5))
	col.pher.Deposit(0, 3, 1000)
	unvisited := in.Customers()
	hits := 0
	for i := 0; i < 500; i++ {
		if unvisited[col.selectNext(0, unvisited, []int{0, 1, 2, 3})] == 3 {
			hits++
		}
	}
	assert.Greater(t, hits, 450)
}
