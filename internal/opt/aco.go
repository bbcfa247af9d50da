package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Config holds the colony parameters. All fields are fixed for the lifetime of a Colony.
type Config struct {
	Ants               int     // ants per iteration
	Alpha              float64 // pheromone exponent
	Beta               float64 // visibility (1/distance) exponent
	Evaporation        float64 // fraction of every trail removed per iteration, in [0,1)
	Deposit            float64 // Q: each feasible ant lays Q/cost on its edges
	InitialPheromone   float64
	Iterations         int
	EliteAnts          int     // cheapest ants per iteration that get an extra deposit; 0 disables
	EliteReinforcement float64 // extra deposit numerator for elite ants
	LocalSearch        bool    // 2-opt every ant's routes before costing
	SnapshotEvery      int     // record a CostSnapshot every N iterations; 0 = default 50
}

// DefaultConfig is the classic CLI parameter set: 10 ants, α=1, β=2, ρ=0.5, Q=10, τ0=1, 5000 iterations.
func DefaultConfig() Config {
	return Config{
		Ants:             10,
		Alpha:            1.0,
		Beta:             2.0,
		Evaporation:      0.5,
		Deposit:          10.0,
		InitialPheromone: 1.0,
		Iterations:       5000,
		SnapshotEvery:    50,
	}
}

func (c Config) Validate() error {
	if c.Ants < 1 {
		return fmt.Errorf("ants must be >= 1 (got %d)", c.Ants)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be >= 1 (got %d)", c.Iterations)
	}
	if math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) || c.Alpha < 0 {
		return fmt.Errorf("alpha must be finite and >= 0 (got %v)", c.Alpha)
	}
	if math.IsNaN(c.Beta) || math.IsInf(c.Beta, 0) || c.Beta < 0 {
		return fmt.Errorf("beta must be finite and >= 0 (got %v)", c.Beta)
	}
	if !(c.Evaporation >= 0 && c.Evaporation < 1) {
		return fmt.Errorf("evaporation must be in [0,1) (got %v)", c.Evaporation)
	}
	if !(c.Deposit > 0) || math.IsInf(c.Deposit, 0) {
		return fmt.Errorf("deposit must be positive (got %v)", c.Deposit)
	}
	if !(c.InitialPheromone > 0) || math.IsInf(c.InitialPheromone, 0) {
		return fmt.Errorf("initial pheromone must be positive (got %v)", c.InitialPheromone)
	}
	if c.EliteAnts < 0 {
		return fmt.Errorf("elite ants must be >= 0 (got %d)", c.EliteAnts)
	}
	if c.EliteReinforcement < 0 || math.IsNaN(c.EliteReinforcement) {
		return fmt.Errorf("elite reinforcement must be >= 0 (got %v)", c.EliteReinforcement)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot interval must be >= 0 (got %d)", c.SnapshotEvery)
	}
	return nil
}

// Best is the outcome of a colony run: either a found solution or nothing.
type Best struct {
	sol       Solution
	iteration int
	found     bool
}

func (b Best) Found() bool { return b.found }

// Solution returns the best solution and whether one was found.
func (b Best) Solution() (Solution, bool) { return b.sol, b.found }

// Cost is the best cost, +Inf when nothing was found.
func (b Best) Cost() float64 {
	if !b.found {
		return math.Inf(1)
	}
	return b.sol.Cost
}

// Iteration is the 1-based iteration that produced the best solution, 0 when none.
func (b Best) Iteration() int { return b.iteration }

// IterationStats is handed to the observer after every iteration. It is diagnostic only.
type IterationStats struct {
	Iteration     int
	Feasible      int
	Infeasible    int
	IterationBest *Solution // nil when no ant was feasible
	Best          Best
	Improved      bool
}

// IterationFunc observes iteration progress.
type IterationFunc func(IterationStats)

type Metrics struct {
	Iterations      int
	FeasibleAnts    int
	InfeasibleAnts  int
	EmptyIterations int
	Improvements    int
	Found           bool
	BestCost        float64
	BestIteration   int
	Snapshots       []CostSnapshot
}

type CostSnapshot struct {
	Iteration     int
	Feasible      int
	IterationBest float64 // 0 when Feasible == 0
	BestCost      float64 // 0 until a solution is found
}

// Colony runs ant colony optimisation over one instance. It owns its pheromone matrix and
// random source; it is not safe for concurrent use.
type Colony struct {
	cfg  Config
	in   *Instance
	dt   *DistanceTable
	ev   Evaluator
	pher *PheromoneMatrix
	rng  *rand.Rand

	weights  []float64
	feasible []int
}

// NewColony wires a colony. A nil rng uses the fixed default seed.
func NewColony(in *Instance, dt *DistanceTable, cfg Config, rng *rand.Rand) *Colony {
	if rng == nil {
		rng = rngFromSeed(0)
	}
	if cfg.SnapshotEvery == 0 {
		cfg.SnapshotEvery = 50
	}
	return &Colony{
		cfg:  cfg,
		in:   in,
		dt:   dt,
		ev:   NewEvaluator(dt),
		pher: NewPheromoneMatrix(dt.Len(), cfg.InitialPheromone),
		rng:  rng,
	}
}

// Pheromones returns a copy of the current trail matrix.
func (c *Colony) Pheromones() [][]float64 { return c.pher.Snapshot() }

// Run executes cfg.Iterations iterations, or fewer when ctx is cancelled between iterations.
// Trails are reset to InitialPheromone at the start of every run.
func (c *Colony) Run(ctx context.Context, onIteration IterationFunc) (Best, Metrics) {
	c.pher = NewPheromoneMatrix(c.dt.Len(), c.cfg.InitialPheromone)
	var best Best
	m := Metrics{}
	pool := make([]Solution, 0, c.cfg.Ants)
	for it := 1; it <= c.cfg.Iterations; it++ {
		if ctx.Err() != nil {
			break
		}
		m.Iterations++
		pool = pool[:0]
		for a := 0; a < c.cfg.Ants; a++ {
			if sol, ok := c.constructAnt(); ok {
				pool = append(pool, sol)
			}
		}
		m.FeasibleAnts += len(pool)
		m.InfeasibleAnts += c.cfg.Ants - len(pool)

		stats := IterationStats{Iteration: it, Feasible: len(pool), Infeasible: c.cfg.Ants - len(pool)}
		iterBest := -1
		for i := range pool {
			if iterBest < 0 || pool[i].Cost < pool[iterBest].Cost {
				iterBest = i
			}
		}
		if iterBest >= 0 {
			ib := pool[iterBest]
			stats.IterationBest = &ib
			if !best.found || ib.Cost < best.sol.Cost {
				best = Best{sol: ib.Clone(), iteration: it, found: true}
				m.Improvements++
				stats.Improved = true
			}
		}

		c.pher.Evaporate(c.cfg.Evaporation)
		if len(pool) == 0 {
			m.EmptyIterations++
		} else {
			c.deposit(pool)
		}

		if it%c.cfg.SnapshotEvery == 0 || it == c.cfg.Iterations {
			snap := CostSnapshot{Iteration: it, Feasible: len(pool)}
			if iterBest >= 0 {
				snap.IterationBest = pool[iterBest].Cost
			}
			if best.found {
				snap.BestCost = best.sol.Cost
			}
			m.Snapshots = append(m.Snapshots, snap)
		}
		stats.Best = best
		if onIteration != nil {
			onIteration(stats)
		}
	}
	m.Found = best.found
	if best.found {
		m.BestCost = best.sol.Cost
		m.BestIteration = best.iteration
	}
	return best, m
}

// constructAnt builds one candidate solution. ok is false when a fresh vehicle cannot serve any of
// the remaining customers; such an ant is discarded by the caller.
func (c *Colony) constructAnt() (Solution, bool) {
	unvisited := c.in.Customers()
	routes := []Route{}
	v := newVehicle(c.in, c.dt)
	for len(unvisited) > 0 {
		c.feasible = c.feasible[:0]
		for i, cu := range unvisited {
			if v.canServe(cu) {
				c.feasible = append(c.feasible, i)
			}
		}
		if len(c.feasible) == 0 {
			if v.empty() {
				return Solution{}, false
			}
			routes = append(routes, v.close())
			v.reset()
			continue
		}
		k := c.selectNext(v.current, unvisited, c.feasible)
		v.visit(unvisited[k])
		unvisited = append(unvisited[:k], unvisited[k+1:]...)
	}
	if !v.empty() {
		routes = append(routes, v.close())
	}
	if c.cfg.LocalSearch {
		for i := range routes {
			routes[i] = twoOptRoute(c.ev, routes[i])
		}
	}
	return Solution{Routes: routes, Cost: c.ev.SolutionCost(routes)}, true
}

// selectNext draws the next customer by roulette over τ^α·(1/d)^β and returns its index in unvisited.
// feasible holds indexes into unvisited, in ascending id order.
func (c *Colony) selectNext(current int, unvisited, feasible []int) int {
	c.weights = c.weights[:0]
	sum := 0.0
	for _, i := range feasible {
		cand := unvisited[i]
		d := c.dt.At(current, cand)
		if d == 0 {
			// coincident nodes: infinite visibility
			return i
		}
		w := math.Pow(c.pher.At(current, cand), c.cfg.Alpha) * math.Pow(1/d, c.cfg.Beta)
		c.weights = append(c.weights, w)
		sum += w
	}
	r := c.rng.Float64()
	if !(sum > 0) || math.IsInf(sum, 0) {
		return feasible[int(r*float64(len(feasible)))]
	}
	cum := 0.0
	for k, w := range c.weights {
		cum += w / sum
		if r < cum {
			return feasible[k]
		}
	}
	// rounding left cum just below 1
	return feasible[len(feasible)-1]
}

// deposit reinforces every feasible ant, then the elite ones again.
func (c *Colony) deposit(pool []Solution) {
	for _, s := range pool {
		c.pher.DepositRoutes(s.Routes, share(c.cfg.Deposit, s.Cost))
	}
	if c.cfg.EliteAnts == 0 || c.cfg.EliteReinforcement == 0 {
		return
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pool[order[a]].Cost < pool[order[b]].Cost })
	for k := 0; k < c.cfg.EliteAnts && k < len(order); k++ {
		s := pool[order[k]]
		c.pher.DepositRoutes(s.Routes, share(c.cfg.EliteReinforcement, s.Cost))
	}
}

// share is numerator/cost; a zero-length solution lays nothing.
func share(numerator, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return numerator / cost
}
