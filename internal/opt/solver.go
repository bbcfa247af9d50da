package opt

import (
	"context"
	"errors"
	"fmt"
)

const (
	AlgoGreedy = "greedy"
	AlgoACO    = "aco"
)

// ErrInvalidConfig wraps colony parameter errors.
var ErrInvalidConfig = errors.New("invalid optimizer config")

// Solver is the capability shared by both strategies. Neither variant holds state across calls
// beyond its own configuration.
type Solver interface {
	Name() string
	Solve(ctx context.Context, in *Instance) (Solution, error)
}

// GreedySolver is the deterministic nearest-feasible-neighbour strategy.
type GreedySolver struct{}

func (GreedySolver) Name() string { return AlgoGreedy }

func (GreedySolver) Solve(_ context.Context, in *Instance) (Solution, error) {
	return GreedySolve(in)
}

// ACOSolver is the ant colony strategy. Metrics of the latest Solve are kept in LastMetrics.
type ACOSolver struct {
	Config      Config
	Seed        int64
	OnIteration IterationFunc
	LastMetrics Metrics
}

func (s *ACOSolver) Name() string { return AlgoACO }

func (s *ACOSolver) Solve(ctx context.Context, in *Instance) (Solution, error) {
	sol, m, err := ACOSolve(ctx, in, s.Config, s.Seed, s.OnIteration)
	s.LastMetrics = m
	return sol, err
}

// NewSolver returns the strategy registered under algo.
func NewSolver(algo string, cfg Config, seed int64) (Solver, error) {
	switch algo {
	case AlgoGreedy:
		return GreedySolver{}, nil
	case AlgoACO, "":
		return &ACOSolver{Config: cfg, Seed: seed}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}
}

// GreedySolve validates in and runs the greedy constructor once.
func GreedySolve(in *Instance) (Solution, error) {
	if err := in.Validate(); err != nil {
		return Solution{}, err
	}
	return NewGreedy(in, NewDistanceTable(in.Nodes)).Solve()
}

// ACOSolve validates in and cfg, then runs a colony seeded with seed (0 = default seed).
// A run that never finds a feasible solution returns ErrNoSolution, or ctx.Err() when it was
// cut short by cancellation. A cancelled run that did find something returns it without error.
func ACOSolve(ctx context.Context, in *Instance, cfg Config, seed int64, onIteration IterationFunc) (Solution, Metrics, error) {
	if err := in.Validate(); err != nil {
		return Solution{}, Metrics{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Solution{}, Metrics{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	col := NewColony(in, NewDistanceTable(in.Nodes), cfg, rngFromSeed(seed))
	best, m := col.Run(ctx, onIteration)
	sol, ok := best.Solution()
	if !ok {
		if err := ctx.Err(); err != nil {
			return Solution{}, m, err
		}
		return Solution{}, m, ErrNoSolution
	}
	return sol, m, nil
}
