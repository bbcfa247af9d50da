package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"antroute/internal/metrics"
	"antroute/internal/model"
	"antroute/internal/opt"
	"antroute/internal/vrpfile"
)

// buildInstance turns the request body into a solver instance. Structural problems are reported
// wrapped in opt.ErrInvalidInstance or vrpfile.ErrSyntax.
func buildInstance(req *model.SolveRequest, maxNodes int) (*opt.Instance, error) {
	if req.Instance == nil {
		in, err := vrpfile.Parse(strings.NewReader(req.VRP))
		if err != nil {
			return nil, err
		}
		if len(in.Nodes) > maxNodes {
			return nil, fmt.Errorf("%w: %d nodes, limit is %d", opt.ErrInvalidInstance, len(in.Nodes), maxNodes)
		}
		return in, nil
	}
	src := req.Instance
	nodes := append([]model.NodeIn(nil), src.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	in := &opt.Instance{
		Name:            src.Name,
		Comment:         src.Comment,
		DepotID:         src.DepotID,
		Nodes:           make([]opt.Node, len(nodes)),
		Demands:         map[int]float64{},
		VehicleCapacity: src.Capacity,
		VehicleRange:    src.Range,
		Vehicles:        src.Vehicles,
	}
	for i, n := range nodes {
		in.Nodes[i] = opt.Node{ID: n.ID, X: n.X, Y: n.Y}
		if n.Demand != 0 {
			in.Demands[n.ID] = n.Demand
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// solveJob is one accepted solve request.
type solveJob struct {
	run    model.Run
	in     *opt.Instance
	cfg    opt.Config
	secret string
}

// solveContext bounds a solve by the configured timeout.
func (s *Server) solveContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.Config.SolveTimeout > 0 {
		return context.WithTimeout(parent, s.Config.SolveTimeout)
	}
	return context.WithCancel(parent)
}

// execute runs the solver, persists the outcome and fans it out to subscribers and the callback.
func (s *Server) execute(ctx context.Context, job solveJob) model.Run {
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	run := job.run
	start := time.Now()

	var (
		sol opt.Solution
		m   opt.Metrics
		err error
	)
	if run.Algorithm == opt.AlgoGreedy {
		sol, err = opt.GreedySolve(job.in)
		if err == nil {
			m = opt.Metrics{Iterations: 1, FeasibleAnts: 1, Found: true, BestCost: sol.Cost, BestIteration: 1}
		}
	} else {
		sol, m, err = opt.ACOSolve(ctx, job.in, job.cfg, run.Seed, s.progress(run.ID, job.cfg))
	}
	if err == nil {
		err = opt.CheckSolution(job.in, opt.NewDistanceTable(job.in.Nodes), sol)
		if err != nil {
			err = fmt.Errorf("solution check: %w", err)
		}
	}

	run.Status = runStatus(ctx, err)
	run.Iterations = m.Iterations
	run.FeasibleAnts = m.FeasibleAnts
	if err != nil {
		run.Error = err.Error()
	}
	if err == nil {
		cost := sol.Cost
		run.Cost = &cost
		run.BestIteration = m.BestIteration
		run.Routes = routesOut(job.in, sol, run.SkipDepot)
	}
	done := time.Now()
	run.CompletedAt = done.UTC().Format(time.RFC3339)
	run.DurationMs = done.Sub(start).Milliseconds()

	metrics.SolveRuns.WithLabelValues(run.Algorithm, run.Status).Inc()
	metrics.SolveDuration.WithLabelValues(run.Algorithm).Observe(done.Sub(start).Seconds())
	if run.Cost != nil {
		metrics.BestCost.WithLabelValues(run.Algorithm).Set(*run.Cost)
	}
	if job.in.Name != "" {
		opt.RecordMetrics(job.in.Name, run.Algorithm, m)
	}

	// the solve context may be gone; persistence gets its own deadline
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if len(m.Snapshots) > 0 {
		if err := s.Store.SaveIterations(pctx, run.ID, snapshotsOut(m.Snapshots)); err != nil {
			log.Printf("run %s: save iterations: %v", run.ID, err)
		}
	}
	if err := s.Store.UpdateRun(pctx, run); err != nil {
		log.Printf("run %s: update: %v", run.ID, err)
	}
	evt := terminalRunEvent(run)
	s.Broker.Publish(run.ID, evt)
	if _, err := s.Pub.Emit(pctx, run.ID, evt.Type, run.CallbackURL, job.secret, run); err != nil {
		log.Printf("run %s: enqueue callback: %v", run.ID, err)
	}
	log.Printf("run %s %s: %s in %dms", run.ID, run.Algorithm, run.Status, run.DurationMs)
	return run
}

// progress publishes iteration events: every improvement plus one per snapshot interval.
func (s *Server) progress(runID string, cfg opt.Config) opt.IterationFunc {
	every := cfg.SnapshotEvery
	if every <= 0 {
		every = 50
	}
	return func(st opt.IterationStats) {
		if st.Feasible > 0 {
			metrics.ColonyIterations.WithLabelValues("feasible").Inc()
		} else {
			metrics.ColonyIterations.WithLabelValues("empty").Inc()
		}
		if !st.Improved && st.Iteration%every != 0 {
			return
		}
		evt := model.RunEvent{
			Type:      model.EventRunIteration,
			RunID:     runID,
			Iteration: st.Iteration,
			Feasible:  st.Feasible,
			Improved:  st.Improved,
			TS:        time.Now().UTC().Format(time.RFC3339),
		}
		if st.Best.Found() {
			c := st.Best.Cost()
			evt.BestCost = &c
		}
		s.Broker.Publish(runID, evt)
	}
}

// runStatus maps the solver outcome to a run status.
func runStatus(ctx context.Context, err error) string {
	switch {
	case err == nil && ctx.Err() != nil:
		// cut short, but the best found so far is kept
		return model.RunCancelled
	case err == nil:
		return model.RunCompleted
	case errors.Is(err, opt.ErrNoSolution), errors.Is(err, opt.ErrInfeasibleInstance):
		return model.RunNoSolution
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.RunCancelled
	default:
		return model.RunFailed
	}
}

// terminalRunEvent is the last event of a run: run.completed when the solver ran to the end
// (with or without a solution), run.failed otherwise.
func terminalRunEvent(run model.Run) model.RunEvent {
	typ := model.EventRunFailed
	if run.Status == model.RunCompleted || run.Status == model.RunNoSolution {
		typ = model.EventRunCompleted
	}
	return model.RunEvent{Type: typ, RunID: run.ID, Iteration: run.Iterations, BestCost: run.Cost, Run: &run, TS: run.CompletedAt}
}

func routesOut(in *opt.Instance, sol opt.Solution, skipDepot bool) []model.RouteOut {
	ev := opt.NewEvaluator(opt.NewDistanceTable(in.Nodes))
	out := make([]model.RouteOut, len(sol.Routes))
	for i, r := range sol.Routes {
		out[i] = model.RouteOut{
			Index:  i + 1,
			Stops:  r.Stops(skipDepot),
			Load:   opt.RouteLoad(in, r),
			Length: ev.RouteCost(r),
		}
	}
	return out
}

func snapshotsOut(snaps []opt.CostSnapshot) []model.IterationSnapshot {
	out := make([]model.IterationSnapshot, len(snaps))
	for i, sn := range snaps {
		out[i] = model.IterationSnapshot{
			Iteration:     sn.Iteration,
			Feasible:      sn.Feasible,
			IterationBest: sn.IterationBest,
			BestCost:      sn.BestCost,
		}
	}
	return out
}
