// Command cvrp solves a TSPLIB CVRP file with the greedy constructor and the ant colony optimizer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"

	"antroute/internal/buildinfo"
	"antroute/internal/config"
	"antroute/internal/opt"
	"antroute/internal/vrpfile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file        string
	configPath  string
	algo        string
	printProb   bool
	printIter   bool
	printRoutes bool
	skipDepot   bool
	sysinfo     bool
	elite       int
	eliteReinf  float64
	seed        int64
	iterations  int
	ants        int
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("cvrp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "f", "", "Path to the TSPLIB CVRP file")
	fs.BoolVar(&o.printProb, "p", false, "Print the problem details")
	fs.BoolVar(&o.printIter, "i", false, "Print iterations with best cost")
	fs.BoolVar(&o.printRoutes, "r", false, "Print routes for iterations")
	fs.IntVar(&o.elite, "e", -1, "Number of elite ants (default from config)")
	fs.Float64Var(&o.eliteReinf, "ee", -1, "Reinforcement for elite ants (default from config)")
	fs.StringVar(&o.configPath, "config", os.Getenv(config.EnvFile), "Path to a YAML config file")
	fs.Int64Var(&o.seed, "seed", 0, "Random seed for the colony (0 = fixed default)")
	fs.IntVar(&o.iterations, "iterations", 0, "Colony iterations (default from config)")
	fs.IntVar(&o.ants, "ants", 0, "Ants per iteration (default from config)")
	fs.BoolVar(&o.skipDepot, "skip-depot", false, "Omit the depot from printed routes")
	fs.StringVar(&o.algo, "algo", "both", "Algorithm to run: greedy, aco or both")
	fs.BoolVar(&o.sysinfo, "sysinfo", false, "Print host, CPU and memory information")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if o.file == "" {
		fmt.Fprintln(stderr, "missing -f file")
		fs.Usage()
		return 2
	}
	o.algo = strings.ToLower(o.algo)
	if o.algo != "both" && o.algo != opt.AlgoGreedy && o.algo != opt.AlgoACO {
		fmt.Fprintf(stderr, "unknown -algo %q (greedy, aco or both)\n", o.algo)
		return 2
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	aco := cfg.ACO.Opt()
	if o.elite >= 0 {
		aco.EliteAnts = o.elite
	}
	if o.eliteReinf >= 0 {
		aco.EliteReinforcement = o.eliteReinf
	}
	if o.iterations > 0 {
		aco.Iterations = o.iterations
	}
	if o.ants > 0 {
		aco.Ants = o.ants
	}
	if err := aco.Validate(); err != nil {
		fmt.Fprintf(stderr, "aco: %v\n", err)
		return 1
	}

	in, err := vrpfile.ParseFile(o.file)
	if err != nil {
		fmt.Fprintf(stderr, "At %s: %v\n", o.file, err)
		return 1
	}
	if o.sysinfo {
		printSysInfo(stdout)
	}
	if o.printProb {
		printProblem(stdout, in)
	}

	if o.algo != opt.AlgoACO {
		fmt.Fprintln(stdout, "\nRunning greedy algorithm")
		sol, err := opt.GreedySolve(in)
		switch {
		case errors.Is(err, opt.ErrInfeasibleInstance):
			fmt.Fprintln(stdout, "No solution found")
		case err != nil:
			fmt.Fprintln(stderr, err)
			return 1
		default:
			printSolution(stdout, sol, o.skipDepot)
		}
	}

	if o.algo != opt.AlgoGreedy {
		fmt.Fprintln(stdout, "\nRunning ant colony optimization algorithm")
		sol, _, err := opt.ACOSolve(ctx, in, aco, o.seed, iterationPrinter(stdout, o))
		switch {
		case errors.Is(err, opt.ErrNoSolution), errors.Is(err, context.Canceled):
			fmt.Fprintln(stdout, "No solution found")
		case err != nil:
			fmt.Fprintln(stderr, err)
			return 1
		default:
			printSolution(stdout, sol, o.skipDepot)
		}
	}
	return 0
}

// iterationPrinter reports per-iteration progress for -i and -r; nil when neither is set.
func iterationPrinter(w io.Writer, o options) opt.IterationFunc {
	if !o.printIter && !o.printRoutes {
		return nil
	}
	return func(st opt.IterationStats) {
		if o.printIter {
			if st.Best.Found() {
				fmt.Fprintf(w, "Iteration %d: best cost %.2f (%d/%d ants feasible)\n", st.Iteration, st.Best.Cost(), st.Feasible, st.Feasible+st.Infeasible)
			} else {
				fmt.Fprintf(w, "Iteration %d: no feasible ant\n", st.Iteration)
			}
		}
		if o.printRoutes && st.IterationBest != nil {
			printRoutes(w, st.IterationBest.Routes, o.skipDepot)
		}
	}
}

func printSolution(w io.Writer, sol opt.Solution, skipDepot bool) {
	printRoutes(w, sol.Routes, skipDepot)
	fmt.Fprintf(w, "Cost %d\n", int(sol.Cost))
}

func printRoutes(w io.Writer, routes []opt.Route, skipDepot bool) {
	for k, r := range routes {
		ids := make([]string, 0, len(r))
		for _, id := range r.Stops(skipDepot) {
			ids = append(ids, fmt.Sprint(id))
		}
		fmt.Fprintf(w, "Route #%d: %s\n", k+1, strings.Join(ids, " "))
	}
}

func printProblem(w io.Writer, in *opt.Instance) {
	fmt.Fprintf(w, "Name: %s\n", in.Name)
	fmt.Fprintf(w, "Comment: %s\n", in.Comment)
	fmt.Fprintf(w, "Number of Vehicles: %d\n", in.Vehicles)
	fmt.Fprintf(w, "Vehicle Capacity: %v\n", in.VehicleCapacity)
	fmt.Fprintf(w, "Vehicle Range: %v\n", in.VehicleRange)
	fmt.Fprintf(w, "Depot ID: %d\n", in.DepotID)
	fmt.Fprintln(w, "Nodes:")
	for _, n := range in.Nodes {
		fmt.Fprintf(w, "ID: %d X: %v Y: %v\n", n.ID, n.X, n.Y)
	}
	fmt.Fprintln(w, "Demands:")
	for _, id := range in.Customers() {
		fmt.Fprintf(w, "ID: %d Demand: %v\n", id, in.Demand(id))
	}
}

// printSysInfo reports what machine produced the numbers; lookups that fail are shown as unknown.
func printSysInfo(w io.Writer) {
	platform, model, memory := "unknown", "unknown", "unknown"
	if hs, err := host.Info(); err == nil && hs != nil {
		platform = strings.TrimSpace(hs.Platform + " " + hs.PlatformVersion)
	}
	if cs, err := cpu.Info(); err == nil && len(cs) > 0 {
		model = cs[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		memory = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	fmt.Fprintf(w, "antroute %s\n", buildinfo.String())
	fmt.Fprintf(w, "System: %s, %s, %s\n", platform, model, memory)
}
