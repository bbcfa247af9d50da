package model

// Wire types for the HTTP API. Node ids are 0-based, matching the solver.

type NodeIn struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Demand float64 `json:"demand,omitempty"`
}

type InstanceIn struct {
	Name     string   `json:"name,omitempty"`
	Comment  string   `json:"comment,omitempty"`
	DepotID  int      `json:"depotId"`
	Nodes    []NodeIn `json:"nodes"`
	Capacity float64  `json:"capacity"`
	Range    float64  `json:"range,omitempty"` // 0 = unconstrained
	Vehicles int      `json:"vehicles,omitempty"`
}

// ACOParams overrides the server's colony defaults. Nil fields keep the default.
type ACOParams struct {
	Ants               *int     `json:"ants,omitempty"`
	Alpha              *float64 `json:"alpha,omitempty"`
	Beta               *float64 `json:"beta,omitempty"`
	Evaporation        *float64 `json:"evaporation,omitempty"`
	Deposit            *float64 `json:"deposit,omitempty"`
	InitialPheromone   *float64 `json:"initialPheromone,omitempty"`
	Iterations         *int     `json:"iterations,omitempty"`
	EliteAnts          *int     `json:"eliteAnts,omitempty"`
	EliteReinforcement *float64 `json:"eliteReinforcement,omitempty"`
	LocalSearch        *bool    `json:"localSearch,omitempty"`
}

type SolveRequest struct {
	Algorithm      string      `json:"algorithm,omitempty"` // greedy | aco (default)
	Instance       *InstanceIn `json:"instance,omitempty"`
	VRP            string      `json:"vrp,omitempty"` // TSPLIB text, alternative to instance
	ACO            *ACOParams  `json:"aco,omitempty"`
	Seed           int64       `json:"seed,omitempty"`
	SkipDepot      bool        `json:"skipDepot,omitempty"`
	Async          bool        `json:"async,omitempty"`
	CallbackURL    string      `json:"callbackUrl,omitempty"`
	CallbackSecret string      `json:"callbackSecret,omitempty"`
}

// Run statuses.
const (
	RunRunning    = "running"
	RunCompleted  = "completed"
	RunNoSolution = "no_solution"
	RunFailed     = "failed"
	RunCancelled  = "cancelled"
)

type RouteOut struct {
	Index  int     `json:"index"`
	Stops  []int   `json:"stops"`
	Load   float64 `json:"load"`
	Length float64 `json:"length"`
}

type Run struct {
	ID            string     `json:"id"`
	Algorithm     string     `json:"algorithm"`
	Instance      string     `json:"instance,omitempty"`
	Status        string     `json:"status"`
	Seed          int64      `json:"seed,omitempty"`
	SkipDepot     bool       `json:"skipDepot,omitempty"`
	Cost          *float64   `json:"cost,omitempty"`
	Routes        []RouteOut `json:"routes,omitempty"`
	Iterations    int        `json:"iterations,omitempty"`
	BestIteration int        `json:"bestIteration,omitempty"`
	FeasibleAnts  int        `json:"feasibleAnts,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     string     `json:"createdAt"`
	CompletedAt   string     `json:"completedAt,omitempty"`
	DurationMs    int64      `json:"durationMs,omitempty"`
	CallbackURL   string     `json:"callbackUrl,omitempty"`
}

// Done reports whether the run reached a terminal status.
func (r Run) Done() bool {
	return r.Status != RunRunning && r.Status != ""
}

type RunList struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// IterationSnapshot is a sampled point of a colony run's cost curve.
type IterationSnapshot struct {
	Iteration     int     `json:"iteration"`
	Feasible      int     `json:"feasible"`
	IterationBest float64 `json:"iterationBest,omitempty"`
	BestCost      float64 `json:"bestCost,omitempty"`
}

// Progress event types, used by SSE, WebSocket and webhooks.
const (
	EventRunIteration = "run.iteration"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

type RunEvent struct {
	Type      string   `json:"type"`
	RunID     string   `json:"runId"`
	Iteration int      `json:"iteration,omitempty"`
	Feasible  int      `json:"feasible,omitempty"`
	BestCost  *float64 `json:"bestCost,omitempty"`
	Improved  bool     `json:"improved,omitempty"`
	Run       *Run     `json:"run,omitempty"`
	TS        string   `json:"ts"`
}

// OptimizerConfig is the effective colony configuration served at /v1/optimizer/config.
type OptimizerConfig struct {
	Ants               int     `json:"ants"`
	Alpha              float64 `json:"alpha"`
	Beta               float64 `json:"beta"`
	Evaporation        float64 `json:"evaporation"`
	Deposit            float64 `json:"deposit"`
	InitialPheromone   float64 `json:"initialPheromone"`
	Iterations         int     `json:"iterations"`
	EliteAnts          int     `json:"eliteAnts"`
	EliteReinforcement float64 `json:"eliteReinforcement"`
	LocalSearch        bool    `json:"localSearch"`
	SnapshotEvery      int     `json:"snapshotEvery"`
	MaxNodes           int     `json:"maxNodes"`
	MaxIterations      int     `json:"maxIterations"`
}
