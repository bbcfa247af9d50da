package opt

// PheromoneMatrix stores trail strength per node pair in one row-major buffer.
// Deposits are symmetric: both (a,b) and (b,a) receive the same amount.
type PheromoneMatrix struct {
	n int
	v []float64
}

func NewPheromoneMatrix(n int, initial float64) *PheromoneMatrix {
	pm := &PheromoneMatrix{n: n, v: make([]float64, n*n)}
	for i := range pm.v {
		pm.v[i] = initial
	}
	return pm
}

// At returns the trail on edge (i,j).
func (pm *PheromoneMatrix) At(i, j int) float64 { return pm.v[i*pm.n+j] }

// Evaporate scales every cell by (1 - rate).
func (pm *PheromoneMatrix) Evaporate(rate float64) {
	keep := 1 - rate
	for i := range pm.v {
		pm.v[i] *= keep
	}
}

// Deposit adds amount to (a,b) and (b,a).
func (pm *PheromoneMatrix) Deposit(a, b int, amount float64) {
	pm.v[a*pm.n+b] += amount
	if a != b {
		pm.v[b*pm.n+a] += amount
	}
}

// DepositRoutes lays amount on every consecutive pair of every route.
func (pm *PheromoneMatrix) DepositRoutes(routes []Route, amount float64) {
	for _, r := range routes {
		for i := 0; i+1 < len(r); i++ {
			pm.Deposit(r[i], r[i+1], amount)
		}
	}
}

// Snapshot copies the matrix as nested rows, for diagnostics and tests.
func (pm *PheromoneMatrix) Snapshot() [][]float64 {
	out := make([][]float64, pm.n)
	for i := range out {
		out[i] = append([]float64(nil), pm.v[i*pm.n:(i+1)*pm.n]...)
	}
	return out
}
