package opt

import "math"

// DistanceTable holds pairwise Euclidean distances in one row-major buffer (i*n+j).
type DistanceTable struct {
	n int
	d []float64
}

// NewDistanceTable computes the symmetric n×n table for nodes, indexed by position.
func NewDistanceTable(nodes []Node) *DistanceTable {
	n := len(nodes)
	dt := &DistanceTable{n: n, d: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := euclidean(nodes[i], nodes[j])
			dt.d[i*n+j] = v
			dt.d[j*n+i] = v
		}
	}
	return dt
}

// At returns the distance between node ids i and j.
func (dt *DistanceTable) At(i, j int) float64 {
	if i < 0 || j < 0 || i >= dt.n || j >= dt.n {
		panic("opt: distance index out of range")
	}
	return dt.d[i*dt.n+j]
}

// Len is the number of nodes covered by the table.
func (dt *DistanceTable) Len() int { return dt.n }

func euclidean(a, b Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
