package opt

import (
	"math"
	"math/rand"
)

// squareInstance places the depot at the origin and four unit-demand customers on the corners of a
// 2×2 square around it.
func squareInstance(capacity, vehicleRange float64) *Instance {
	return &Instance{
		Name:    "square",
		DepotID: 0,
		Nodes: []Node{
			{ID: 0, X: 0, Y: 0},
			{ID: 1, X: 1, Y: 1},
			{ID: 2, X: 1, Y: -1},
			{ID: 3, X: -1, Y: -1},
			{ID: 4, X: -1, Y: 1},
		},
		Demands:         map[int]float64{1: 1, 2: 1, 3: 1, 4: 1},
		VehicleCapacity: capacity,
		VehicleRange:    vehicleRange,
	}
}

// randomInstance scatters n customers with demands 1..maxDemand on a 100×100 grid.
func randomInstance(seed int64, n int, maxDemand int, capacity, vehicleRange float64) *Instance {
	r := rand.New(rand.NewSource(seed))
	in := &Instance{
		Name:            "random",
		DepotID:         0,
		Nodes:           []Node{{ID: 0, X: 50, Y: 50}},
		Demands:         map[int]float64{},
		VehicleCapacity: capacity,
		VehicleRange:    vehicleRange,
	}
	for i := 1; i <= n; i++ {
		in.Nodes = append(in.Nodes, Node{ID: i, X: r.Float64() * 100, Y: r.Float64() * 100})
		in.Demands[i] = float64(1 + r.Intn(maxDemand))
	}
	return in
}

// bruteForceSingleRoute is the shortest depot-to-depot tour through every customer.
func bruteForceSingleRoute(in *Instance) float64 {
	dt := NewDistanceTable(in.Nodes)
	ev := NewEvaluator(dt)
	cs := in.Customers()
	best := math.Inf(1)
	var permute func(k int)
	permute = func(k int) {
		if k == len(cs) {
			r := append(Route{in.DepotID}, cs...)
			r = append(r, in.DepotID)
			if c := ev.RouteCost(r); c < best {
				best = c
			}
			return
		}
		for i := k; i < len(cs); i++ {
			cs[k], cs[i] = cs[i], cs[k]
			permute(k + 1)
			cs[k], cs[i] = cs[i], cs[k]
		}
	}
	permute(0)
	return best
}

func testConfig(iterations int) Config {
	cfg := DefaultConfig()
	cfg.Iterations = iterations
	return cfg
}
