package opt

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceValidate(t *testing.T) {
	require.NoError(t, squareInstance(4, 0).Validate())

	cases := map[string]func(in *Instance){
		"no nodes":          func(in *Instance) { in.Nodes = nil },
		"depot missing":     func(in *Instance) { in.DepotID = 9 },
		"unknown demand id": func(in *Instance) { in.Demands[17] = 1 },
		"negative demand":   func(in *Instance) { in.Demands[2] = -1 },
		"depot demand":      func(in *Instance) { in.Demands[0] = 3 },
		"zero capacity":     func(in *Instance) { in.VehicleCapacity = 0 },
		"negative capacity": func(in *Instance) { in.VehicleCapacity = -5 },
		"negative range":    func(in *Instance) { in.VehicleRange = -1 },
		"gap in ids":        func(in *Instance) { in.Nodes[3].ID = 7 },
		"nan coordinate":    func(in *Instance) { in.Nodes[1].X = math.NaN() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := squareInstance(4, 0)
			mutate(in)
			err := in.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInstance), "got %v", err)
		})
	}
}

func TestSolversRefuseInvalidInstance(t *testing.T) {
	in := squareInstance(4, 0)
	in.DepotID = 42

	_, err := GreedySolve(in)
	assert.ErrorIs(t, err, ErrInvalidInstance)

	_, _, err = ACOSolve(context.Background(), in, testConfig(5), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestCustomersSkipsDepot(t *testing.T) {
	in := squareInstance(4, 0)
	in.DepotID = 2
	in.Demands = map[int]float64{0: 1, 1: 1, 3: 1, 4: 1}
	assert.Equal(t, []int{0, 1, 3, 4}, in.Customers())
}
