// Package vrpfile reads capacitated VRP instances in the TSPLIB text format.
package vrpfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"antroute/internal/opt"
)

// ErrSyntax marks input that is not a well-formed TSPLIB CVRP file.
var ErrSyntax = errors.New("vrpfile: syntax error")

type section int

const (
	sectionHeader section = iota
	sectionCoords
	sectionDemands
	sectionDepots
)

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*opt.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a TSPLIB CVRP instance. File ids are 1-based; the returned instance uses 0-based ids
// for nodes, demands and the depot alike. Only EUC_2D edge weights are supported. The result is
// validated before it is returned.
func Parse(r io.Reader) (*opt.Instance, error) {
	in := &opt.Instance{Demands: map[int]float64{}}
	dimension := -1
	depots := []int{}
	sec := sectionHeader

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "EOF" {
			break
		}
		if next, ok := sectionKeyword(line); ok {
			sec = next
			continue
		}
		var err error
		switch sec {
		case sectionHeader:
			err = parseHeader(in, &dimension, line)
		case sectionCoords:
			err = parseCoord(in, line)
		case sectionDemands:
			err = parseDemand(in, line)
		case sectionDepots:
			var id int
			if id, err = strconv.Atoi(line); err == nil {
				if id == -1 {
					sec = sectionHeader
				} else {
					depots = append(depots, id-1)
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.Slice(in.Nodes, func(i, j int) bool { return in.Nodes[i].ID < in.Nodes[j].ID })
	if dimension >= 0 && dimension != len(in.Nodes) {
		return nil, fmt.Errorf("%w: DIMENSION is %d but %d coordinates were given", ErrSyntax, dimension, len(in.Nodes))
	}
	switch len(depots) {
	case 0:
		return nil, fmt.Errorf("%w: missing DEPOT_SECTION", ErrSyntax)
	case 1:
		in.DepotID = depots[0]
	default:
		return nil, fmt.Errorf("%w: %d depots given, only one is supported", ErrSyntax, len(depots))
	}
	if d, ok := in.Demands[in.DepotID]; ok && d == 0 {
		delete(in.Demands, in.DepotID)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

func sectionKeyword(line string) (section, bool) {
	switch strings.TrimSpace(strings.TrimSuffix(line, ":")) {
	case "NODE_COORD_SECTION":
		return sectionCoords, true
	case "DEMAND_SECTION":
		return sectionDemands, true
	case "DEPOT_SECTION":
		return sectionDepots, true
	}
	return sectionHeader, false
}

func parseHeader(in *opt.Instance, dimension *int, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("expected KEY : VALUE, got %q", line)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "NAME":
		in.Name = value
	case "COMMENT":
		in.Comment = value
	case "TYPE":
		if value != "CVRP" {
			return fmt.Errorf("unsupported TYPE %q", value)
		}
	case "EDGE_WEIGHT_TYPE":
		if value != "EUC_2D" {
			return fmt.Errorf("unsupported EDGE_WEIGHT_TYPE %q", value)
		}
	case "DIMENSION":
		*dimension, err = strconv.Atoi(value)
	case "CAPACITY":
		in.VehicleCapacity, err = strconv.ParseFloat(value, 64)
	case "DISTANCE":
		in.VehicleRange, err = strconv.ParseFloat(value, 64)
	case "VEHICLES":
		in.Vehicles, err = strconv.Atoi(value)
	}
	// other TSPLIB keys carry nothing the solvers use
	if err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	return nil
}

func parseCoord(in *opt.Instance, line string) error {
	f := strings.Fields(line)
	if len(f) != 3 {
		return fmt.Errorf("coordinate line needs id x y, got %q", line)
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(f[1], 64)
	if err != nil {
		return err
	}
	y, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return err
	}
	in.Nodes = append(in.Nodes, opt.Node{ID: id - 1, X: x, Y: y})
	return nil
}

func parseDemand(in *opt.Instance, line string) error {
	f := strings.Fields(line)
	if len(f) != 2 {
		return fmt.Errorf("demand line needs id demand, got %q", line)
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return err
	}
	d, err := strconv.ParseFloat(f[1], 64)
	if err != nil {
		return err
	}
	if _, dup := in.Demands[id-1]; dup {
		return fmt.Errorf("duplicate demand for node %d", id)
	}
	in.Demands[id-1] = d
	return nil
}
