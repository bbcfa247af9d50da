package opt

// Route is a depot-bounded tour: depot, customers..., depot.
type Route []int

// Customers returns the interior node ids of the route.
func (r Route) Customers() []int {
	if len(r) <= 2 {
		return []int{}
	}
	return append([]int(nil), r[1:len(r)-1]...)
}

// Stops returns a copy of the route for display, without the bounding depot visits when skipDepot is set.
func (r Route) Stops(skipDepot bool) []int {
	if skipDepot {
		return r.Customers()
	}
	return append([]int(nil), r...)
}

// Reversed returns the route traversed in the opposite direction.
func (r Route) Reversed() Route {
	out := make(Route, len(r))
	for i, id := range r {
		out[len(r)-1-i] = id
	}
	return out
}

// Solution is a set of routes covering every customer once, with its total cost.
type Solution struct {
	Routes []Route
	Cost   float64
}

// Clone deep-copies the routes so the result can outlive the colony's working buffers.
func (s Solution) Clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes)), Cost: s.Cost}
	for i, r := range s.Routes {
		out.Routes[i] = append(Route(nil), r...)
	}
	return out
}
