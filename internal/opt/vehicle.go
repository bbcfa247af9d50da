package opt

// vehicle tracks the route under construction for one truck.
type vehicle struct {
	in        *Instance
	dt        *DistanceTable
	current   int
	capLeft   float64
	rangeLeft float64
	route     Route
}

func newVehicle(in *Instance, dt *DistanceTable) *vehicle {
	v := &vehicle{in: in, dt: dt}
	v.reset()
	return v
}

// reset starts a fresh route at the depot with full capacity and range.
func (v *vehicle) reset() {
	v.current = v.in.DepotID
	v.capLeft = v.in.VehicleCapacity
	v.rangeLeft = v.in.VehicleRange
	v.route = Route{v.in.DepotID}
}

// canServe is the feasibility test shared by Greedy and the colony: the demand fits the remaining
// capacity and, when range-limited, the vehicle can reach c and still return to the depot.
func (v *vehicle) canServe(c int) bool {
	if v.in.Demand(c) > v.capLeft {
		return false
	}
	if v.in.RangeLimited() {
		if v.dt.At(v.current, c)+v.dt.At(c, v.in.DepotID) > v.rangeLeft {
			return false
		}
	}
	return true
}

func (v *vehicle) visit(c int) {
	v.rangeLeft -= v.dt.At(v.current, c)
	v.capLeft -= v.in.Demand(c)
	v.current = c
	v.route = append(v.route, c)
}

// close returns to the depot and hands back the finished route.
func (v *vehicle) close() Route {
	r := append(v.route, v.in.DepotID)
	v.route = nil
	return r
}

// empty reports whether the route has no customers yet.
func (v *vehicle) empty() bool { return len(v.route) <= 1 }
