package opt

// twoOptEps is the minimum gain for a 2-opt move to be accepted.
const twoOptEps = 1e-9

// twoOptRoute shortens a depot-bounded route by segment reversal. The depot ends never move and the
// customer set is unchanged, so capacity feasibility is preserved; only shorter tours are accepted, so
// range feasibility is preserved too.
func twoOptRoute(ev Evaluator, r Route) Route {
	n := len(r)
	if n < 5 {
		return r
	}
	best := append(Route(nil), r...)
	bestDist := ev.RouteCost(best)
	for {
		improved := false
		for i := 1; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				cand := twoOptSwap(best, i, k)
				if d := ev.RouteCost(cand); d+twoOptEps < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			return best
		}
	}
}

func twoOptSwap(r Route, i, k int) Route {
	out := make(Route, len(r))
	copy(out, r[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = r[j]
		pos++
	}
	copy(out[pos:], r[k+1:])
	return out
}
