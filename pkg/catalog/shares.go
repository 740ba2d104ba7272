package catalog

import "math"

// RouteShare is one route's share of a route distribution.
type RouteShare struct {
	Route   int
	Cases   int
	Percent float64
}

// RouteShares converts a route distribution into percentages that sum to exactly 100.
// Each share is rounded to 10 decimal places and the rounding remainder goes to the last route.
func RouteShares(routes map[int]int) []RouteShare {
	s := &Scenario{Routes: routes}
	total := s.TotalRouteCases()
	if total == 0 {
		return nil
	}

	order := s.RouteNumbers()
	shares := make([]RouteShare, len(order))
	sum := 0.0
	for i, r := range order {
		pct := float64(routes[r]) / float64(total) * 100
		pct = math.Round(pct*1e10) / 1e10
		shares[i] = RouteShare{Route: r, Cases: routes[r], Percent: pct}
		sum += pct
	}
	shares[len(shares)-1].Percent += 100 - sum
	return shares
}
