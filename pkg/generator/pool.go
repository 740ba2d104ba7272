package generator

import (
	"github.com/logflow/loggen/pkg/catalog"
)

// ProportionalPool expands variants into the frequency-weighted multiset:
// each variant appears int(frequency) times. Fractions are truncated.
func ProportionalPool(variants []catalog.Variant) []*catalog.Variant {
	var pool []*catalog.Variant
	for i := range variants {
		n := int(variants[i].Frequency)
		for j := 0; j < n; j++ {
			pool = append(pool, &variants[i])
		}
	}
	return pool
}

// Sample draws n entries uniformly with replacement.
func Sample(pool []*catalog.Variant, n int, src *Source) []*catalog.Variant {
	if len(pool) == 0 {
		return nil
	}
	out := make([]*catalog.Variant, n)
	for i := range out {
		out[i] = pool[src.Intn(len(pool))]
	}
	return out
}

// RoutePool expands a route distribution in ascending route order. Each route
// contributes its first regular variant count times and its first anomaly
// variant exactly once. Routes without a matching variant contribute nothing.
func RoutePool(variants []catalog.Variant, routes map[int]int) []*catalog.Variant {
	sc := catalog.Scenario{Routes: routes}

	var pool []*catalog.Variant
	for _, route := range sc.RouteNumbers() {
		regular, anomaly := matchRoute(variants, route)
		if regular != nil {
			for j := 0; j < routes[route]; j++ {
				pool = append(pool, regular)
			}
		}
		if anomaly != nil {
			pool = append(pool, anomaly)
		}
	}
	return pool
}

func matchRoute(variants []catalog.Variant, route int) (regular, anomaly *catalog.Variant) {
	for i := range variants {
		v := &variants[i]
		if v.Route != route {
			continue
		}
		if v.Anomaly {
			if anomaly == nil {
				anomaly = v
			}
		} else if regular == nil {
			regular = v
		}
	}
	return regular, anomaly
}

// ShufflePool permutes a pool in place.
func ShufflePool(pool []*catalog.Variant, src *Source) {
	src.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
}
