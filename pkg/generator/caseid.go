package generator

import (
	"fmt"

	"github.com/logflow/loggen/pkg/catalog"
)

// caseIDs numbers cases per route in pool order.
type caseIDs struct {
	prefix string
	pad    int
	marker string
	seq    map[int]int
}

func newCaseIDs(prefix string, pad int, marker string) *caseIDs {
	if pad < 1 {
		pad = 1
	}
	return &caseIDs{prefix: prefix, pad: pad, marker: marker, seq: make(map[int]int)}
}

// next returns "{prefix}{route}_{seq}" for routed variants and "{prefix}{seq}"
// otherwise, with the anomaly marker appended for anomaly variants.
func (c *caseIDs) next(v *catalog.Variant) string {
	c.seq[v.Route]++
	n := c.seq[v.Route]

	var id string
	if v.Route > 0 {
		id = fmt.Sprintf("%s%d_%0*d", c.prefix, v.Route, c.pad, n)
	} else {
		id = fmt.Sprintf("%s%0*d", c.prefix, c.pad, n)
	}
	if v.Anomaly {
		id += c.marker
	}
	return id
}
