package generator

import (
	"time"

	"github.com/logflow/loggen/pkg/catalog"
)

type batchKey struct {
	hour  int64
	route int
}

// Batch groups the cases of one route that reached the batch point within the same hour.
// It is created by the first such case and released one hour after the bucket start.
type Batch struct {
	Hour         time.Time
	Route        int
	ShipmentTime time.Time

	// OpenedBy is the case that created the batch; the shared event carries its ID.
	OpenedBy string
	Variant  string

	activity catalog.Activity
	bounds   catalog.Bounds
	pending  []*caseState
}

// Cases returns the IDs of the cases waiting on the batch, in arrival order.
func (b *Batch) Cases() []string {
	ids := make([]string, len(b.pending))
	for i, c := range b.pending {
		ids[i] = c.id
	}
	return ids
}

// batchTable holds the batches of one run in creation order.
type batchTable struct {
	order []*Batch
	byKey map[batchKey]*Batch
}

func newBatchTable() *batchTable {
	return &batchTable{byKey: make(map[batchKey]*Batch)}
}

// join parks a case at the batch for (floor(at), route), creating it on first use.
func (t *batchTable) join(c *caseState, at time.Time, act catalog.Activity) *Batch {
	hour := floorHour(at)
	key := batchKey{hour: hour.Unix(), route: c.variant.Route}

	b, ok := t.byKey[key]
	if !ok {
		b = &Batch{
			Hour:         hour,
			Route:        c.variant.Route,
			ShipmentTime: hour.Add(time.Hour),
			OpenedBy:     c.id,
			Variant:      c.variant.Name,
			activity:     act,
			bounds:       c.variant.Bounds(act),
		}
		t.byKey[key] = b
		t.order = append(t.order, b)
	}
	b.pending = append(b.pending, c)
	return b
}

func (t *batchTable) len() int {
	return len(t.order)
}

func floorHour(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
}
