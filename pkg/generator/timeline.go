package generator

import (
	"time"

	"github.com/logflow/loggen/internal/model"
	"github.com/logflow/loggen/pkg/catalog"
)

// caseState tracks one case while it is walked.
type caseState struct {
	id      string
	variant *catalog.Variant
	start   time.Time

	// cursor is the case clock; last is the cursor before the most recent
	// sequential advance and anchors the next case's arrival.
	cursor time.Time
	last   time.Time

	events    []int
	remaining []string
	batch     *Batch
}

func newCaseState(id string, v *catalog.Variant, start time.Time) *caseState {
	return &caseState{id: id, variant: v, start: start, cursor: start, last: start}
}

// run is the mutable state of one generation run.
type run struct {
	cfg    Config
	src    *Source
	cat    *catalog.Catalog
	events []model.Event

	batchActivity string
	batches       *batchTable
	fallbacks     map[string]struct{}
}

func (r *run) resolve(name string) catalog.Activity {
	act, ok := r.cat.Lookup(name)
	if !ok {
		r.fallbacks[name] = struct{}{}
		return catalog.Synthetic(name)
	}
	return act
}

// duration draws base in [min, max] plus jitter in [-j, j], never below one second.
func (r *run) duration(b catalog.Bounds) time.Duration {
	b = b.Ordered()
	base := r.src.Between(b.Min, b.Max)
	jitter := r.src.Between(-r.cfg.Jitter, r.cfg.Jitter)
	d := base + jitter
	if d < 1 {
		d = 1
	}
	return time.Duration(d) * time.Second
}

func (r *run) emit(c *caseState, act catalog.Activity, at time.Time) {
	r.events = append(r.events, model.Event{
		Seq:       len(r.events) + 1,
		CaseID:    c.id,
		Activity:  act.Name,
		Timestamp: at,
		Pool:      act.Pool,
		Lane:      act.Lane,
		Resource:  act.Resource,
		Variant:   c.variant.Name,
		Route:     c.variant.Route,
		Anomaly:   c.variant.Anomaly,
	})
	c.events = append(c.events, len(r.events)-1)
}

// walk emits the case's activities up to the batch point. Concurrent
// activities share the cursor with the next activity.
func (r *run) walk(c *caseState) {
	for i, name := range c.variant.Activities {
		if r.batchActivity != "" && name == r.batchActivity {
			c.remaining = c.variant.Activities[i+1:]
			c.batch = r.batches.join(c, c.cursor, r.resolve(name))
			return
		}

		act := r.resolve(name)
		d := r.duration(c.variant.Bounds(act))
		r.emit(c, act, c.cursor)
		if !act.Concurrent {
			c.last = c.cursor
			c.cursor = c.cursor.Add(d)
		}
	}
}

// release emits the shared event of a batch and resumes every case parked on it.
// Resumed activities always advance the cursor.
func (r *run) release(b *Batch) {
	r.duration(b.bounds)
	r.events = append(r.events, model.Event{
		Seq:       len(r.events) + 1,
		CaseID:    b.OpenedBy,
		Activity:  b.activity.Name,
		Timestamp: b.ShipmentTime,
		Pool:      b.activity.Pool,
		Lane:      b.activity.Lane,
		Resource:  b.activity.Resource,
		Variant:   b.Variant,
		Route:     b.Route,
		Shared:    true,
	})

	for _, c := range b.pending {
		c.cursor = b.ShipmentTime
		for _, name := range c.remaining {
			act := r.resolve(name)
			d := r.duration(c.variant.Bounds(act))
			r.emit(c, act, c.cursor)
			c.last = c.cursor
			c.cursor = c.cursor.Add(d)
		}
		c.remaining = nil
	}
}

// stampCycleTime writes the case's total cycle time onto its events.
func (r *run) stampCycleTime(c *caseState) {
	cycle := c.cursor.Sub(c.start)
	for _, i := range c.events {
		r.events[i].CycleTime = cycle
		r.events[i].HasCycle = true
	}
}
