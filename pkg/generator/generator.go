// Package generator synthesizes event logs from a catalog scenario.
//
// A run builds a case pool, walks every case serially on a single clock,
// parks cases that reach the batch point, releases the batches and finally
// orders all events by timestamp. Validation failures abort the run before
// any event is produced.
package generator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/logflow/loggen/internal/model"
	"github.com/logflow/loggen/pkg/catalog"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/telemetry"
)

// CaseSummary describes one generated case.
type CaseSummary struct {
	ID      string
	Variant string
	Route   int
	Anomaly bool
	Start   time.Time
	End     time.Time
	Events  int
	Batched bool
}

// BatchSummary describes one released batch.
type BatchSummary struct {
	Hour         time.Time
	Route        int
	ShipmentTime time.Time
	OpenedBy     string
	Cases        []string
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Seed     int64
	PoolSize int

	Log     *model.EventLog
	Cases   []CaseSummary
	Batches []BatchSummary

	// Warnings are data-quality findings; they never stop a run.
	Warnings []catalog.Warning

	// Fallbacks lists activity names that resolved to default attributes.
	Fallbacks []string
}

// Generator runs scenarios with a fixed configuration.
type Generator struct {
	cfg      Config
	logf     func(format string, args ...interface{})
	progress func(done, total int)
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogf routes informational and warning lines to logf.
func WithLogf(logf func(format string, args ...interface{})) Option {
	return func(g *Generator) {
		g.logf = logf
	}
}

// WithProgress reports walked cases.
func WithProgress(fn func(done, total int)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// New creates a generator.
func New(cfg Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:      cfg,
		logf:     func(string, ...interface{}) {},
		progress: func(int, int) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the generator's settings.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate runs the scenario. The scenario is not modified.
func (g *Generator) Generate(ctx context.Context, sc *catalog.Scenario) (*Result, error) {
	ctx, span := telemetry.Start(ctx, "generator.Generate",
		attribute.String("scenario", sc.Name),
		attribute.String("policy", string(sc.Policy)),
		attribute.Int64("seed", g.cfg.Seed),
	)
	defer span.End()

	res, err := g.generate(ctx, sc)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("cases", len(res.Cases)),
		attribute.Int("events", res.Log.Len()),
		attribute.Int("batches", len(res.Batches)),
	)
	return res, nil
}

func (g *Generator) generate(ctx context.Context, sc *catalog.Scenario) (*Result, error) {
	cfg := g.cfg
	if err := cfg.validate(sc); err != nil {
		return nil, err
	}

	warnings := catalog.Check(sc)
	for _, w := range warnings {
		g.logf("WARN: %s", w)
	}

	src := NewSource(cfg.Seed)

	_, poolSpan := telemetry.Start(ctx, "generator.pool")
	pool, err := g.buildPool(sc, src)
	poolSpan.End()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateWindow(len(pool)); err != nil {
		return nil, err
	}

	r := &run{
		cfg:       cfg,
		src:       src,
		cat:       sc.Catalog(),
		batches:   newBatchTable(),
		fallbacks: make(map[string]struct{}),
	}
	if !cfg.DisableBatching {
		r.batchActivity = sc.BatchActivity
		if cfg.BatchActivity != "" {
			r.batchActivity = cfg.BatchActivity
		}
	}

	_, walkSpan := telemetry.Start(ctx, "generator.walk", attribute.Int("pool", len(pool)))
	ids := newCaseIDs(cfg.CaseIDPrefix, cfg.PadWidth, cfg.AnomalyMarker)
	cases := make([]*caseState, 0, len(pool))
	var next time.Time
	for i, v := range pool {
		if err := ctx.Err(); err != nil {
			walkSpan.End()
			return nil, lgerrors.Canceled("generate", err)
		}

		start := next
		if i == 0 {
			start = g.firstStart(src)
		}
		c := newCaseState(ids.next(v), v, start)
		r.walk(c)
		cases = append(cases, c)

		next = c.last.Add(time.Duration(src.Between(cfg.MinCaseGap, cfg.MaxCaseGap)) * time.Second)
		g.progress(i+1, len(pool))
	}
	walkSpan.End()

	_, batchSpan := telemetry.Start(ctx, "generator.batches", attribute.Int("batches", r.batches.len()))
	for _, b := range r.batches.order {
		r.release(b)
	}
	batchSpan.End()

	for _, c := range cases {
		if c.variant.CycleTime {
			r.stampCycleTime(c)
		}
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Seed:     cfg.Seed,
		PoolSize: len(pool),
		Warnings: warnings,
	}
	for _, c := range cases {
		res.Cases = append(res.Cases, CaseSummary{
			ID:      c.id,
			Variant: c.variant.Name,
			Route:   c.variant.Route,
			Anomaly: c.variant.Anomaly,
			Start:   c.start,
			End:     c.cursor,
			Events:  len(c.events),
			Batched: c.batch != nil,
		})
	}
	for _, b := range r.batches.order {
		res.Batches = append(res.Batches, BatchSummary{
			Hour:         b.Hour,
			Route:        b.Route,
			ShipmentTime: b.ShipmentTime,
			OpenedBy:     b.OpenedBy,
			Cases:        b.Cases(),
		})
	}
	for name := range r.fallbacks {
		res.Fallbacks = append(res.Fallbacks, name)
	}
	sort.Strings(res.Fallbacks)
	if len(res.Fallbacks) > 0 {
		g.logf("INFO: %d activity name(s) not in catalog, defaults applied: %v", len(res.Fallbacks), res.Fallbacks)
	}

	res.Log = &model.EventLog{
		RunID:    res.RunID,
		Scenario: sc.Name,
		Events:   Assemble(r.events),
	}
	g.logf("INFO: generated %d events for %d cases (%d batches, seed %d)",
		res.Log.Len(), len(res.Cases), len(res.Batches), cfg.Seed)
	return res, nil
}

// buildPool selects the variant of every case in walk order.
func (g *Generator) buildPool(sc *catalog.Scenario, src *Source) ([]*catalog.Variant, error) {
	switch sc.Policy {
	case catalog.PolicyRoutes:
		pool := RoutePool(sc.Variants, sc.Routes)
		if len(pool) == 0 {
			return nil, lgerrors.New(lgerrors.CodeEmptyPool, "no variant matches the route distribution").
				WithContext("routes", len(sc.Routes))
		}
		if g.cfg.Shuffle {
			ShufflePool(pool, src)
		}
		return pool, nil

	default:
		weighted := ProportionalPool(sc.Variants)
		if len(weighted) == 0 {
			return nil, lgerrors.New(lgerrors.CodeEmptyPool, "variant frequencies leave the case pool empty")
		}
		return Sample(weighted, g.cfg.Cases, src), nil
	}
}

// firstStart draws the first case's start: a day in the window, an hour in the
// daypart and optionally a minute offset.
func (g *Generator) firstStart(src *Source) time.Time {
	day := src.Date(g.cfg.StartDate, g.cfg.EndDate)
	start := day.Add(time.Duration(src.Between(g.cfg.DaypartStart, g.cfg.DaypartEnd)) * time.Hour)
	if g.cfg.StartMinuteOffset {
		start = start.Add(time.Duration(src.Between(1, 59)) * time.Minute)
	}
	return start
}
