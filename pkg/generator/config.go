package generator

import (
	"time"

	"github.com/logflow/loggen/pkg/catalog"
	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Config holds the run settings. Gaps and jitter are in seconds, daypart hours are inclusive.
type Config struct {
	StartDate time.Time
	EndDate   time.Time

	MinCaseGap int
	MaxCaseGap int

	// Cases is the total case count for the proportional policy. The routes
	// policy derives its count from the route distribution.
	Cases int

	// Jitter is the half-width of the symmetric jitter range added to every duration.
	Jitter int

	DaypartStart      int
	DaypartEnd        int
	StartMinuteOffset bool

	// Shuffle permutes the route pool before cases are walked.
	Shuffle bool

	CaseIDPrefix  string
	PadWidth      int
	AnomalyMarker string

	// BatchActivity overrides the scenario's batch point when set.
	BatchActivity   string
	DisableBatching bool

	Seed int64
}

// DefaultConfig returns the settings used when nothing else is configured:
// a one-week window starting today, office-hours starts and 10 to 30 minute gaps.
func DefaultConfig() Config {
	today := midnight(time.Now().UTC())
	return Config{
		StartDate:     today,
		EndDate:       today.AddDate(0, 0, 7),
		MinCaseGap:    600,
		MaxCaseGap:    1800,
		Cases:         10,
		Jitter:        30,
		DaypartStart:  8,
		DaypartEnd:    16,
		Shuffle:       true,
		CaseIDPrefix:  "R",
		PadWidth:      2,
		AnomalyMarker: "A",
		Seed:          time.Now().UnixNano(),
	}
}

// WithHints returns a copy of c with the scenario's generation hints applied.
func (c Config) WithHints(h catalog.GenerationHints) Config {
	if h.Jitter != nil {
		c.Jitter = *h.Jitter
	}
	if h.DaypartStart != nil {
		c.DaypartStart = *h.DaypartStart
	}
	if h.DaypartEnd != nil {
		c.DaypartEnd = *h.DaypartEnd
	}
	if h.StartMinuteOffset != nil {
		c.StartMinuteOffset = *h.StartMinuteOffset
	}
	if h.MinCaseGap != nil {
		c.MinCaseGap = *h.MinCaseGap
	}
	if h.MaxCaseGap != nil {
		c.MaxCaseGap = *h.MaxCaseGap
	}
	if h.CaseIDPrefix != "" {
		c.CaseIDPrefix = h.CaseIDPrefix
	}
	if h.PadWidth > 0 {
		c.PadWidth = h.PadWidth
	}
	return c
}

// ForScenario applies a scenario's generation hints and case count.
func (c Config) ForScenario(sc *catalog.Scenario) Config {
	c = c.WithHints(sc.Generation)
	if sc.Cases > 0 {
		c.Cases = sc.Cases
	}
	return c
}

// Window returns the span between start and end date.
func (c Config) Window() time.Duration {
	return c.EndDate.Sub(c.StartDate)
}

// RequiredWindow returns the span needed to fit n cases at the maximum gap.
func (c Config) RequiredWindow(n int) time.Duration {
	if n < 2 {
		return 0
	}
	return time.Duration(n-1) * time.Duration(c.MaxCaseGap) * time.Second
}

// validate checks the settings that do not depend on the case pool.
func (c Config) validate(sc *catalog.Scenario) error {
	if len(sc.Activities) == 0 || len(sc.Variants) == 0 {
		return lgerrors.New(lgerrors.CodeEmptyCatalog, "scenario needs at least one activity and one variant").
			WithContext("activities", len(sc.Activities)).
			WithContext("variants", len(sc.Variants))
	}
	if c.EndDate.Before(c.StartDate) {
		return lgerrors.New(lgerrors.CodeInvalidDateRange, "end date must not be before start date").
			WithContext("start", c.StartDate.Format(time.DateOnly)).
			WithContext("end", c.EndDate.Format(time.DateOnly))
	}
	if c.MinCaseGap < 0 || c.MaxCaseGap < c.MinCaseGap {
		return lgerrors.New(lgerrors.CodeInvalidGap, "case gaps must satisfy 0 <= min <= max").
			WithContext("min", c.MinCaseGap).
			WithContext("max", c.MaxCaseGap)
	}
	if c.DaypartStart < 0 || c.DaypartEnd > 23 || c.DaypartStart > c.DaypartEnd {
		return lgerrors.New(lgerrors.CodeInvalidDaypart, "daypart must satisfy 0 <= start <= end <= 23").
			WithContext("start", c.DaypartStart).
			WithContext("end", c.DaypartEnd)
	}
	if sc.Policy != catalog.PolicyRoutes && c.Cases < 1 {
		return lgerrors.New(lgerrors.CodeInvalidCaseCount, "case count must be at least 1").
			WithContext("cases", c.Cases)
	}
	return nil
}

// validateWindow rejects a run whose date window cannot hold n cases.
func (c Config) validateWindow(n int) error {
	required := c.RequiredWindow(n)
	if available := c.Window(); available < required {
		return lgerrors.New(lgerrors.CodeWindowTooShort, "date window too short for the requested cases and gaps").
			WithContext("available", available).
			WithContext("required", required).
			WithContext("cases", n)
	}
	return nil
}
