// Package model defines core data structures for loggen.
package model

import (
	"strconv"
	"time"
)

// TimestampLayout is the second-resolution layout used for exported timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Event represents one row of a generated event log.
type Event struct {
	// Seq is the 1-based emission order within a run. It breaks timestamp ties.
	Seq int

	// CaseID identifies the simulated process instance.
	CaseID string

	// Activity is the activity label.
	Activity string

	// Timestamp is truncated to whole seconds.
	Timestamp time.Time

	Pool     string
	Lane     string
	Resource string

	// Variant is the name of the variant the case was drawn from.
	Variant string

	// Route is the route number, 0 when the variant has none.
	Route int

	Anomaly bool

	// CycleTime is the case's total duration, only set for variants that report it.
	CycleTime time.Duration
	HasCycle  bool

	// Shared marks the one event emitted per shipment batch.
	Shared bool
}

// EventLog is the assembled, timestamp-ordered output of a run.
type EventLog struct {
	RunID    string
	Scenario string
	Events   []Event
}

// Len returns the number of events.
func (l *EventLog) Len() int {
	return len(l.Events)
}

// Column identifies one exported column.
type Column string

const (
	ColumnID        Column = "ID"
	ColumnCaseID    Column = "Case ID"
	ColumnActivity  Column = "Activity"
	ColumnTimestamp Column = "Timestamp"
	ColumnPool      Column = "Pool"
	ColumnLane      Column = "Lane"
	ColumnRoute     Column = "Route"
	ColumnResource  Column = "Resource"
	ColumnVariant   Column = "Variant"
	ColumnAnomaly   Column = "Anomaly"
	ColumnCycleTime Column = "Cycle Time"
)

// AllColumns lists every known column in canonical order.
var AllColumns = []Column{
	ColumnID, ColumnCaseID, ColumnActivity, ColumnTimestamp, ColumnPool, ColumnLane,
	ColumnRoute, ColumnResource, ColumnVariant, ColumnAnomaly, ColumnCycleTime,
}

// SimpleColumns is the column set of the proportional generation mode.
var SimpleColumns = []Column{
	ColumnID, ColumnCaseID, ColumnActivity, ColumnResource, ColumnTimestamp,
	ColumnPool, ColumnLane, ColumnVariant,
}

// RouteColumns is the column set of the route-distribution mode.
var RouteColumns = []Column{
	ColumnCaseID, ColumnActivity, ColumnTimestamp, ColumnPool, ColumnLane,
	ColumnRoute, ColumnAnomaly, ColumnCycleTime,
}

// ColumnPreset resolves a preset name ("simple", "route", "all") to a column set.
func ColumnPreset(name string) ([]Column, bool) {
	switch name {
	case "simple", "":
		return SimpleColumns, true
	case "route", "routes":
		return RouteColumns, true
	case "all":
		return AllColumns, true
	default:
		return nil, false
	}
}

// ParseColumn resolves a column header name.
func ParseColumn(s string) (Column, bool) {
	for _, c := range AllColumns {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Headers returns the header row for a column set.
func Headers(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}

// FormatConfig controls how events are rendered to text cells.
type FormatConfig struct {
	TimestampLayout string
	EventIDPrefix   string
}

// DefaultFormat returns the default rendering settings.
func DefaultFormat() FormatConfig {
	return FormatConfig{
		TimestampLayout: TimestampLayout,
		EventIDPrefix:   "LOG-",
	}
}

// Value renders a single column of the event.
func (e *Event) Value(col Column, f FormatConfig) string {
	switch col {
	case ColumnID:
		return f.EventIDPrefix + strconv.Itoa(e.Seq)
	case ColumnCaseID:
		return e.CaseID
	case ColumnActivity:
		return e.Activity
	case ColumnTimestamp:
		layout := f.TimestampLayout
		if layout == "" {
			layout = TimestampLayout
		}
		return e.Timestamp.Format(layout)
	case ColumnPool:
		return e.Pool
	case ColumnLane:
		return e.Lane
	case ColumnRoute:
		if e.Route == 0 {
			return ""
		}
		return "Route " + strconv.Itoa(e.Route)
	case ColumnResource:
		return e.Resource
	case ColumnVariant:
		return e.Variant
	case ColumnAnomaly:
		if e.Anomaly {
			return "Yes"
		}
		return "No"
	case ColumnCycleTime:
		if !e.HasCycle {
			return ""
		}
		return strconv.FormatInt(int64(e.CycleTime/time.Second), 10)
	default:
		return ""
	}
}

// Row renders the event as one row of cells.
func (e *Event) Row(cols []Column, f FormatConfig) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = e.Value(c, f)
	}
	return row
}
