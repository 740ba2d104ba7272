package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Override replaces one or both timing bounds of an activity within a variant.
type Override struct {
	Min *int `yaml:"min,omitempty"`
	Max *int `yaml:"max,omitempty"`
}

// Variant is a named activity sequence with a relative frequency.
// Activity names may repeat and may be absent from the catalog.
type Variant struct {
	Name       string              `yaml:"name"`
	Route      int                 `yaml:"route,omitempty"`
	Anomaly    bool                `yaml:"anomaly,omitempty"`
	Activities []string            `yaml:"activities"`
	Frequency  float64             `yaml:"frequency"`
	Times      map[string]Override `yaml:"times,omitempty"`
	CycleTime  bool                `yaml:"cycle_time,omitempty"`
}

// Bounds resolves the timing bounds of an activity within this variant.
// Each side falls back independently: override, then the catalog entry
// (which itself carries the hard defaults for unset or unknown activities).
func (v *Variant) Bounds(act Activity) Bounds {
	b := act.Bounds()
	if ov, ok := v.Times[act.Name]; ok {
		if ov.Min != nil {
			b.Min = *ov.Min
		}
		if ov.Max != nil {
			b.Max = *ov.Max
		}
	}
	return b
}

// Index returns the position of the first occurrence of name, or -1.
func (v *Variant) Index(name string) int {
	for i, a := range v.Activities {
		if a == name {
			return i
		}
	}
	return -1
}

var routeNamePattern = regexp.MustCompile(`^\s*Route\s+(\d+)\s*(?::|$)`)

// ParseRouteName extracts n from a variant name of the form "Route n: ...".
// The colon (or end of name) is required, so "Route 1" never matches "Route 10: ...".
func ParseRouteName(name string) (int, bool) {
	m := routeNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsAnomalyName reports whether a variant name carries the anomaly marker.
func IsAnomalyName(name string) bool {
	return strings.Contains(strings.ToLower(name), "anomaly")
}

// normalize fills Route and Anomaly from the name when they were not set explicitly.
func (v *Variant) normalize() {
	if v.Route == 0 {
		if n, ok := ParseRouteName(v.Name); ok {
			v.Route = n
		}
	}
	if !v.Anomaly && IsAnomalyName(v.Name) {
		v.Anomaly = true
	}
}

// IntPtr is a helper for building overrides in code.
func IntPtr(v int) *int {
	return &v
}
