package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Policy selects how the case pool is built.
type Policy string

const (
	// PolicyProportional samples cases from a frequency-weighted pool.
	PolicyProportional Policy = "proportional"

	// PolicyRoutes expands an exact route -> count distribution.
	PolicyRoutes Policy = "routes"
)

// ParsePolicy parses a policy name. Empty selects the proportional policy.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proportional", "frequency":
		return PolicyProportional, true
	case "routes", "route", "distribution":
		return PolicyRoutes, true
	default:
		return "", false
	}
}

// GenerationHints are per-scenario defaults for run settings.
// Unset fields leave the configured value in place.
type GenerationHints struct {
	Jitter            *int   `yaml:"jitter,omitempty"`
	DaypartStart      *int   `yaml:"daypart_start,omitempty"`
	DaypartEnd        *int   `yaml:"daypart_end,omitempty"`
	StartMinuteOffset *bool  `yaml:"start_minute_offset,omitempty"`
	MinCaseGap        *int   `yaml:"min_case_gap,omitempty"`
	MaxCaseGap        *int   `yaml:"max_case_gap,omitempty"`
	CaseIDPrefix      string `yaml:"case_id_prefix,omitempty"`
	PadWidth          int    `yaml:"pad_width,omitempty"`
	Columns           string `yaml:"columns,omitempty"`
}

// Scenario is a complete, immutable generation input.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Policy      Policy `yaml:"policy"`

	// Cases is the total case count for the proportional policy.
	Cases int `yaml:"cases,omitempty"`

	// Routes maps route number to requested case count for the routes policy.
	Routes map[int]int `yaml:"routes,omitempty"`

	// BatchActivity names the batch point activity. Empty disables batching.
	BatchActivity string `yaml:"batch_activity,omitempty"`

	Generation GenerationHints `yaml:"generation,omitempty"`

	Activities []Activity `yaml:"activities"`
	Variants   []Variant  `yaml:"variants"`
}

// Catalog builds the activity catalog of the scenario.
func (s *Scenario) Catalog() *Catalog {
	return NewCatalog(s.Activities)
}

// RouteNumbers returns the route numbers of the distribution in ascending order.
func (s *Scenario) RouteNumbers() []int {
	routes := make([]int, 0, len(s.Routes))
	for r := range s.Routes {
		routes = append(routes, r)
	}
	sort.Ints(routes)
	return routes
}

// TotalRouteCases returns the sum of requested route counts.
func (s *Scenario) TotalRouteCases() int {
	total := 0
	for _, n := range s.Routes {
		total += n
	}
	return total
}

// Clone returns a deep copy so callers can adjust a scenario without sharing state.
func (s *Scenario) Clone() *Scenario {
	out := *s
	out.Activities = append([]Activity(nil), s.Activities...)
	out.Variants = make([]Variant, len(s.Variants))
	for i, v := range s.Variants {
		v.Activities = append([]string(nil), v.Activities...)
		if v.Times != nil {
			times := make(map[string]Override, len(v.Times))
			for k, ov := range v.Times {
				times[k] = ov
			}
			v.Times = times
		}
		out.Variants[i] = v
	}
	if s.Routes != nil {
		out.Routes = make(map[int]int, len(s.Routes))
		for k, n := range s.Routes {
			out.Routes[k] = n
		}
	}
	return &out
}

// normalize applies name-based route and anomaly tagging and the default policy.
func (s *Scenario) normalize() error {
	p, ok := ParsePolicy(string(s.Policy))
	if !ok {
		return lgerrors.Newf(lgerrors.CodeInvalidPolicy, "unknown policy %q", s.Policy)
	}
	s.Policy = p
	for i := range s.Variants {
		s.Variants[i].normalize()
	}
	return nil
}

// Parse decodes a YAML scenario.
func Parse(data []byte, source string) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, lgerrors.InvalidScenario(source, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from a YAML file or an XLSX workbook.
func LoadFile(path string) (*Scenario, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadWorkbook(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgerrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data, path)
}

// Marshal encodes a scenario as YAML.
func Marshal(s *Scenario) ([]byte, error) {
	return yaml.Marshal(s)
}

//go:embed scenarios/*.yaml
var builtinFS embed.FS

// BuiltinNames lists the embedded scenarios.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin loads an embedded scenario by name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, lgerrors.New(lgerrors.CodeUnknownScenario, "unknown built-in scenario").
			WithContext("name", name).
			WithContext("available", strings.Join(BuiltinNames(), ","))
	}
	return Parse(data, name+".yaml")
}

// Load resolves a reference that is either a file path or a built-in scenario name.
func Load(ref string) (*Scenario, error) {
	if _, err := os.Stat(ref); err == nil {
		return LoadFile(ref)
	}
	for _, name := range BuiltinNames() {
		if name == ref {
			return Builtin(ref)
		}
	}
	if filepath.Ext(ref) != "" {
		return nil, lgerrors.FileNotFound(ref)
	}
	return Builtin(ref)
}
