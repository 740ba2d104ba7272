// Package catalog holds the activity and variant definitions a run is generated from.
//
// A Scenario is an immutable snapshot: the generator receives it as a parameter and
// never mutates it. Lookups that miss resolve to documented defaults instead of failing.
package catalog

// Defaults applied to activity attributes that are absent or unknown.
const (
	DefaultMinTime  = 60
	DefaultMaxTime  = 300
	DefaultPool     = "N/A"
	DefaultLane     = "N/A"
	DefaultResource = "Unknown"
)

// Activity is one entry of the activity catalog. Times are in seconds.
// A zero MinTime or MaxTime means the bound is unset.
type Activity struct {
	Name       string `yaml:"name"`
	MinTime    int    `yaml:"min_time"`
	MaxTime    int    `yaml:"max_time"`
	Concurrent bool   `yaml:"concurrent"`
	Pool       string `yaml:"pool"`
	Lane       string `yaml:"lane"`
	Resource   string `yaml:"resource"`
}

// Bounds returns the activity's timing bounds.
func (a Activity) Bounds() Bounds {
	return Bounds{Min: a.MinTime, Max: a.MaxTime}
}

// withDefaults fills absent attributes with the catalog defaults.
func (a Activity) withDefaults() Activity {
	if a.MinTime == 0 {
		a.MinTime = DefaultMinTime
	}
	if a.MaxTime == 0 {
		a.MaxTime = DefaultMaxTime
	}
	if a.Pool == "" {
		a.Pool = DefaultPool
	}
	if a.Lane == "" {
		a.Lane = DefaultLane
	}
	if a.Resource == "" {
		a.Resource = DefaultResource
	}
	return a
}

// Synthetic returns the record used for a name that is not in the catalog.
func Synthetic(name string) Activity {
	return Activity{Name: name}.withDefaults()
}

// Bounds is an inclusive [Min, Max] duration range in seconds.
type Bounds struct {
	Min int
	Max int
}

// Inverted reports whether Min is greater than Max.
func (b Bounds) Inverted() bool {
	return b.Min > b.Max
}

// Ordered returns the bounds with Min and Max swapped when inverted.
func (b Bounds) Ordered() Bounds {
	if b.Inverted() {
		return Bounds{Min: b.Max, Max: b.Min}
	}
	return b
}

// Catalog is a read-only index of activities by name.
// When names collide the first definition wins.
type Catalog struct {
	byName  map[string]Activity
	ordered []Activity
}

// NewCatalog builds a catalog from a list of activity definitions.
func NewCatalog(activities []Activity) *Catalog {
	c := &Catalog{
		byName:  make(map[string]Activity, len(activities)),
		ordered: make([]Activity, 0, len(activities)),
	}
	for _, a := range activities {
		a = a.withDefaults()
		c.ordered = append(c.ordered, a)
		if _, exists := c.byName[a.Name]; !exists {
			c.byName[a.Name] = a
		}
	}
	return c
}

// Lookup returns the activity with the given name.
func (c *Catalog) Lookup(name string) (Activity, bool) {
	a, ok := c.byName[name]
	return a, ok
}

// Resolve returns the named activity, or a synthetic default record on a miss.
func (c *Catalog) Resolve(name string) Activity {
	if a, ok := c.byName[name]; ok {
		return a
	}
	return Synthetic(name)
}

// Len returns the number of definitions, duplicates included.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// Activities returns a copy of the definitions in declaration order.
func (c *Catalog) Activities() []Activity {
	out := make([]Activity, len(c.ordered))
	copy(out, c.ordered)
	return out
}
