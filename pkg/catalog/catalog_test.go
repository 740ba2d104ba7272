package catalog

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

func TestCatalog_ResolveMiss(t *testing.T) {
	cat := NewCatalog([]Activity{{Name: "A", MinTime: 10, MaxTime: 20}})

	a := cat.Resolve("missing")
	if a.MinTime != 60 || a.MaxTime != 300 {
		t.Errorf("bounds = (%d, %d), want (60, 300)", a.MinTime, a.MaxTime)
	}
	if a.Pool != "N/A" || a.Lane != "N/A" || a.Resource != "Unknown" || a.Concurrent {
		t.Errorf("synthetic activity = %+v", a)
	}
	if _, ok := cat.Lookup("missing"); ok {
		t.Error("Lookup reported a hit for an unknown name")
	}
}

func TestCatalog_FirstDefinitionWins(t *testing.T) {
	cat := NewCatalog([]Activity{
		{Name: "A", MinTime: 1, MaxTime: 2},
		{Name: "A", MinTime: 100, MaxTime: 200},
	})
	a, _ := cat.Lookup("A")
	if a.MinTime != 1 {
		t.Errorf("MinTime = %d, want 1", a.MinTime)
	}
	if cat.Len() != 2 {
		t.Errorf("Len = %d, want 2", cat.Len())
	}
}

func TestCatalog_PartialDefaults(t *testing.T) {
	cat := NewCatalog([]Activity{{Name: "A", MaxTime: 30, Pool: "P"}})
	a, _ := cat.Lookup("A")
	if a.MinTime != DefaultMinTime || a.MaxTime != 30 {
		t.Errorf("bounds = (%d, %d)", a.MinTime, a.MaxTime)
	}
	if a.Pool != "P" || a.Lane != DefaultLane {
		t.Errorf("pool/lane = %q/%q", a.Pool, a.Lane)
	}
}

func TestVariant_Bounds(t *testing.T) {
	act := Activity{Name: "A", MinTime: 10, MaxTime: 20}

	tests := []struct {
		name  string
		times map[string]Override
		want  Bounds
	}{
		{"no override", nil, Bounds{10, 20}},
		{"full override", map[string]Override{"A": {Min: IntPtr(1), Max: IntPtr(2)}}, Bounds{1, 2}},
		{"min only", map[string]Override{"A": {Min: IntPtr(15)}}, Bounds{15, 20}},
		{"max only", map[string]Override{"A": {Max: IntPtr(12)}}, Bounds{10, 12}},
		{"other activity", map[string]Override{"B": {Min: IntPtr(1)}}, Bounds{10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Variant{Name: "V", Times: tt.times}
			if got := v.Bounds(act); got != tt.want {
				t.Errorf("Bounds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds_Ordered(t *testing.T) {
	b := Bounds{Min: 900, Max: 5}
	if !b.Inverted() {
		t.Fatal("expected inverted bounds")
	}
	if got := b.Ordered(); got != (Bounds{5, 900}) {
		t.Errorf("Ordered() = %v", got)
	}
}

func TestParseRouteName(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"Route 1: Failed Stock Availability Check", 1, true},
		{"Route 10: Update Inventory Levels Duplicated", 10, true},
		{"Route 7", 7, true},
		{"  Route 3 : spaced", 3, true},
		{"Route 1x: nope", 0, false},
		{"Standard Order Flow", 0, false},
		{"My Route 2: not leading", 0, false},
		{"Route 0: zero", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRouteName(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRouteName(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseRouteName_NoPrefixCollision(t *testing.T) {
	n, _ := ParseRouteName("Route 10: x")
	if n == 1 {
		t.Error("Route 10 parsed as route 1")
	}
}

func TestIsAnomalyName(t *testing.T) {
	if !IsAnomalyName("Route 6: paid after approval (Anomaly)") {
		t.Error("expected anomaly")
	}
	if IsAnomalyName("Route 6: regular") {
		t.Error("unexpected anomaly")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
name: tiny
policy: routes
routes: {1: 2, 3: 1}
activities:
  - {name: A, min_time: 10, max_time: 10}
variants:
  - name: "Route 1: main"
    activities: [A, A]
  - name: "Route 1: odd (anomaly)"
    activities: [A]
  - name: explicit
    route: 3
    activities: [A]
`)
	sc, err := Parse(data, "tiny.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sc.Policy != PolicyRoutes {
		t.Errorf("Policy = %q", sc.Policy)
	}
	if sc.Variants[0].Route != 1 || sc.Variants[0].Anomaly {
		t.Errorf("variant 0 = %+v", sc.Variants[0])
	}
	if sc.Variants[1].Route != 1 || !sc.Variants[1].Anomaly {
		t.Errorf("variant 1 = %+v", sc.Variants[1])
	}
	if sc.Variants[2].Route != 3 {
		t.Errorf("variant 2 route = %d", sc.Variants[2].Route)
	}
	if got := sc.RouteNumbers(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("RouteNumbers() = %v", got)
	}
	if sc.TotalRouteCases() != 3 {
		t.Errorf("TotalRouteCases() = %d", sc.TotalRouteCases())
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("name: x\nunknown_field: 1\n"), "x.yaml")
	if !lgerrors.IsCode(err, lgerrors.CodeInvalidScenario) {
		t.Errorf("unknown field: err = %v", err)
	}

	_, err = Parse([]byte("name: x\npolicy: lottery\n"), "x.yaml")
	if !lgerrors.IsCode(err, lgerrors.CodeInvalidPolicy) {
		t.Errorf("bad policy: err = %v", err)
	}
}

func TestParse_DefaultName(t *testing.T) {
	sc, err := Parse([]byte("activities: []\nvariants: []\n"), "/tmp/my-flow.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "my-flow" {
		t.Errorf("Name = %q", sc.Name)
	}
}

func TestBuiltins(t *testing.T) {
	names := BuiltinNames()
	if len(names) != 2 || names[0] != "fulfillment" || names[1] != "order-flow" {
		t.Fatalf("BuiltinNames() = %v", names)
	}

	of, err := Builtin("order-flow")
	if err != nil {
		t.Fatalf("Builtin(order-flow) error = %v", err)
	}
	if len(of.Activities) != 5 || len(of.Variants) != 3 {
		t.Errorf("order-flow: %d activities, %d variants", len(of.Activities), len(of.Variants))
	}
	if warnings := Check(of); len(warnings) != 0 {
		t.Errorf("order-flow warnings = %v", warnings)
	}

	ff, err := Builtin("fulfillment")
	if err != nil {
		t.Fatalf("Builtin(fulfillment) error = %v", err)
	}
	if ff.Policy != PolicyRoutes || ff.TotalRouteCases() != 70 {
		t.Errorf("fulfillment policy %q, cases %d", ff.Policy, ff.TotalRouteCases())
	}
	for _, v := range ff.Variants {
		if v.Route == 0 {
			t.Errorf("variant %q has no route", v.Name)
		}
	}
	if warnings := Check(ff); len(warnings) != 0 {
		t.Errorf("fulfillment warnings = %v", warnings)
	}

	if _, err := Builtin("nope"); !lgerrors.IsCode(err, lgerrors.CodeUnknownScenario) {
		t.Errorf("Builtin(nope) err = %v", err)
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load("order-flow"); err != nil {
		t.Errorf("Load(builtin) error = %v", err)
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !lgerrors.IsCode(err, lgerrors.CodeFileNotFound) {
		t.Errorf("Load(missing) err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte("activities: [{name: A}]\nvariants: [{name: V, activities: [A], frequency: 100}]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load(file) error = %v", err)
	}
	if sc.Name != "flow" || sc.Policy != PolicyProportional {
		t.Errorf("scenario = %q/%q", sc.Name, sc.Policy)
	}
}

func TestClone_Independent(t *testing.T) {
	sc, err := Builtin("order-flow")
	if err != nil {
		t.Fatal(err)
	}
	cp := sc.Clone()
	cp.Variants[0].Activities[0] = "changed"
	cp.Variants[0].Times["Order Received"] = Override{}
	cp.Activities[0].Name = "changed"

	if sc.Variants[0].Activities[0] == "changed" || sc.Activities[0].Name == "changed" {
		t.Error("Clone shares slices with the original")
	}
	if sc.Variants[0].Times["Order Received"].Min == nil {
		t.Error("Clone shares the times map with the original")
	}
}

func TestCheck(t *testing.T) {
	sc := &Scenario{
		Policy: PolicyProportional,
		Activities: []Activity{
			{Name: "A", MinTime: 10, MaxTime: 5},
			{Name: "A"},
			{Name: "B"},
		},
		Variants: []Variant{
			{Name: "V1", Activities: []string{"A"}, Frequency: 60.5},
			{Name: "V2", Activities: []string{"B"}, Frequency: 30, Times: map[string]Override{"B": {Min: IntPtr(900), Max: IntPtr(5)}}},
		},
		BatchActivity: "Z",
	}

	kinds := make(map[WarningKind]int)
	for _, w := range Check(sc) {
		kinds[w.Kind]++
	}

	want := map[WarningKind]int{
		WarnDuplicateActivity:   1,
		WarnInvertedBounds:      2,
		WarnFractionalFrequency: 1,
		WarnFrequencySum:        1,
		WarnMissingBatchPoint:   1,
	}
	for k, n := range want {
		if kinds[k] != n {
			t.Errorf("%s warnings = %d, want %d", k, kinds[k], n)
		}
	}
}

func TestCheck_Routes(t *testing.T) {
	sc := &Scenario{
		Policy: PolicyRoutes,
		Routes: map[int]int{1: 2},
		Variants: []Variant{
			{Name: "a", Route: 1},
			{Name: "b", Route: 1},
			{Name: "c", Route: 1, Anomaly: true},
			{Name: "d", Route: 1, Anomaly: true},
		},
	}
	kinds := make(map[WarningKind]int)
	for _, w := range Check(sc) {
		kinds[w.Kind]++
	}
	if kinds[WarnDuplicateRoute] != 1 || kinds[WarnMultipleAnomalies] != 1 {
		t.Errorf("warnings = %v", kinds)
	}
	if kinds[WarnFrequencySum] != 0 {
		t.Error("frequency sum checked under the routes policy")
	}
}

func TestRouteShares(t *testing.T) {
	shares := RouteShares(map[int]int{1: 1, 2: 1, 3: 1})
	if len(shares) != 3 {
		t.Fatalf("len = %d", len(shares))
	}
	sum := 0.0
	for _, s := range shares {
		sum += s.Percent
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("sum = %v, want 100", sum)
	}
	if shares[0].Route != 1 || shares[2].Route != 3 {
		t.Errorf("order = %v", shares)
	}

	if RouteShares(map[int]int{}) != nil {
		t.Error("expected nil for empty distribution")
	}
}

func TestWorkbook_RoundTrip(t *testing.T) {
	sc, err := Builtin("fulfillment")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sc); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}

	got, err := ReadWorkbook(&buf, "fulfillment.xlsx")
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}

	if got.Name != sc.Name || got.Policy != sc.Policy || got.BatchActivity != sc.BatchActivity {
		t.Errorf("settings = %q/%q/%q", got.Name, got.Policy, got.BatchActivity)
	}
	if len(got.Activities) != len(sc.Activities) || len(got.Variants) != len(sc.Variants) {
		t.Fatalf("sizes = %d/%d", len(got.Activities), len(got.Variants))
	}
	if got.TotalRouteCases() != sc.TotalRouteCases() {
		t.Errorf("route cases = %d", got.TotalRouteCases())
	}

	v := got.Variants[3]
	want := sc.Variants[3]
	if v.Name != want.Name || v.Route != want.Route || len(v.Activities) != len(want.Activities) || v.CycleTime != want.CycleTime {
		t.Errorf("variant = %+v", v)
	}
	ov := v.Times["Provide payment instructions to customer"]
	if ov.Min == nil || *ov.Min != 901 {
		t.Errorf("override = %+v", ov)
	}
}

func TestParseTimes(t *testing.T) {
	times, err := parseTimes("A=1-2; B=5-; C=-9")
	if err != nil {
		t.Fatal(err)
	}
	if *times["A"].Min != 1 || *times["A"].Max != 2 {
		t.Errorf("A = %+v", times["A"])
	}
	if times["B"].Max != nil || *times["B"].Min != 5 {
		t.Errorf("B = %+v", times["B"])
	}
	if times["C"].Min != nil || *times["C"].Max != 9 {
		t.Errorf("C = %+v", times["C"])
	}

	if _, err := parseTimes("broken"); err == nil {
		t.Error("expected error")
	}
}
