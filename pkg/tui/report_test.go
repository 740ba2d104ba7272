package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/logflow/loggen/internal/model"
	"github.com/logflow/loggen/pkg/catalog"
	"github.com/logflow/loggen/pkg/generator"
	"github.com/logflow/loggen/pkg/inspect"
)

func TestRenderRunReport(t *testing.T) {
	t0 := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	res := &generator.Result{
		RunID:    "run-42",
		Seed:     7,
		PoolSize: 3,
		Log: &model.EventLog{Events: []model.Event{
			{Timestamp: t0},
			{Timestamp: t0.Add(2 * time.Hour)},
		}},
		Cases:     make([]generator.CaseSummary, 3),
		Batches:   []generator.BatchSummary{{Cases: []string{"R1_01", "R1_02"}}},
		Warnings:  []catalog.Warning{{Kind: catalog.WarnFrequencySum, Message: "frequencies sum to 90"}},
		Fallbacks: []string{"Perfom check"},
	}

	out := RenderRunReport(&RunReport{
		Scenario: "fulfillment",
		Result:   res,
		Outputs:  []Output{{Path: "out/log.xlsx", Format: "xlsx", Size: 2048}},
		Duration: 1500 * time.Millisecond,
	})

	for _, want := range []string{
		"fulfillment", "run-42", "(pool 3)", "(2 cases)", "2024-05-06 08:00 → 2024-05-06 10:00",
		"1.5s", "out/log.xlsx", "2.0 KB", "2 WARNINGS", "frequencies sum to 90", `"Perfom check"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderScenario(t *testing.T) {
	sc, err := catalog.Builtin("fulfillment")
	if err != nil {
		t.Fatal(err)
	}
	out := RenderScenario(sc, nil)
	for _, want := range []string{"FULFILLMENT", "routes", "Route 1 ", "Route 14", "%", "Total:"} {
		if !strings.Contains(out, want) {
			t.Errorf("scenario view missing %q", want)
		}
	}
	if strings.Contains(out, "WARNINGS") {
		t.Error("unexpected warnings section")
	}

	sc, err = catalog.Builtin("order-flow")
	if err != nil {
		t.Fatal(err)
	}
	out = RenderScenario(sc, []catalog.Warning{{Kind: catalog.WarnInvertedBounds, Message: "min above max"}})
	if !strings.Contains(out, "Express") || !strings.Contains(out, "min above max") {
		t.Errorf("order-flow view:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	s := &inspect.Summary{
		Path:             "log.csv",
		Format:           "csv",
		Events:           1500,
		Cases:            100,
		AvgEventsPerCase: 15,
		First:            time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Last:             time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		AnomalyCases:     2,
		Routes:           []inspect.RouteCount{{Route: "Route 3", Cases: 4, Events: 40}},
		TopActivities:    []inspect.ActivityCount{{Activity: "Pick", Count: 9}, {Activity: "Ship", Count: 12}},
	}
	out := RenderSummary(s)
	for _, want := range []string{"CSV", "1.5K", "15.0 events/case", "1h30m", "2 cases", "Route 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Ship") > strings.Index(out, "Pick") {
		t.Error("activities not ranked by count")
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatNumber(999), "999"},
		{formatNumber(12500), "12.5K"},
		{formatNumber(3200000), "3.2M"},
		{formatBytes(512), "512 B"},
		{formatBytes(3 * 1024 * 1024), "3.0 MB"},
		{formatDuration(250 * time.Millisecond), "250ms"},
		{formatDuration(90 * time.Second), "1m30s"},
		{truncate("abcdef", 4), "abc…"},
		{truncate("abc", 4), "abc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "cases")
	for i := 1; i <= 5; i++ {
		p.Update(i, 5)
	}
	if p.total != 5 {
		t.Errorf("total = %d", p.total)
	}
}
