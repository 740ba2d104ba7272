package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/sink"
)

func testLog() *model.EventLog {
	t0 := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	ev := func(seq int, id, act string, off time.Duration, route int, anomaly bool) model.Event {
		return model.Event{Seq: seq, CaseID: id, Activity: act, Timestamp: t0.Add(off), Pool: "P", Lane: "L", Route: route, Anomaly: anomaly}
	}
	return &model.EventLog{
		RunID:    "run",
		Scenario: "test",
		Events: []model.Event{
			ev(1, "R1_01", "Create order", 0, 1, false),
			ev(2, "R1_01", "Ship", time.Minute, 1, false),
			ev(3, "R2_01", "Create order", 2*time.Minute, 2, false),
			ev(4, "R2_01", "Ship", 3*time.Minute, 2, false),
			ev(5, "R2_02A", "Create order", 4*time.Minute, 2, true),
			ev(6, "R10_01", "Create order", time.Hour, 10, false),
		},
	}
}

func export(t *testing.T, format sink.Format) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log"+format.Extension())
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := sink.Export(context.Background(), format, f, testLog(), sink.Options{Columns: model.RouteColumns}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return path
}

func TestInspect(t *testing.T) {
	for _, format := range sink.Formats {
		t.Run(string(format), func(t *testing.T) {
			path := export(t, format)

			in, err := New()
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer in.Close()

			s, err := in.Inspect(context.Background(), path)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}

			if s.Events != 6 || s.Cases != 4 || s.Activities != 2 {
				t.Errorf("events=%d cases=%d activities=%d", s.Events, s.Cases, s.Activities)
			}
			if s.AvgEventsPerCase != 1.5 {
				t.Errorf("avg = %v", s.AvgEventsPerCase)
			}
			if s.AnomalyCases != 1 {
				t.Errorf("anomaly cases = %d", s.AnomalyCases)
			}
			if s.Span() != time.Hour {
				t.Errorf("span = %v (%v .. %v)", s.Span(), s.First, s.Last)
			}

			if len(s.Routes) != 3 {
				t.Fatalf("routes = %+v", s.Routes)
			}
			want := []RouteCount{{"Route 1", 1, 2}, {"Route 2", 2, 3}, {"Route 10", 1, 1}}
			for i, rc := range want {
				if s.Routes[i] != rc {
					t.Errorf("route %d = %+v, want %+v", i, s.Routes[i], rc)
				}
			}

			if len(s.TopActivities) == 0 || s.TopActivities[0] != (ActivityCount{"Create order", 4}) {
				t.Errorf("top activities = %+v", s.TopActivities)
			}
		})
	}
}

func TestInspect_Errors(t *testing.T) {
	in, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	dir := t.TempDir()
	if _, err := in.Inspect(context.Background(), filepath.Join(dir, "missing.csv")); !lgerrors.IsCode(err, lgerrors.CodeFileNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := in.Inspect(context.Background(), filepath.Join(dir, "log.json")); !lgerrors.IsCode(err, lgerrors.CodeInvalidFormat) {
		t.Errorf("format err = %v", err)
	}
}
