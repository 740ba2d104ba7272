package sink

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
)

func sampleLog() *model.EventLog {
	t0 := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	return &model.EventLog{
		RunID:    "run-1",
		Scenario: "sample",
		Events: []model.Event{
			{Seq: 1, CaseID: "R1_01", Activity: "Pick", Timestamp: t0, Pool: "Shop", Lane: "Sales", Resource: "Ann", Variant: "Route 1: a", Route: 1, CycleTime: 90 * time.Second, HasCycle: true},
			{Seq: 2, CaseID: "R1_01", Activity: "Pack, wrap", Timestamp: t0.Add(30 * time.Second), Pool: "Shop", Lane: "Sales", Resource: "Ann", Variant: "Route 1: a", Route: 1, CycleTime: 90 * time.Second, HasCycle: true},
			{Seq: 3, CaseID: "R2_01A", Activity: "Pick", Timestamp: t0.Add(time.Minute), Pool: "N/A", Lane: "N/A", Resource: "Unknown", Variant: "Route 2: b (anomaly)", Route: 2, Anomaly: true},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"xlsx", FormatXLSX, true},
		{"Excel", FormatXLSX, true},
		{"CSV", FormatCSV, true},
		{"parquet", FormatParquet, true},
		{"json", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !lgerrors.IsCode(err, lgerrors.CodeInvalidFormat) {
			t.Errorf("ParseFormat(%q) code = %s", tt.in, lgerrors.GetCode(err))
		}
	}

	if f, ok := FormatFromPath("out/log.PARQUET"); !ok || f != FormatParquet {
		t.Errorf("FormatFromPath = %q, %v", f, ok)
	}
	if _, ok := FormatFromPath("out/log"); ok {
		t.Error("FormatFromPath accepted a path without extension")
	}
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Columns: model.RouteColumns}
	if err := Export(context.Background(), FormatCSV, &buf, sampleLog(), opts); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	table, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(table.Headers) != len(model.RouteColumns) || len(table.Rows) != 3 {
		t.Fatalf("table = %d headers, %d rows", len(table.Headers), len(table.Rows))
	}

	if got := table.Cell(1, model.ColumnActivity); got != "Pack, wrap" {
		t.Errorf("activity = %q", got)
	}
	if got := table.Cell(0, model.ColumnRoute); got != "Route 1" {
		t.Errorf("route = %q", got)
	}
	if got := table.Cell(2, model.ColumnAnomaly); got != "Yes" {
		t.Errorf("anomaly = %q", got)
	}
	if got := table.Cell(0, model.ColumnCycleTime); got != "90" {
		t.Errorf("cycle time = %q", got)
	}
	if got := table.Cell(2, model.ColumnCycleTime); got != "" {
		t.Errorf("cycle time = %q, want empty", got)
	}
	ts, err := table.Timestamp(0, "")
	if err != nil || !ts.Equal(time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v, %v", ts, err)
	}
}

func TestExport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(context.Background(), FormatXLSX, &buf, sampleLog(), Options{}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	table, err := ReadXLSX(bytes.NewReader(buf.Bytes()), DefaultSheetName)
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	want := model.Headers(model.SimpleColumns)
	for i, h := range want {
		if table.Headers[i] != h {
			t.Errorf("header %d = %q, want %q", i, table.Headers[i], h)
		}
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	if got := table.Cell(0, model.ColumnID); got != "LOG-1" {
		t.Errorf("id = %q", got)
	}
	if got := table.Cell(2, model.ColumnCaseID); got != "R2_01A" {
		t.Errorf("case id = %q", got)
	}
	if got := table.Cell(2, model.ColumnTimestamp); got != "2024-03-04 09:16:00" {
		t.Errorf("timestamp = %q", got)
	}
}

func TestExport_Parquet(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Columns: model.AllColumns, Compression: CompressionZstd}
	if err := Export(context.Background(), FormatParquet, &buf, sampleLog(), opts); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()),
		parquet.NewReaderProperties(memory.DefaultAllocator), pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	defer tbl.Release()

	if tbl.NumRows() != 3 {
		t.Errorf("rows = %d, want 3", tbl.NumRows())
	}
	if int(tbl.NumCols()) != len(model.AllColumns) {
		t.Errorf("cols = %d, want %d", tbl.NumCols(), len(model.AllColumns))
	}
	if name := tbl.Schema().Field(1).Name; name != "Case ID" {
		t.Errorf("field 1 = %q", name)
	}
}

func TestExport_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Export(ctx, FormatCSV, &buf, sampleLog(), Options{})
	if !lgerrors.IsCode(err, lgerrors.CodeWriteFailed) {
		t.Errorf("err = %v, want %s", err, lgerrors.CodeWriteFailed)
	}
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Export(context.Background(), FormatCSV, f, sampleLog(), Options{}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if len(table.Rows) != 3 {
		t.Errorf("rows = %d", len(table.Rows))
	}

	if _, err := ReadTable(filepath.Join(dir, "missing.csv")); !lgerrors.IsCode(err, lgerrors.CodeFileNotFound) {
		t.Errorf("missing file err = %v", err)
	}
	if _, err := ReadTable(filepath.Join(dir, "log.parquet")); !lgerrors.IsCode(err, lgerrors.CodeInvalidFormat) {
		t.Errorf("parquet err = %v", err)
	}
}
