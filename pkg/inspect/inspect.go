// Package inspect summarizes exported event logs with DuckDB.
package inspect

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/sink"
)

// Summary describes an exported log.
type Summary struct {
	Path   string
	Format sink.Format

	Columns []string

	Events     int64
	Cases      int64
	Activities int64

	First time.Time
	Last  time.Time

	AvgEventsPerCase float64
	AnomalyCases     int64

	Routes        []RouteCount
	TopActivities []ActivityCount
}

// Span returns the time between the first and last event.
func (s *Summary) Span() time.Duration {
	return s.Last.Sub(s.First)
}

// RouteCount holds per-route totals.
type RouteCount struct {
	Route  string
	Cases  int64
	Events int64
}

// ActivityCount holds activity frequency.
type ActivityCount struct {
	Activity string
	Count    int64
}

// Inspector runs summary queries on an in-memory DuckDB database.
type Inspector struct {
	db     *sql.DB
	tmpDir string

	// TopN limits the activity ranking.
	TopN int
}

// New opens an inspector.
func New() (*Inspector, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// session settings are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("SET TimeZone = 'UTC'"); err != nil {
		log.Printf("[inspect] WARN: cannot pin session time zone: %v", err)
	}
	return &Inspector{db: db, TopN: 10}, nil
}

// Close releases resources.
func (i *Inspector) Close() error {
	if i.tmpDir != "" {
		os.RemoveAll(i.tmpDir)
	}
	return i.db.Close()
}

// Inspect summarizes the log at path. XLSX exports are staged as CSV first.
func (i *Inspector) Inspect(ctx context.Context, path string) (*Summary, error) {
	format, ok := sink.FormatFromPath(path)
	if !ok {
		return nil, lgerrors.New(lgerrors.CodeInvalidFormat, "cannot infer format from extension").
			WithContext("path", path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, lgerrors.FileNotFound(path)
		}
		return nil, err
	}

	var src string
	switch format {
	case sink.FormatParquet:
		src = fmt.Sprintf("read_parquet('%s')", escapePath(path))
	case sink.FormatCSV:
		src = fmt.Sprintf("read_csv_auto('%s', header=true, all_varchar=true)", escapePath(path))
	case sink.FormatXLSX:
		staged, err := i.stageXLSX(path)
		if err != nil {
			return nil, err
		}
		src = fmt.Sprintf("read_csv_auto('%s', header=true, all_varchar=true)", escapePath(staged))
	}

	s := &Summary{Path: path, Format: format}
	if err := i.summarize(ctx, src, s); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	return s, nil
}

// stageXLSX converts the first worksheet to CSV in the inspector's temp dir.
func (i *Inspector) stageXLSX(path string) (string, error) {
	table, err := sink.ReadTable(path)
	if err != nil {
		return "", err
	}
	if i.tmpDir == "" {
		dir, err := os.MkdirTemp("", "loggen-inspect-")
		if err != nil {
			return "", err
		}
		i.tmpDir = dir
	}

	staged := filepath.Join(i.tmpDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".csv")
	f, err := os.Create(staged)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(table.Headers)
	for _, row := range table.Rows {
		// pad rows whose trailing cells were empty
		if len(row) < len(table.Headers) {
			row = append(row, make([]string, len(table.Headers)-len(row))...)
		}
		w.Write(row)
	}
	w.Flush()
	return staged, w.Error()
}

func (i *Inspector) summarize(ctx context.Context, src string, s *Summary) error {
	cols, err := i.columns(ctx, src)
	if err != nil {
		return err
	}
	s.Columns = cols
	has := make(map[string]bool, len(cols))
	for _, c := range cols {
		has[c] = true
	}

	if err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+src).Scan(&s.Events); err != nil {
		return fmt.Errorf("event count failed: %w", err)
	}

	caseID := quote(model.ColumnCaseID)
	if has[string(model.ColumnCaseID)] {
		if err := i.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(DISTINCT %s) FROM %s", caseID, src)).Scan(&s.Cases); err != nil {
			return fmt.Errorf("case count failed: %w", err)
		}
		if s.Cases > 0 {
			s.AvgEventsPerCase = float64(s.Events) / float64(s.Cases)
		}
	}

	if has[string(model.ColumnTimestamp)] {
		var first, last sql.NullString
		ts := fmt.Sprintf("TRY_CAST(%s AS TIMESTAMP)", quote(model.ColumnTimestamp))
		if err := i.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT CAST(MIN(%s) AS VARCHAR), CAST(MAX(%s) AS VARCHAR) FROM %s", ts, ts, src)).Scan(&first, &last); err != nil {
			return fmt.Errorf("time span failed: %w", err)
		}
		s.First = parseTimestamp(first.String)
		s.Last = parseTimestamp(last.String)
	}

	if has[string(model.ColumnActivity)] {
		if err := i.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(DISTINCT %s) FROM %s", quote(model.ColumnActivity), src)).Scan(&s.Activities); err != nil {
			return fmt.Errorf("activity count failed: %w", err)
		}
		if s.TopActivities, err = i.topActivities(ctx, src); err != nil {
			return fmt.Errorf("activity ranking failed: %w", err)
		}
	}

	if has[string(model.ColumnRoute)] && has[string(model.ColumnCaseID)] {
		if s.Routes, err = i.routes(ctx, src); err != nil {
			return fmt.Errorf("route breakdown failed: %w", err)
		}
	}

	if has[string(model.ColumnAnomaly)] && has[string(model.ColumnCaseID)] {
		if err := i.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT COUNT(DISTINCT %s) FROM %s WHERE lower(CAST(%s AS VARCHAR)) IN ('yes', 'true')",
			caseID, src, quote(model.ColumnAnomaly))).Scan(&s.AnomalyCases); err != nil {
			return fmt.Errorf("anomaly count failed: %w", err)
		}
	}

	return nil
}

func (i *Inspector) topActivities(ctx context.Context, src string) ([]ActivityCount, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s, COUNT(*) AS n FROM %s GROUP BY 1 ORDER BY n DESC, 1 LIMIT %d",
		quote(model.ColumnActivity), src, i.TopN))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActivityCount
	for rows.Next() {
		var ac ActivityCount
		if err := rows.Scan(&ac.Activity, &ac.Count); err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

// routes groups by the route cell, which is "Route N" in text exports and N in Parquet.
func (i *Inspector) routes(ctx context.Context, src string) ([]RouteCount, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT route, cases, events FROM (
			SELECT CAST(%s AS VARCHAR) AS route, COUNT(DISTINCT %s) AS cases, COUNT(*) AS events
			FROM %s
			GROUP BY 1
		)
		WHERE route IS NOT NULL AND route <> ''
		ORDER BY TRY_CAST(regexp_extract(route, '(\d+)', 1) AS INTEGER), route`,
		quote(model.ColumnRoute), quote(model.ColumnCaseID), src))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RouteCount
	for rows.Next() {
		var rc RouteCount
		if err := rows.Scan(&rc.Route, &rc.Cases, &rc.Events); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(rc.Route, "Route") {
			rc.Route = "Route " + rc.Route
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (i *Inspector) columns(ctx context.Context, src string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+src)
	if err != nil {
		return nil, fmt.Errorf("describe failed: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name, dtype string
		var null, key, dflt, extra interface{}
		if err := rows.Scan(&name, &dtype, &null, &key, &dflt, &extra); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// DuckDB renders milliseconds only when non-zero
	for _, layout := range []string{"2006-01-02 15:04:05.999999", model.TimestampLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func quote(c model.Column) string {
	return `"` + strings.ReplaceAll(string(c), `"`, `""`) + `"`
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
