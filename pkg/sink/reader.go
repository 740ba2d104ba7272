package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Table is an exported log read back as text cells.
type Table struct {
	Headers []string
	Rows    [][]string

	index map[string]int
}

func newTable(headers []string) *Table {
	t := &Table{Headers: headers, index: make(map[string]int, len(headers))}
	for i, h := range headers {
		t.index[h] = i
	}
	return t
}

// Column returns the position of a column, or -1.
func (t *Table) Column(c model.Column) int {
	if i, ok := t.index[string(c)]; ok {
		return i
	}
	return -1
}

// Cell returns the value of column c in row i.
func (t *Table) Cell(i int, c model.Column) string {
	col := t.Column(c)
	if col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Timestamp parses the timestamp cell of row i.
func (t *Table) Timestamp(i int, layout string) (time.Time, error) {
	if layout == "" {
		layout = model.TimestampLayout
	}
	s := t.Cell(i, model.ColumnTimestamp)
	ts, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, lgerrors.Wrap(err, lgerrors.CodeInvalidTimestamp, "invalid timestamp").
			WithContext("row", i+2).
			WithContext("value", s)
	}
	return ts, nil
}

// ReadTable reads an XLSX or CSV export from disk.
func ReadTable(path string) (*Table, error) {
	format, ok := FormatFromPath(path)
	if !ok || format == FormatParquet {
		return nil, lgerrors.New(lgerrors.CodeInvalidFormat, "only xlsx and csv exports can be read as tables").
			WithContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgerrors.FileNotFound(path)
		}
		return nil, err
	}
	defer f.Close()

	if format == FormatCSV {
		return ReadCSV(f)
	}
	return ReadXLSX(f, "")
}

// ReadCSV reads a CSV export.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	t := newTable(records[0])
	t.Rows = records[1:]
	return t, nil
}

// ReadXLSX reads an XLSX export. An empty sheet name selects the first sheet.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	if sheet == "" {
		sheet = xl.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in xlsx file")
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("xlsx file is empty")
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := newTable(header)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+2, err)
		}
		if len(cols) == 0 {
			continue
		}
		t.Rows = append(t.Rows, cols)
	}
	return t, rows.Error()
}
