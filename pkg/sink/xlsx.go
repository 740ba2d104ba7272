package sink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/loggen/internal/model"
)

// XLSXWriter writes a log as one worksheet with one header row.
// Rows are streamed, so memory stays flat for large logs.
type XLSXWriter struct {
	out  io.Writer
	opts Options
}

// NewXLSXWriter creates an XLSX writer.
func NewXLSXWriter(out io.Writer, opts Options) *XLSXWriter {
	return &XLSXWriter{out: out, opts: opts.withDefaults()}
}

// Write writes the workbook.
func (w *XLSXWriter) Write(ctx context.Context, log *model.EventLog) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.opts.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(w.opts.Columns))
	for i, c := range w.opts.Columns {
		header[i] = string(c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := range log.Events {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, w.cells(&log.Events[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       log.Scenario,
		Subject:     "Synthetic event log",
		Identifier:  log.RunID,
		Creator:     "loggen",
		Created:     time.Now().UTC().Format(time.RFC3339),
		Description: fmt.Sprintf("%d events", log.Len()),
	}); err != nil {
		return fmt.Errorf("failed to set document properties: %w", err)
	}

	_, err = f.WriteTo(w.out)
	return err
}

// cells renders a row. Cycle time is written as a number, everything else as text.
func (w *XLSXWriter) cells(e *model.Event) []interface{} {
	row := make([]interface{}, len(w.opts.Columns))
	for i, c := range w.opts.Columns {
		if c == model.ColumnCycleTime && e.HasCycle {
			row[i] = int64(e.CycleTime / time.Second)
			continue
		}
		row[i] = e.Value(c, w.opts.Format)
	}
	return row
}

// Close does nothing; the workbook is written by Write.
func (w *XLSXWriter) Close() error {
	return nil
}
