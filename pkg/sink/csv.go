package sink

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/logflow/loggen/internal/model"
)

// CSVWriter writes a log as comma-separated values with a header row.
type CSVWriter struct {
	w    *csv.Writer
	opts Options
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(out io.Writer, opts Options) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(out), opts: opts.withDefaults()}
}

// Write writes the header and all events.
func (w *CSVWriter) Write(ctx context.Context, log *model.EventLog) error {
	if err := w.w.Write(model.Headers(w.opts.Columns)); err != nil {
		return err
	}
	for i := range log.Events {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.w.Write(log.Events[i].Row(w.opts.Columns, w.opts.Format)); err != nil {
			return err
		}
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes buffered rows.
func (w *CSVWriter) Close() error {
	w.w.Flush()
	return w.w.Error()
}
