// Package sink writes assembled event logs as XLSX, CSV or Parquet tables.
package sink

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Writer writes one event log to its destination.
type Writer interface {
	// Write writes all events of the log.
	Write(ctx context.Context, log *model.EventLog) error

	// Close flushes buffered data. It does not close the destination.
	Close() error
}

// Format is an output table format.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Formats lists the supported formats.
var Formats = []Format{FormatXLSX, FormatCSV, FormatParquet}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet, "pq":
		return FormatParquet, nil
	default:
		return "", lgerrors.New(lgerrors.CodeInvalidFormat, "unknown output format").
			WithContext("format", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	return f, err == nil
}

// Extension returns the file extension of the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Options configures a writer.
type Options struct {
	// Columns selects and orders the exported columns.
	Columns []model.Column

	// Format controls value rendering.
	Format model.FormatConfig

	// SheetName names the XLSX worksheet.
	SheetName string

	// Compression applies to Parquet output.
	Compression CompressionType

	// BatchSize is the number of rows per Parquet record batch.
	BatchSize int
}

// DefaultSheetName is the worksheet name of XLSX exports.
const DefaultSheetName = "Event Log"

// DefaultOptions returns options for the simple column set.
func DefaultOptions() Options {
	return Options{
		Columns:     model.SimpleColumns,
		Format:      model.DefaultFormat(),
		SheetName:   DefaultSheetName,
		Compression: CompressionSnappy,
		BatchSize:   8192,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Columns) == 0 {
		o.Columns = d.Columns
	}
	if o.Format.TimestampLayout == "" {
		o.Format.TimestampLayout = d.Format.TimestampLayout
	}
	if o.SheetName == "" {
		o.SheetName = d.SheetName
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	return o
}

// New creates a writer for the format.
func New(format Format, out io.Writer, opts Options) (Writer, error) {
	opts = opts.withDefaults()
	switch format {
	case FormatXLSX:
		return NewXLSXWriter(out, opts), nil
	case FormatCSV:
		return NewCSVWriter(out, opts), nil
	case FormatParquet:
		return NewParquetWriter(out, opts), nil
	default:
		return nil, lgerrors.New(lgerrors.CodeInvalidFormat, "unknown output format").
			WithContext("format", string(format))
	}
}

// Export writes a log in one call.
func Export(ctx context.Context, format Format, out io.Writer, log *model.EventLog, opts Options) error {
	w, err := New(format, out, opts)
	if err != nil {
		return err
	}
	if err := w.Write(ctx, log); err != nil {
		return lgerrors.Wrapf(err, lgerrors.CodeWriteFailed, "failed to write %s", format)
	}
	if err := w.Close(); err != nil {
		return lgerrors.Wrapf(err, lgerrors.CodeWriteFailed, "failed to finish %s", format)
	}
	return nil
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch s {
	case "snappy", "":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}
