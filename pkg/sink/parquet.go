package sink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/loggen/internal/model"
)

// Parquet schema metadata keys.
const (
	MetaRunID    = "loggen.run_id"
	MetaScenario = "loggen.scenario"
)

// ParquetWriter writes a log to Parquet using Apache Arrow record batches.
// Field names match the CSV and XLSX headers.
type ParquetWriter struct {
	out  io.Writer
	opts Options

	allocator memory.Allocator
	rows      int64
}

// NewParquetWriter creates a Parquet writer.
func NewParquetWriter(out io.Writer, opts Options) *ParquetWriter {
	return &ParquetWriter{
		out:       out,
		opts:      opts.withDefaults(),
		allocator: memory.NewGoAllocator(),
	}
}

// fieldType maps a column to its Arrow type.
func fieldType(c model.Column) (arrow.DataType, bool) {
	switch c {
	case model.ColumnTimestamp:
		return arrow.FixedWidthTypes.Timestamp_ms, false
	case model.ColumnRoute:
		return arrow.PrimitiveTypes.Int32, true
	case model.ColumnAnomaly:
		return arrow.FixedWidthTypes.Boolean, false
	case model.ColumnCycleTime:
		return arrow.PrimitiveTypes.Int64, true
	case model.ColumnResource, model.ColumnVariant:
		return arrow.BinaryTypes.String, true
	default:
		return arrow.BinaryTypes.String, false
	}
}

func (w *ParquetWriter) schema(log *model.EventLog) *arrow.Schema {
	fields := make([]arrow.Field, len(w.opts.Columns))
	for i, c := range w.opts.Columns {
		typ, nullable := fieldType(c)
		fields[i] = arrow.Field{Name: string(c), Type: typ, Nullable: nullable}
	}
	md := arrow.NewMetadata(
		[]string{MetaRunID, MetaScenario},
		[]string{log.RunID, log.Scenario},
	)
	return arrow.NewSchema(fields, &md)
}

func codec(c CompressionType) compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Uncompressed
	}
}

// Write writes all events in record batches of BatchSize rows.
func (w *ParquetWriter) Write(ctx context.Context, log *model.EventLog) error {
	schema := w.schema(log)

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codec(w.opts.Compression)),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	// the file writer closes its sink on Close; the destination belongs to the caller
	fw, err := pqarrow.NewFileWriter(schema, nopCloser{w.out}, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(w.allocator, schema)
	defer b.Release()

	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		if rec.NumRows() == 0 {
			return nil
		}
		if err := fw.Write(rec); err != nil {
			return fmt.Errorf("failed to write record batch: %w", err)
		}
		w.rows += rec.NumRows()
		return nil
	}

	for i := range log.Events {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return err
		}
		w.append(b, &log.Events[i])
		if (i+1)%w.opts.BatchSize == 0 {
			if err := flush(); err != nil {
				fw.Close()
				return err
			}
		}
	}
	if err := flush(); err != nil {
		fw.Close()
		return err
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func (w *ParquetWriter) append(b *array.RecordBuilder, e *model.Event) {
	for i, c := range w.opts.Columns {
		switch c {
		case model.ColumnTimestamp:
			b.Field(i).(*array.TimestampBuilder).Append(arrow.Timestamp(e.Timestamp.UnixMilli()))
		case model.ColumnRoute:
			fb := b.Field(i).(*array.Int32Builder)
			if e.Route == 0 {
				fb.AppendNull()
			} else {
				fb.Append(int32(e.Route))
			}
		case model.ColumnAnomaly:
			b.Field(i).(*array.BooleanBuilder).Append(e.Anomaly)
		case model.ColumnCycleTime:
			fb := b.Field(i).(*array.Int64Builder)
			if e.HasCycle {
				fb.Append(int64(e.CycleTime / time.Second))
			} else {
				fb.AppendNull()
			}
		default:
			b.Field(i).(*array.StringBuilder).Append(e.Value(c, w.opts.Format))
		}
	}
}

// RowsWritten returns the number of rows written.
func (w *ParquetWriter) RowsWritten() int64 {
	return w.rows
}

// Close does nothing; the file is finalized by Write.
func (w *ParquetWriter) Close() error {
	return nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
