package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/loggen/internal/model"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/sink"
	"github.com/logflow/loggen/pkg/storage/s3"
	"github.com/logflow/loggen/pkg/telemetry"
	"github.com/logflow/loggen/pkg/tui"
)

// target is one export destination.
type target struct {
	Path   string
	Format sink.Format
	Remote *s3.URI
}

// resolveTargets maps --output values to destinations. Without outputs a
// file named after the scenario is written to dir. A path without an
// extension gets the default format's extension.
func resolveTargets(outputs []string, dir, scenario string, format sink.Format) ([]target, error) {
	if len(outputs) == 0 {
		name := strings.ReplaceAll(scenario, " ", "_") + "_event_log" + format.Extension()
		outputs = []string{filepath.Join(dir, name)}
	}

	targets := make([]target, 0, len(outputs))
	seen := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		t := target{Path: out, Format: format}

		if filepath.Ext(out) == "" {
			t.Path = out + format.Extension()
		} else {
			f, ok := sink.FormatFromPath(out)
			if !ok {
				return nil, lgerrors.New(lgerrors.CodeInvalidFormat, "unsupported output extension").
					WithContext("output", out)
			}
			t.Format = f
		}

		if s3.IsURI(t.Path) {
			uri, err := s3.ParseURI(t.Path)
			if err != nil {
				return nil, err
			}
			t.Remote = &uri
		}

		if seen[t.Path] {
			return nil, fmt.Errorf("output %s given twice", t.Path)
		}
		seen[t.Path] = true
		targets = append(targets, t)
	}
	return targets, nil
}

func hasRemote(targets []target) bool {
	for _, t := range targets {
		if t.Remote != nil {
			return true
		}
	}
	return false
}

// writeOutputs exports the log to every target concurrently. The first
// failure cancels the remaining writes.
func writeOutputs(ctx context.Context, log *model.EventLog, targets []target, opts sink.Options, client *s3.Client) ([]tui.Output, error) {
	outs := make([]tui.Output, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			ctx, span := telemetry.Start(ctx, "export",
				attribute.String("path", t.Path),
				attribute.String("format", string(t.Format)),
			)
			defer span.End()

			var size int64
			var err error
			if t.Remote != nil {
				size, err = writeRemote(ctx, log, t, opts, client)
			} else {
				size, err = writeLocal(ctx, log, t, opts)
			}
			if err != nil {
				telemetry.RecordError(ctx, err)
				return err
			}
			span.SetAttributes(attribute.Int64("bytes", size))
			outs[i] = tui.Output{Path: t.Path, Format: string(t.Format), Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// writeLocal writes next to the destination and renames on success, so a
// failed run never leaves a truncated file behind.
func writeLocal(ctx context.Context, log *model.EventLog, t target, opts sink.Options) (int64, error) {
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to create output directory").
			WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.Path)+".tmp-*")
	if err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := sink.Export(ctx, t.Format, tmp, log, opts); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to close output")
	}
	if err := os.Rename(tmp.Name(), t.Path); err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to move output into place").
			WithContext("path", t.Path)
	}

	stat, err := os.Stat(t.Path)
	if err != nil {
		return 0, nil
	}
	return stat.Size(), nil
}

func writeRemote(ctx context.Context, log *model.EventLog, t target, opts sink.Options, client *s3.Client) (int64, error) {
	if client == nil {
		return 0, lgerrors.New(lgerrors.CodeUploadFailed, "no S3 client configured").WithContext("uri", t.Path)
	}

	w := client.Writer(ctx, *t.Remote, s3.WriteOptions{
		ContentType: contentType(t.Format),
		Metadata: map[string]string{
			"run-id":   log.RunID,
			"scenario": log.Scenario,
		},
	})
	cw := &countingWriter{w: w}
	if err := sink.Export(ctx, t.Format, cw, log, opts); err != nil {
		w.Abort()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, lgerrors.Wrap(err, lgerrors.CodeUploadFailed, "upload failed").WithContext("uri", t.Path)
	}
	return cw.n, nil
}

func contentType(f sink.Format) string {
	switch f {
	case sink.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case sink.FormatCSV:
		return "text/csv"
	default:
		return "application/vnd.apache.parquet"
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
