package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logflow/loggen/pkg/inspect"
	"github.com/logflow/loggen/pkg/storage/s3"
	"github.com/logflow/loggen/pkg/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Summarize exported event logs",
	Long: `Summarize exported logs with DuckDB: event and case counts, time span,
per-route breakdown and the most frequent activities.

Examples:
  loggen inspect fulfillment_event_log.xlsx
  loggen inspect out/*.parquet
  loggen inspect s3://event-logs/fulfillment.parquet`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	in, err := inspect.New()
	if err != nil {
		return err
	}
	defer in.Close()

	var client *s3.Client
	for _, path := range args {
		local := path
		if s3.IsURI(path) {
			if client == nil {
				m, err := loadConfig()
				if err != nil {
					return err
				}
				if client, err = s3.NewClient(ctx, m.Get().Storage.S3.S3()); err != nil {
					return err
				}
			}
			tmp, cleanup, err := download(ctx, client, path)
			if err != nil {
				return err
			}
			defer cleanup()
			local = tmp
		}

		s, err := in.Inspect(ctx, local)
		if err != nil {
			return err
		}
		s.Path = path
		fmt.Print(tui.RenderSummary(s))
	}
	return nil
}

// download fetches an object into a temp file that keeps the key's extension.
func download(ctx context.Context, client *s3.Client, raw string) (string, func(), error) {
	uri, err := s3.ParseURI(raw)
	if err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp("", "loggen-download-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(uri.Key))
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := client.Download(ctx, uri, f); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
