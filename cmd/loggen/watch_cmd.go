package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/loggen/pkg/catalog"
	"github.com/logflow/loggen/pkg/tui"
	"github.com/logflow/loggen/pkg/watch"
)

var debounceFlag time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the log whenever the scenario file changes",
	Long: `Generate once, then regenerate every time the scenario file (or --config
file) is saved. Stop with Ctrl+C.

Examples:
  loggen watch -s my-process.yaml -o preview.xlsx
  loggen watch -s my-process.xlsx -o preview.csv --seed 1`,
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().StringArrayVarP(&outputs, "output", "o", nil, "Output path (repeatable)")
	watchCmd.Flags().DurationVar(&debounceFlag, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(scenarioRef); err != nil {
		return fmt.Errorf("watch needs a scenario file, built-in %v cannot change: %w", catalog.BuiltinNames(), err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	regenerate := func(ctx context.Context) error {
		m, err := loadConfig()
		if err != nil {
			return err
		}
		rs, err := resolveRun(cmd, m, scenarioRef)
		if err != nil {
			return err
		}
		targets, err := resolveTargets(outputs, rs.cfg.Output.Dir, rs.scenario.Name, rs.format)
		if err != nil {
			return err
		}
		report, err := rs.execute(ctx, targets)
		if err != nil {
			return err
		}
		if !quiet {
			tui.PrintRunReport(os.Stdout, report)
		}
		return nil
	}

	if err := regenerate(ctx); err != nil {
		tui.PrintError(os.Stderr, err)
	}

	w, err := watch.NewWatcher(watch.WithDebounce(debounceFlag))
	if err != nil {
		return err
	}
	defer w.Close()

	files := []string{scenarioRef}
	if configFile != "" {
		files = append(files, configFile)
	}
	if err := w.Watch(files...); err != nil {
		return err
	}

	w.OnChange = func(ctx context.Context, paths []string) error {
		if !quiet {
			log.Printf("[watch] %s changed, regenerating", strings.Join(paths, ", "))
		}
		return regenerate(ctx)
	}
	w.OnError = func(err error) {
		tui.PrintError(os.Stderr, err)
	}

	tui.PrintInfo(os.Stderr, "watching %v, Ctrl+C to stop", files)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
