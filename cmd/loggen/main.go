// loggen - synthetic business process event log generator.
// Builds case pools from a scenario catalog and writes timestamp-ordered
// event logs as XLSX, CSV or Parquet.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/loggen/pkg/config"
	"github.com/logflow/loggen/pkg/telemetry"
	"github.com/logflow/loggen/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	verbose    bool
	quiet      bool
	configFile string
	traceFlag  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loggen",
	Short: "loggen - Generate synthetic process mining event logs",
	Long: `loggen generates synthetic business-process event logs from a catalog of
activities and process variants.

Built-in scenarios:
  order-flow    proportional variant mix, 5 activities
  fulfillment   14 routes with anomaly siblings and hourly collective shipments

Run "loggen scenarios list" to see them, or pass a YAML/XLSX scenario file.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Additional config file (merged last)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Export OpenTelemetry spans (see telemetry.endpoint)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// loadConfig loads the hierarchical configuration plus --config.
func loadConfig() (*config.Manager, error) {
	m := config.NewManager()
	var extra []string
	if configFile != "" {
		extra = append(extra, configFile)
	}
	if err := m.Load(extra...); err != nil {
		return nil, err
	}
	if verbose {
		for _, p := range m.GetPaths() {
			log.Printf("[config] INFO: loaded %s", p)
		}
	}
	return m, nil
}

// startTracing installs the OTLP exporter when enabled. The returned
// function flushes spans and is always safe to call.
func startTracing(ctx context.Context, cfg *config.Config) func() {
	if !traceFlag && !cfg.Telemetry.Enabled {
		return func() {}
	}
	p, err := telemetry.Init(ctx, cfg.Telemetry.Tracing(version))
	if err != nil {
		log.Printf("[telemetry] WARN: tracing disabled: %v", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			log.Printf("[telemetry] WARN: flush failed: %v", err)
		}
	}
}

// logger returns a Logf sink for the generator. INFO lines need --verbose.
func logger(prefix string) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		if quiet || (!verbose && strings.HasPrefix(format, "INFO:")) {
			return
		}
		log.Printf("["+prefix+"] "+format, args...)
	}
}
