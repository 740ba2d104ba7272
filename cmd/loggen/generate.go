package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/loggen/pkg/catalog"
	"github.com/logflow/loggen/pkg/config"
	"github.com/logflow/loggen/pkg/generator"
	"github.com/logflow/loggen/pkg/sink"
	"github.com/logflow/loggen/pkg/storage/s3"
	"github.com/logflow/loggen/pkg/tui"
)

// Generate flags
var (
	scenarioRef  string
	outputs      []string
	outputDir    string
	formatFlag   string
	columnsFlag  string
	startFlag    string
	endFlag      string
	daysFlag     int
	seedFlag     int64
	casesFlag    int
	jitterFlag   int
	noBatchFlag  bool
	noShuffle    bool
	compressFlag string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an event log from a scenario",
	Long: `Generate a synthetic event log and write it to one or more outputs.

The scenario is a built-in name or a YAML/XLSX file. Outputs are written
concurrently; the format follows the file extension. s3://bucket/key outputs
are uploaded with the configured S3 settings.

Examples:
  loggen generate
  loggen generate -s fulfillment -o routes.xlsx -o routes.parquet
  loggen generate -s my-process.yaml --start 2024-01-01 --days 30 --seed 42
  loggen generate -s fulfillment -o s3://event-logs/fulfillment.parquet`,
	RunE: runGenerate,
}

func init() {
	addRunFlags(generateCmd)
	generateCmd.Flags().StringArrayVarP(&outputs, "output", "o", nil, "Output path (repeatable; .xlsx, .csv, .parquet or s3://)")
	generateCmd.Flags().StringVar(&outputDir, "dir", "", "Directory for the default output")
}

// addRunFlags registers the flags shared by generate, validate and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&scenarioRef, "scenario", "s", "order-flow", "Built-in scenario name or scenario file")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Default output format (xlsx, csv, parquet)")
	cmd.Flags().StringVar(&columnsFlag, "columns", "", "Column preset (simple, route, all)")
	cmd.Flags().StringVar(&startFlag, "start", "", "First day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Last day of the window (YYYY-MM-DD)")
	cmd.Flags().IntVar(&daysFlag, "days", 0, "Window length in days when --end is not set")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Random seed for reproducible runs")
	cmd.Flags().IntVar(&casesFlag, "cases", 0, "Number of cases (proportional scenarios)")
	cmd.Flags().IntVar(&jitterFlag, "jitter", 0, "Jitter half-width in seconds")
	cmd.Flags().BoolVar(&noBatchFlag, "no-batch", false, "Disable collective shipment batching")
	cmd.Flags().BoolVar(&noShuffle, "no-shuffle", false, "Walk the route pool in route order")
	cmd.Flags().StringVar(&compressFlag, "compression", "", "Parquet compression (none, snappy, gzip, zstd)")
}

// runSettings is everything a run needs after config, scenario and flags
// have been merged.
type runSettings struct {
	cfg      *config.Config
	scenario *catalog.Scenario
	gen      generator.Config
	sink     sink.Options
	format   sink.Format
}

// resolveRun merges configuration layers for one run. Flags win over
// environment, which wins over scenario hints and config files.
func resolveRun(cmd *cobra.Command, m *config.Manager, ref string) (*runSettings, error) {
	cfg := m.Get()
	flags := cmd.Flags()

	if flags.Changed("start") {
		cfg.Generation.StartDate = startFlag
	}
	if flags.Changed("end") {
		cfg.Generation.EndDate = endFlag
	}
	if flags.Changed("days") {
		cfg.Generation.Days = daysFlag
		if !flags.Changed("end") {
			cfg.Generation.EndDate = ""
		}
	}
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("columns") {
		cfg.Output.Columns = columnsFlag
		cfg.Output.ColumnList = nil
	}
	if flags.Changed("compression") {
		cfg.Output.Compression = compressFlag
	}

	sc, err := catalog.Load(ref)
	if err != nil {
		return nil, err
	}

	gen, err := m.Generator(sc)
	if err != nil {
		return nil, err
	}
	if flags.Changed("seed") {
		gen.Seed = seedFlag
	}
	if flags.Changed("cases") {
		gen.Cases = casesFlag
	}
	if flags.Changed("jitter") {
		gen.Jitter = jitterFlag
	}
	if noBatchFlag {
		gen.DisableBatching = true
	}
	if noShuffle {
		gen.Shuffle = false
	}

	opts, err := cfg.Output.Sink(sc.Generation.Columns)
	if err != nil {
		return nil, err
	}
	format, err := sink.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	return &runSettings{cfg: cfg, scenario: sc, gen: gen, sink: opts, format: format}, nil
}

// execute generates the log and writes all targets.
func (rs *runSettings) execute(ctx context.Context, targets []target) (*tui.RunReport, error) {
	start := time.Now()

	opts := []generator.Option{generator.WithLogf(logger("generate"))}
	if !quiet {
		p := tui.NewProgress(os.Stderr, "cases")
		opts = append(opts, generator.WithProgress(p.Update))
	}

	res, err := generator.New(rs.gen, opts...).Generate(ctx, rs.scenario)
	if err != nil {
		return nil, err
	}

	var client *s3.Client
	if hasRemote(targets) {
		client, err = s3.NewClient(ctx, rs.cfg.Storage.S3.S3())
		if err != nil {
			return nil, err
		}
	}

	outs, err := writeOutputs(ctx, res.Log, targets, rs.sink, client)
	if err != nil {
		return nil, err
	}

	return &tui.RunReport{
		Scenario: rs.scenario.Name,
		Result:   res,
		Outputs:  outs,
		Duration: time.Since(start),
	}, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	m, err := loadConfig()
	if err != nil {
		return err
	}
	defer startTracing(ctx, m.Get())()

	rs, err := resolveRun(cmd, m, scenarioRef)
	if err != nil {
		return err
	}

	dir := outputDir
	if dir == "" {
		dir = rs.cfg.Output.Dir
	}
	targets, err := resolveTargets(outputs, dir, rs.scenario.Name, rs.format)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scenario: %s (%s)\n", rs.scenario.Name, rs.scenario.Policy)
		fmt.Fprintf(os.Stderr, "Window:   %s .. %s\n", rs.gen.StartDate.Format(config.DateLayout), rs.gen.EndDate.Format(config.DateLayout))
		fmt.Fprintf(os.Stderr, "Seed:     %d\n", rs.gen.Seed)
	}

	report, err := rs.execute(ctx, targets)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if !quiet {
		tui.PrintRunReport(os.Stdout, report)
	}
	return nil
}
