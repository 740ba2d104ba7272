package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/generator"
	"github.com/logflow/loggen/pkg/tui"
)

var strictFlag bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario and run settings without writing output",
	Long: `Run the scenario in memory and report validation errors and data-quality
warnings. With --strict, warnings fail the command too.

Examples:
  loggen validate -s my-process.yaml
  loggen validate -s fulfillment --start 2024-01-01 --end 2024-01-02`,
	RunE: runValidate,
}

func init() {
	addRunFlags(validateCmd)
	validateCmd.Flags().BoolVar(&strictFlag, "strict", false, "Treat data-quality warnings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	m, err := loadConfig()
	if err != nil {
		return err
	}

	rs, err := resolveRun(cmd, m, scenarioRef)
	if err != nil {
		return err
	}

	res, err := generator.New(rs.gen, generator.WithLogf(logger("validate"))).Generate(ctx, rs.scenario)
	if err != nil {
		if lgerrors.IsValidation(err) {
			return fmt.Errorf("invalid run settings: %w", err)
		}
		return err
	}

	if !quiet {
		fmt.Print(tui.RenderScenario(rs.scenario, res.Warnings))
		tui.PrintInfo(os.Stdout, "%d cases, %d events, %d batches", len(res.Cases), res.Log.Len(), len(res.Batches))
	}

	if strictFlag && (len(res.Warnings) > 0 || len(res.Fallbacks) > 0) {
		return fmt.Errorf("%d data-quality warnings, %d unknown activities", len(res.Warnings), len(res.Fallbacks))
	}
	return nil
}
