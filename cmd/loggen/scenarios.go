package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logflow/loggen/pkg/catalog"
	lgerrors "github.com/logflow/loggen/pkg/errors"
	"github.com/logflow/loggen/pkg/tui"
)

var exportOutput string

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List, show and export scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in scenarios",
	Args:  cobra.NoArgs,
	RunE:  runScenariosList,
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show <scenario>",
	Short: "Show a scenario's catalog, route shares and data-quality warnings",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenariosShow,
}

var scenariosExportCmd = &cobra.Command{
	Use:   "export <scenario>",
	Short: "Export a scenario as YAML or as an XLSX workbook",
	Long: `Export a scenario so it can be edited and passed back with --scenario.

Examples:
  loggen scenarios export fulfillment -o fulfillment.yaml
  loggen scenarios export order-flow -o order-flow.xlsx
  loggen scenarios export order-flow            # YAML to stdout`,
	Args: cobra.ExactArgs(1),
	RunE: runScenariosExport,
}

func init() {
	scenariosExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (.yaml, .yml or .xlsx); stdout when empty")

	scenariosCmd.AddCommand(scenariosListCmd)
	scenariosCmd.AddCommand(scenariosShowCmd)
	scenariosCmd.AddCommand(scenariosExportCmd)
}

func runScenariosList(cmd *cobra.Command, args []string) error {
	var all []*catalog.Scenario
	for _, name := range catalog.BuiltinNames() {
		sc, err := catalog.Builtin(name)
		if err != nil {
			return err
		}
		all = append(all, sc)
	}
	fmt.Print(tui.RenderScenarioList(all))
	return nil
}

func runScenariosShow(cmd *cobra.Command, args []string) error {
	sc, err := catalog.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderScenario(sc, catalog.Check(sc)))
	return nil
}

func runScenariosExport(cmd *cobra.Command, args []string) error {
	sc, err := catalog.Load(args[0])
	if err != nil {
		return err
	}

	if exportOutput == "" {
		data, err := catalog.Marshal(sc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := exportScenario(sc, exportOutput); err != nil {
		return err
	}
	if !quiet {
		tui.PrintInfo(os.Stderr, "wrote %s", exportOutput)
	}
	return nil
}

func exportScenario(sc *catalog.Scenario, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to create scenario file").
			WithContext("path", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = catalog.WriteWorkbook(f, sc)
	case ".yaml", ".yml":
		var data []byte
		if data, err = catalog.Marshal(sc); err == nil {
			_, err = f.Write(data)
		}
	default:
		return lgerrors.New(lgerrors.CodeInvalidFormat, "scenario export needs .yaml, .yml or .xlsx").
			WithContext("path", path)
	}
	if err != nil {
		return lgerrors.Wrap(err, lgerrors.CodeWriteFailed, "failed to write scenario").WithContext("path", path)
	}
	return f.Close()
}
