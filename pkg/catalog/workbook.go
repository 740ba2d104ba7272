package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// Workbook sheet names.
const (
	SheetActivities = "Activities"
	SheetVariants   = "Variants"
	SheetRoutes     = "Routes"
	SheetSettings   = "Settings"
)

// LoadWorkbook reads a scenario from an XLSX workbook.
//
// Activities: Name | Min Time | Max Time | Concurrent | Pool | Lane | Resource
// Variants:   Name | Route | Anomaly | Frequency | Activities | Times | Cycle Time
// Routes:     Route | Cases                       (optional, selects the routes policy)
// Settings:   Key | Value                         (optional: name, policy, cases, batch_activity)
//
// Variant activities are separated by ";". Times are "name=min-max" entries separated
// by ";", either side may be empty.
func LoadWorkbook(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lgerrors.FileNotFound(path)
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sc, err := ReadWorkbook(f, path)
	if err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// ReadWorkbook reads a scenario workbook from a stream.
func ReadWorkbook(r io.Reader, source string) (*Scenario, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, lgerrors.InvalidScenario(source, err)
	}
	defer xl.Close()

	sheets := make(map[string]bool)
	for _, name := range xl.GetSheetList() {
		sheets[name] = true
	}
	if !sheets[SheetActivities] || !sheets[SheetVariants] {
		return nil, lgerrors.InvalidScenario(source,
			fmt.Errorf("workbook needs %q and %q sheets", SheetActivities, SheetVariants))
	}

	sc := &Scenario{}

	if sheets[SheetSettings] {
		rows, err := xl.GetRows(SheetSettings)
		if err != nil {
			return nil, lgerrors.InvalidScenario(source, err)
		}
		if err := applySettings(sc, rows); err != nil {
			return nil, lgerrors.InvalidScenario(source, err)
		}
	}

	rows, err := xl.GetRows(SheetActivities)
	if err != nil {
		return nil, lgerrors.InvalidScenario(source, err)
	}
	var rowErrs lgerrors.MultiError
	for i, row := range dataRows(rows) {
		a, err := activityFromRow(row)
		if err != nil {
			rowErrs.Add(fmt.Errorf("%s row %d: %w", SheetActivities, i+2, err))
			continue
		}
		if a.Name != "" {
			sc.Activities = append(sc.Activities, a)
		}
	}

	rows, err = xl.GetRows(SheetVariants)
	if err != nil {
		return nil, lgerrors.InvalidScenario(source, err)
	}
	for i, row := range dataRows(rows) {
		v, err := variantFromRow(row)
		if err != nil {
			rowErrs.Add(fmt.Errorf("%s row %d: %w", SheetVariants, i+2, err))
			continue
		}
		if v.Name != "" {
			sc.Variants = append(sc.Variants, v)
		}
	}
	if rowErrs.HasErrors() {
		return nil, lgerrors.InvalidScenario(source, rowErrs.Combined())
	}

	if sheets[SheetRoutes] {
		rows, err := xl.GetRows(SheetRoutes)
		if err != nil {
			return nil, lgerrors.InvalidScenario(source, err)
		}
		sc.Routes = make(map[int]int)
		for i, row := range dataRows(rows) {
			route, err := cast.ToIntE(cell(row, 0))
			if err != nil {
				return nil, lgerrors.InvalidScenario(source, err).WithContext("sheet", SheetRoutes).WithContext("row", i+2)
			}
			count, err := cast.ToIntE(cell(row, 1))
			if err != nil {
				return nil, lgerrors.InvalidScenario(source, err).WithContext("sheet", SheetRoutes).WithContext("row", i+2)
			}
			sc.Routes[route] = count
		}
		if sc.Policy == "" {
			sc.Policy = PolicyRoutes
		}
	}

	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return sc, nil
}

// dataRows skips the header row and blank rows.
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func intCell(row []string, i int) (int, error) {
	s := cell(row, i)
	if s == "" {
		return 0, nil
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, fmt.Errorf("column %d: %w", i+1, err)
	}
	return int(f), nil
}

func boolCell(row []string, i int) bool {
	switch strings.ToLower(cell(row, i)) {
	case "yes", "y", "x":
		return true
	}
	return cast.ToBool(cell(row, i))
}

func activityFromRow(row []string) (Activity, error) {
	minTime, err := intCell(row, 1)
	if err != nil {
		return Activity{}, err
	}
	maxTime, err := intCell(row, 2)
	if err != nil {
		return Activity{}, err
	}
	return Activity{
		Name:       cell(row, 0),
		MinTime:    minTime,
		MaxTime:    maxTime,
		Concurrent: boolCell(row, 3),
		Pool:       cell(row, 4),
		Lane:       cell(row, 5),
		Resource:   cell(row, 6),
	}, nil
}

func variantFromRow(row []string) (Variant, error) {
	route, err := intCell(row, 1)
	if err != nil {
		return Variant{}, err
	}
	freq := 0.0
	if s := cell(row, 3); s != "" {
		freq, err = cast.ToFloat64E(s)
		if err != nil {
			return Variant{}, fmt.Errorf("frequency: %w", err)
		}
	}
	times, err := parseTimes(cell(row, 5))
	if err != nil {
		return Variant{}, err
	}
	return Variant{
		Name:       cell(row, 0),
		Route:      route,
		Anomaly:    boolCell(row, 2),
		Frequency:  freq,
		Activities: splitList(cell(row, 4)),
		Times:      times,
		CycleTime:  boolCell(row, 6),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTimes parses "name=min-max;name=min-" override lists.
func parseTimes(s string) (map[string]Override, error) {
	entries := splitList(s)
	if len(entries) == 0 {
		return nil, nil
	}
	times := make(map[string]Override, len(entries))
	for _, entry := range entries {
		eq := strings.LastIndex(entry, "=")
		if eq < 0 {
			return nil, fmt.Errorf("times entry %q: expected name=min-max", entry)
		}
		name := strings.TrimSpace(entry[:eq])
		lo, hi, ok := strings.Cut(entry[eq+1:], "-")
		if !ok {
			return nil, fmt.Errorf("times entry %q: expected min-max", entry)
		}
		var ov Override
		if lo = strings.TrimSpace(lo); lo != "" {
			v, err := cast.ToIntE(lo)
			if err != nil {
				return nil, fmt.Errorf("times entry %q: %w", entry, err)
			}
			ov.Min = IntPtr(v)
		}
		if hi = strings.TrimSpace(hi); hi != "" {
			v, err := cast.ToIntE(hi)
			if err != nil {
				return nil, fmt.Errorf("times entry %q: %w", entry, err)
			}
			ov.Max = IntPtr(v)
		}
		times[name] = ov
	}
	return times, nil
}

func applySettings(sc *Scenario, rows [][]string) error {
	for _, row := range rows {
		key := strings.ToLower(strings.ReplaceAll(cell(row, 0), " ", "_"))
		val := cell(row, 1)
		switch key {
		case "name":
			sc.Name = val
		case "description":
			sc.Description = val
		case "policy":
			sc.Policy = Policy(val)
		case "cases":
			n, err := cast.ToIntE(val)
			if err != nil {
				return fmt.Errorf("settings cases: %w", err)
			}
			sc.Cases = n
		case "batch_activity":
			sc.BatchActivity = val
		}
	}
	return nil
}

// WriteWorkbook writes a scenario in the layout LoadWorkbook reads.
func WriteWorkbook(w io.Writer, sc *Scenario) error {
	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName("Sheet1", SheetSettings); err != nil {
		return err
	}
	settings := [][]interface{}{
		{"Key", "Value"},
		{"name", sc.Name},
		{"policy", string(sc.Policy)},
		{"cases", sc.Cases},
		{"batch_activity", sc.BatchActivity},
	}
	if err := setRows(xl, SheetSettings, settings); err != nil {
		return err
	}

	acts := [][]interface{}{{"Name", "Min Time", "Max Time", "Concurrent", "Pool", "Lane", "Resource"}}
	for _, a := range sc.Activities {
		acts = append(acts, []interface{}{a.Name, a.MinTime, a.MaxTime, a.Concurrent, a.Pool, a.Lane, a.Resource})
	}
	if _, err := xl.NewSheet(SheetActivities); err != nil {
		return err
	}
	if err := setRows(xl, SheetActivities, acts); err != nil {
		return err
	}

	vars := [][]interface{}{{"Name", "Route", "Anomaly", "Frequency", "Activities", "Times", "Cycle Time"}}
	for _, v := range sc.Variants {
		vars = append(vars, []interface{}{
			v.Name, v.Route, v.Anomaly, v.Frequency,
			strings.Join(v.Activities, ";"), formatTimes(v.Times), v.CycleTime,
		})
	}
	if _, err := xl.NewSheet(SheetVariants); err != nil {
		return err
	}
	if err := setRows(xl, SheetVariants, vars); err != nil {
		return err
	}

	if len(sc.Routes) > 0 {
		routes := [][]interface{}{{"Route", "Cases"}}
		for _, r := range sc.RouteNumbers() {
			routes = append(routes, []interface{}{r, sc.Routes[r]})
		}
		if _, err := xl.NewSheet(SheetRoutes); err != nil {
			return err
		}
		if err := setRows(xl, SheetRoutes, routes); err != nil {
			return err
		}
	}

	return xl.Write(w)
}

func setRows(xl *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(sheet, ref, &row); err != nil {
			return err
		}
	}
	return nil
}

func formatTimes(times map[string]Override) string {
	if len(times) == 0 {
		return ""
	}
	names := make([]string, 0, len(times))
	for name := range times {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		ov := times[name]
		lo, hi := "", ""
		if ov.Min != nil {
			lo = cast.ToString(*ov.Min)
		}
		if ov.Max != nil {
			hi = cast.ToString(*ov.Max)
		}
		parts = append(parts, fmt.Sprintf("%s=%s-%s", name, lo, hi))
	}
	return strings.Join(parts, ";")
}
