// Package tui renders run reports and progress for the loggen CLI.
// Plain streaming output, no full-screen interface.
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/logflow/loggen/pkg/catalog"
	"github.com/logflow/loggen/pkg/generator"
	"github.com/logflow/loggen/pkg/inspect"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// PrintHeader prints the program banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  LOGGEN")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Synthetic process event log generator"))
	fmt.Fprintln(w)
}

// Output describes one written destination.
type Output struct {
	Path   string
	Format string
	Size   int64
}

// RunReport is printed after a generate run.
type RunReport struct {
	Scenario string
	Result   *generator.Result
	Outputs  []Output
	Duration time.Duration
}

// RenderRunReport renders a finished run.
func RenderRunReport(r *RunReport) string {
	var b strings.Builder
	res := r.Result

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, successStyle.Render("  ✓ LOG GENERATED"))
	fmt.Fprintln(&b)
	field(&b, "Scenario:", titleStyle.Render(r.Scenario))
	field(&b, "Run:", mutedStyle.Render(res.RunID))
	field(&b, "Seed:", mutedStyle.Render(fmt.Sprintf("%d", res.Seed)))
	field(&b, "Cases:", titleStyle.Render(formatNumber(int64(len(res.Cases))))+
		mutedStyle.Render(fmt.Sprintf(" (pool %d)", res.PoolSize)))
	field(&b, "Events:", titleStyle.Render(formatNumber(int64(res.Log.Len()))))
	if len(res.Batches) > 0 {
		field(&b, "Batches:", titleStyle.Render(fmt.Sprintf("%d", len(res.Batches)))+
			mutedStyle.Render(fmt.Sprintf(" (%d cases)", batchedCases(res.Batches))))
	}
	if first, last, ok := span(res); ok {
		field(&b, "Span:", fmt.Sprintf("%s → %s",
			first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04")))
	}
	if r.Duration > 0 {
		field(&b, "Time:", titleStyle.Render(formatDuration(r.Duration)))
	}

	if len(r.Outputs) > 0 {
		fmt.Fprintln(&b)
		for _, o := range r.Outputs {
			size := ""
			if o.Size > 0 {
				size = mutedStyle.Render(" " + formatBytes(o.Size))
			}
			fmt.Fprintf(&b, "  %s %s%s\n", accentStyle.Render("▸"), codeStyle.Render(o.Path), size)
		}
	}

	renderWarnings(&b, res.Warnings, res.Fallbacks)
	return b.String()
}

// PrintRunReport writes RenderRunReport to w.
func PrintRunReport(w io.Writer, r *RunReport) {
	fmt.Fprint(w, RenderRunReport(r))
	fmt.Fprintln(w)
}

func renderWarnings(b *strings.Builder, warnings []catalog.Warning, fallbacks []string) {
	if len(warnings) == 0 && len(fallbacks) == 0 {
		return
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b, warnStyle.Render(fmt.Sprintf("  ! %d WARNINGS", len(warnings)+len(fallbacks))))
	for _, w := range warnings {
		fmt.Fprintf(b, "    %s %s\n", mutedStyle.Render(string(w.Kind)), w.Message)
	}
	for _, name := range fallbacks {
		fmt.Fprintf(b, "    %s %q uses default attributes\n", mutedStyle.Render("unknown_activity"), name)
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%-9s", label)), value)
}

func batchedCases(batches []generator.BatchSummary) int {
	n := 0
	for _, bs := range batches {
		n += len(bs.Cases)
	}
	return n
}

func span(res *generator.Result) (time.Time, time.Time, bool) {
	if res.Log == nil || res.Log.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	ev := res.Log.Events
	return ev[0].Timestamp, ev[len(ev)-1].Timestamp, true
}

// RenderScenario renders a catalog overview with route shares.
func RenderScenario(sc *catalog.Scenario, warnings []catalog.Warning) string {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, accentStyle.Render("▸ "+strings.ToUpper(sc.Name)))
	if sc.Description != "" {
		fmt.Fprintln(&b, mutedStyle.Render("  "+sc.Description))
	}
	fmt.Fprintln(&b, mutedStyle.Render(rule))
	field(&b, "Policy:", titleStyle.Render(string(sc.Policy)))
	field(&b, "Catalog:", fmt.Sprintf("%d activities, %d variants", len(sc.Activities), len(sc.Variants)))
	if sc.BatchActivity != "" {
		field(&b, "Batch:", sc.BatchActivity)
	}

	if shares := catalog.RouteShares(sc.Routes); len(shares) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%-10s %6s %8s", "ROUTE", "CASES", "SHARE")))
		for _, s := range shares {
			fmt.Fprintf(&b, "  %-10s %6d %7.2f%%\n", fmt.Sprintf("Route %d", s.Route), s.Cases, s.Percent)
		}
		field(&b, "Total:", fmt.Sprintf("%d cases", sc.TotalRouteCases()))
	} else {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%-36s %6s", "VARIANT", "FREQ")))
		for _, v := range sc.Variants {
			fmt.Fprintf(&b, "  %-36s %6.0f\n", truncate(v.Name, 36), v.Frequency)
		}
	}
	fmt.Fprintln(&b, mutedStyle.Render(rule))

	renderWarnings(&b, warnings, nil)
	return b.String()
}

// RenderScenarioList renders one line per scenario.
func RenderScenarioList(scenarios []*catalog.Scenario) string {
	var b strings.Builder
	fmt.Fprintln(&b)
	for _, sc := range scenarios {
		fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render(fmt.Sprintf("%-14s", sc.Name)),
			mutedStyle.Render(fmt.Sprintf("%s, %d activities, %d variants", sc.Policy, len(sc.Activities), len(sc.Variants))))
	}
	return b.String()
}

// RenderSummary renders an inspected export.
func RenderSummary(s *inspect.Summary) string {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, accentStyle.Render("▸ "+s.Path))
	fmt.Fprintln(&b, mutedStyle.Render(rule))
	field(&b, "Format:", titleStyle.Render(strings.ToUpper(string(s.Format))))
	field(&b, "Events:", titleStyle.Render(formatNumber(s.Events)))
	field(&b, "Cases:", titleStyle.Render(formatNumber(s.Cases))+
		mutedStyle.Render(fmt.Sprintf(" (%.1f events/case)", s.AvgEventsPerCase)))
	if s.Activities > 0 {
		field(&b, "Labels:", fmt.Sprintf("%d activities", s.Activities))
	}
	if !s.First.IsZero() {
		field(&b, "Span:", fmt.Sprintf("%s → %s (%s)",
			s.First.Format("2006-01-02 15:04"), s.Last.Format("2006-01-02 15:04"), formatDuration(s.Span())))
	}
	if s.AnomalyCases > 0 {
		field(&b, "Anomaly:", warnStyle.Render(fmt.Sprintf("%d cases", s.AnomalyCases)))
	}

	if len(s.Routes) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%-10s %6s %8s", "ROUTE", "CASES", "EVENTS")))
		for _, r := range s.Routes {
			fmt.Fprintf(&b, "  %-10s %6d %8d\n", r.Route, r.Cases, r.Events)
		}
	}

	if len(s.TopActivities) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(fmt.Sprintf("%-44s %6s", "ACTIVITY", "COUNT")))
		acts := append([]inspect.ActivityCount(nil), s.TopActivities...)
		sort.SliceStable(acts, func(i, j int) bool { return acts[i].Count > acts[j].Count })
		for _, a := range acts {
			fmt.Fprintf(&b, "  %-44s %6d\n", truncate(a.Activity, 44), a.Count)
		}
	}
	fmt.Fprintln(&b, mutedStyle.Render(rule))
	return b.String()
}

// PrintError prints a failed step.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, accentStyle.Render("  ✗ "+err.Error()))
}

// PrintInfo prints a muted status line.
func PrintInfo(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, mutedStyle.Render("  "+fmt.Sprintf(format, args...)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
