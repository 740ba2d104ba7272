package catalog

import (
	"fmt"
	"math"
)

// WarningKind classifies a data-quality finding.
type WarningKind string

const (
	WarnFrequencySum        WarningKind = "frequency_sum"
	WarnDuplicateActivity   WarningKind = "duplicate_activity"
	WarnInvertedBounds      WarningKind = "inverted_bounds"
	WarnDuplicateRoute      WarningKind = "duplicate_route_variant"
	WarnMultipleAnomalies   WarningKind = "multiple_anomaly_variants"
	WarnMissingBatchPoint   WarningKind = "missing_batch_activity"
	WarnFractionalFrequency WarningKind = "fractional_frequency"
)

// Warning is a non-fatal data-quality finding. Generation proceeds regardless.
type Warning struct {
	Kind    WarningKind
	Subject string
	Message string
}

func (w Warning) String() string {
	if w.Subject == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Subject, w.Message)
}

// Check inspects a scenario for data-quality problems.
func Check(s *Scenario) []Warning {
	var warnings []Warning

	seen := make(map[string]bool, len(s.Activities))
	reported := make(map[string]bool)
	for _, a := range s.Activities {
		if seen[a.Name] && !reported[a.Name] {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateActivity,
				Subject: a.Name,
				Message: "activity names must be unique; the first definition is used",
			})
			reported[a.Name] = true
		}
		seen[a.Name] = true

		if b := a.withDefaults().Bounds(); b.Inverted() {
			warnings = append(warnings, Warning{
				Kind:    WarnInvertedBounds,
				Subject: a.Name,
				Message: fmt.Sprintf("min_time %d > max_time %d; bounds are swapped", b.Min, b.Max),
			})
		}
	}

	cat := s.Catalog()
	for i := range s.Variants {
		v := &s.Variants[i]
		for name := range v.Times {
			b := v.Bounds(cat.Resolve(name))
			if b.Inverted() {
				warnings = append(warnings, Warning{
					Kind:    WarnInvertedBounds,
					Subject: fmt.Sprintf("%s / %s", v.Name, name),
					Message: fmt.Sprintf("min %d > max %d; bounds are swapped", b.Min, b.Max),
				})
			}
		}
	}

	switch s.Policy {
	case PolicyProportional, "":
		warnings = append(warnings, checkFrequencies(s)...)
	case PolicyRoutes:
		warnings = append(warnings, checkRoutes(s)...)
	}

	if s.BatchActivity != "" {
		used := false
		for i := range s.Variants {
			if s.Variants[i].Index(s.BatchActivity) >= 0 {
				used = true
				break
			}
		}
		if !used {
			warnings = append(warnings, Warning{
				Kind:    WarnMissingBatchPoint,
				Subject: s.BatchActivity,
				Message: "batch activity does not occur in any variant; batching is inactive",
			})
		}
	}

	return warnings
}

func checkFrequencies(s *Scenario) []Warning {
	var warnings []Warning
	total := 0.0
	for _, v := range s.Variants {
		total += v.Frequency
		if v.Frequency != math.Trunc(v.Frequency) {
			warnings = append(warnings, Warning{
				Kind:    WarnFractionalFrequency,
				Subject: v.Name,
				Message: fmt.Sprintf("frequency %g is truncated to %d pool entries", v.Frequency, int(v.Frequency)),
			})
		}
	}
	if math.Abs(total-100) > 1e-9 {
		warnings = append(warnings, Warning{
			Kind:    WarnFrequencySum,
			Message: fmt.Sprintf("total frequency is %g%%; it should sum to 100%% for a balanced case distribution", total),
		})
	}
	return warnings
}

func checkRoutes(s *Scenario) []Warning {
	var warnings []Warning
	for _, route := range s.RouteNumbers() {
		regular, anomalies := 0, 0
		for _, v := range s.Variants {
			if v.Route != route {
				continue
			}
			if v.Anomaly {
				anomalies++
			} else {
				regular++
			}
		}
		subject := fmt.Sprintf("Route %d", route)
		if regular > 1 {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicateRoute,
				Subject: subject,
				Message: fmt.Sprintf("%d variants match; only the first is used", regular),
			})
		}
		if anomalies > 1 {
			warnings = append(warnings, Warning{
				Kind:    WarnMultipleAnomalies,
				Subject: subject,
				Message: fmt.Sprintf("%d anomaly variants match; only the first is used", anomalies),
			})
		}
	}
	return warnings
}
