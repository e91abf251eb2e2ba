// Package interpret derives hotspots, completeness, sensitivity and
// consistency checks plus templated conclusions from one aggregation.
package interpret

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/impact-engine/internal/aggregate"
	"github.com/sells-group/impact-engine/internal/model"
)

const (
	// HotspotThreshold is the share of total climate, in percent, above which
	// a material is a hotspot.
	HotspotThreshold = 5.0

	// HighSensitivityRatio marks a parameter as highly sensitive.
	HighSensitivityRatio = 1.0
)

// Input is the read-only data one interpretation pass needs.
type Input struct {
	Aggregated  model.AggregatedImpacts
	Boundary    model.SystemBoundary
	Sensitivity *model.SensitivityAnalysis
	Warnings    []model.Warning
}

// Generate runs every interpretation step once. The output depends only on
// the input.
func Generate(in Input) model.InterpretationResult {
	res := model.InterpretationResult{
		ProductID:     in.Aggregated.ProductID,
		Hotspots:      Hotspots(in.Aggregated),
		DominantStage: DominantStage(in.Aggregated),
		DominantScope: DominantScope(in.Aggregated),
		Completeness:  Completeness(in.Aggregated, in.Boundary),
		Sensitivity:   Sensitivity(in.Sensitivity),
		Consistency:   Consistency(in.Aggregated, len(in.Warnings)),
	}
	res.Conclusions = conclusions(res)
	return res
}

// Hotspots returns materials whose climate contribution exceeds the
// threshold, largest first.
func Hotspots(agg model.AggregatedImpacts) []model.Hotspot {
	total := agg.Total.Climate
	if total <= 0 {
		return []model.Hotspot{}
	}

	out := []model.Hotspot{}
	for name, b := range agg.ByMaterial {
		v := b.Impacts.Climate + b.Transport
		pct := v * 100 / total
		if pct > HotspotThreshold {
			out = append(out, model.Hotspot{Kind: "material", Name: name, Value: v, Percent: pct})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DominantStage returns the stage with the largest magnitude among non-zero
// stages, or nil when every stage is zero.
func DominantStage(agg model.AggregatedImpacts) *model.Dominant {
	var names []string
	var values []float64
	for _, s := range model.AllStages() {
		if v := agg.ByStage[s]; v != 0 {
			names = append(names, string(s))
			values = append(values, v)
		}
	}
	return dominant(names, values)
}

// DominantScope returns the scope with the largest magnitude among non-zero
// scopes, or nil when no scope carries a value.
func DominantScope(agg model.AggregatedImpacts) *model.Dominant {
	var names []string
	var values []float64
	for _, s := range model.AllScopes() {
		if v := agg.ByScope[s]; v != 0 {
			names = append(names, fmt.Sprintf("scope_%d", s))
			values = append(values, v)
		}
	}
	return dominant(names, values)
}

func dominant(names []string, values []float64) *model.Dominant {
	if len(values) == 0 {
		return nil
	}
	best, sum := 0, 0.0
	for i, v := range values {
		sum += v
		if math.Abs(v) > math.Abs(values[best]) {
			best = i
		}
	}
	d := &model.Dominant{Name: names[best], Value: values[best]}
	if sum != 0 {
		d.Percent = values[best] * 100 / sum
	}
	return d
}

// Completeness compares the stages the boundary implies against the stages
// that carry a non-zero value. An empty boundary means cradle-to-gate.
func Completeness(agg model.AggregatedImpacts, boundary model.SystemBoundary) model.CompletenessCheck {
	if boundary == "" {
		boundary = model.BoundaryCradleToGate
	}
	expected := boundary.ExpectedStages()
	check := model.CompletenessCheck{
		Boundary:       boundary,
		ExpectedStages: expected,
		PresentStages:  []model.LifecycleStage{},
		MissingStages:  []model.LifecycleStage{},
	}
	for _, s := range model.AllStages() {
		if agg.ByStage[s] != 0 {
			check.PresentStages = append(check.PresentStages, s)
		}
	}

	covered := 0
	for _, s := range expected {
		if agg.ByStage[s] != 0 {
			covered++
		} else {
			check.MissingStages = append(check.MissingStages, s)
		}
	}
	if len(expected) > 0 {
		check.CoveragePercent = float64(covered) * 100 / float64(len(expected))
	}
	return check
}

// Sensitivity summarizes an externally computed analysis. A nil analysis
// yields a check with Performed false.
func Sensitivity(sa *model.SensitivityAnalysis) model.SensitivityCheck {
	check := model.SensitivityCheck{HighlySensitive: []string{}}
	if sa == nil {
		return check
	}
	check.Performed = true
	check.ParameterCount = len(sa.Parameters)
	check.UncertaintyPercent = sa.UncertaintyPercent
	for _, p := range sa.Parameters {
		if math.Abs(p.Ratio) >= HighSensitivityRatio {
			check.HighlySensitive = append(check.HighlySensitive, p.Name)
		}
	}
	return check
}

// Consistency reconciles the breakdowns against the headline total.
// Discrepancies are reported, never corrected.
func Consistency(agg model.AggregatedImpacts, warnings int) model.ConsistencyCheck {
	total := agg.Total.Climate
	check := model.ConsistencyCheck{
		StageDiscrepancy:   math.Abs(total - aggregate.StageSum(agg)),
		Issues:             []string{},
		CalculationWarning: warnings,
	}
	if sum, ok := aggregate.ScopeSum(agg); ok {
		check.ScopeDiscrepancy = math.Abs(total - sum)
	}

	check.Discrepancies = aggregate.Reconcile(agg)
	for _, d := range check.Discrepancies {
		check.Issues = append(check.Issues, fmt.Sprintf(
			"%s breakdown sums to %.4f but total is %.4f (difference %.4f)",
			d.Breakdown, d.Sum, d.Total, d.Difference))
	}
	check.Passed = len(check.Discrepancies) == 0
	return check
}

func conclusions(r model.InterpretationResult) []string {
	var out []string

	if len(r.Hotspots) > 0 {
		h := r.Hotspots[0]
		out = append(out, fmt.Sprintf("The largest hotspot is %s at %.1f%% of climate impact.", h.Name, h.Percent))
	} else {
		out = append(out, fmt.Sprintf("No single material exceeds %.0f%% of climate impact.", HotspotThreshold))
	}

	if d := r.DominantStage; d != nil {
		out = append(out, fmt.Sprintf("The %s stage dominates with %.1f%% of impact.", humanize(d.Name), d.Percent))
	}
	if d := r.DominantScope; d != nil {
		out = append(out, fmt.Sprintf("%s is the dominant scope with %.1f%% of emissions.", humanize(d.Name), d.Percent))
	}

	if s := r.Sensitivity; s.Performed {
		line := fmt.Sprintf("Estimated uncertainty is +/-%.1f%% across %d parameters.", s.UncertaintyPercent, s.ParameterCount)
		if len(s.HighlySensitive) > 0 {
			line += fmt.Sprintf(" Highly sensitive: %s.", strings.Join(s.HighlySensitive, ", "))
		}
		out = append(out, line)
	} else {
		out = append(out, "No sensitivity analysis was supplied.")
	}

	c := r.Completeness
	if len(c.MissingStages) == 0 {
		out = append(out, fmt.Sprintf("All stages expected for %s are covered.", c.Boundary))
	} else {
		missing := make([]string, len(c.MissingStages))
		for i, s := range c.MissingStages {
			missing[i] = humanize(string(s))
		}
		out = append(out, fmt.Sprintf("Coverage is %.1f%% for %s; missing stages: %s.",
			c.CoveragePercent, c.Boundary, strings.Join(missing, ", ")))
	}

	if r.Consistency.Passed {
		out = append(out, "Stage and scope breakdowns reconcile with the total.")
	} else {
		out = append(out, fmt.Sprintf("%d consistency issue(s) were found.", len(r.Consistency.Issues)))
	}

	if n := r.Consistency.CalculationWarning; n > 0 {
		out = append(out, fmt.Sprintf("%d calculation warnings were raised.", n))
	}
	return out
}

func humanize(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "scope_", "Scope "), "_", " ")
}
