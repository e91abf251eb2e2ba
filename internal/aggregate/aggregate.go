// Package aggregate reduces resolved material impacts, facility allocations
// and end-of-life results into product totals. It performs no I/O.
package aggregate

import (
	"fmt"
	"math"

	"github.com/sells-group/impact-engine/internal/model"
)

// Reconciliation thresholds.
const (
	StageTolerance = 0.001 // absolute, kg CO2e
	ScopeTolerance = 0.05  // relative to the headline total
)

// Input is everything one product aggregation reads.
type Input struct {
	ProductID string

	// Materials supplies transport legs by material ID.
	Materials []model.Material
	Impacts   []model.ResolvedImpact

	// Allocations are this run's facility results. When empty,
	// PriorAllocations from the last completed run are used instead.
	Allocations      []model.AllocationResult
	PriorAllocations []model.AllocationResult

	EndOfLife model.EoLResult
}

// Aggregate sums every input into an AggregatedImpacts record. Each material
// contributes once; repeated material IDs are skipped with a warning.
func Aggregate(in Input) (model.AggregatedImpacts, []model.Warning) {
	agg := model.NewAggregatedImpacts(in.ProductID)
	var warns []model.Warning

	materials := make(map[string]model.Material, len(in.Materials))
	for _, m := range in.Materials {
		materials[m.ID] = m
	}

	seen := make(map[string]bool, len(in.Impacts))
	var confidence float64
	for _, ri := range in.Impacts {
		if seen[ri.MaterialID] {
			warns = append(warns, model.Warning{
				Code:    model.WarnDuplicateMaterial,
				Subject: ri.MaterialName,
				Message: fmt.Sprintf("material %s counted once", ri.MaterialID),
			})
			continue
		}
		seen[ri.MaterialID] = true

		agg.Total = agg.Total.Add(ri.Impacts)
		agg.ByStage[ri.Stage] += ri.Impacts.Climate
		agg.ByScope[model.Scope3] += ri.Impacts.Climate

		var transport float64
		if m, ok := materials[ri.MaterialID]; ok {
			var w *model.Warning
			transport, w = TransportEmissions(m)
			if w != nil {
				warns = append(warns, *w)
			}
		}
		if transport != 0 {
			agg.Transport += transport
			agg.Total.Climate += transport
			agg.Total.ClimateFossil += transport
			agg.ByStage[model.StageDistribution] += transport
			agg.ByScope[model.Scope3] += transport
		}

		b := agg.ByMaterial[ri.MaterialName]
		b.Name = ri.MaterialName
		b.Stage = ri.Stage
		b.Impacts = b.Impacts.Add(ri.Impacts)
		b.Transport += transport
		b.QualityTag = ri.QualityTag
		b.Confidence = ri.Confidence
		agg.ByMaterial[ri.MaterialName] = b

		confidence += ri.Confidence
		agg.MaterialCount++
	}
	if agg.MaterialCount > 0 {
		agg.AverageConfidence = confidence / float64(agg.MaterialCount)
	}

	allocs := in.Allocations
	if len(allocs) == 0 && len(in.PriorAllocations) > 0 {
		allocs = in.PriorAllocations
		agg.AllocationsCarriedForward = true
		warns = append(warns, model.Warning{
			Code:    model.WarnAllocationsCarried,
			Subject: in.ProductID,
			Message: fmt.Sprintf("no facility allocations supplied, carried forward %d from prior run", len(allocs)),
		})
	}
	for _, a := range allocs {
		if a.Skipped {
			continue
		}
		addAllocation(&agg, a)
	}
	agg.Allocations = allocs

	if eol := in.EndOfLife; eol != (model.EoLResult{}) {
		agg.EndOfLife = eol
		agg.Total.Climate += eol.Net
		agg.ByStage[model.StageEndOfLife] += eol.Net
		agg.ByScope[model.Scope3] += eol.Net
	}

	agg.Discrepancies = Reconcile(agg)
	for _, d := range agg.Discrepancies {
		warns = append(warns, model.Warning{
			Code:    model.WarnReconciliation,
			Subject: d.Breakdown,
			Message: fmt.Sprintf("%s sum %.6f differs from total %.6f by %.6f", d.Breakdown, d.Sum, d.Total, d.Difference),
		})
	}
	return agg, warns
}

func addAllocation(agg *model.AggregatedImpacts, a model.AllocationResult) {
	emissions := a.Emissions()
	agg.Total.Climate += emissions
	agg.Total.ClimateFossil += emissions
	agg.Total.Water += a.Water
	agg.Total.Waste += a.Waste
	agg.ByStage[model.StageProcessing] += emissions

	switch a.Bucket {
	case model.BucketContractAllocation:
		agg.ByScope[model.Scope3] += a.Scope3
	default:
		agg.ByScope[model.Scope1] += a.Scope1
		agg.ByScope[model.Scope2] += a.Scope2
	}
}

// StageSum returns the sum of every lifecycle stage value.
func StageSum(agg model.AggregatedImpacts) float64 {
	sum := 0.0
	for _, s := range model.AllStages() {
		sum += agg.ByStage[s]
	}
	return sum
}

// ScopeSum returns the sum of scope values and whether any scope is non-zero.
func ScopeSum(agg model.AggregatedImpacts) (float64, bool) {
	sum, has := 0.0, false
	for _, s := range model.AllScopes() {
		if v := agg.ByScope[s]; v != 0 {
			sum += v
			has = true
		}
	}
	return sum, has
}

// Reconcile compares the stage and scope breakdowns against the headline
// climate total. The scope check is skipped when no scope carries a value.
func Reconcile(agg model.AggregatedImpacts) []model.Discrepancy {
	var out []model.Discrepancy
	total := agg.Total.Climate

	stageSum := StageSum(agg)
	if diff := math.Abs(total - stageSum); diff > StageTolerance {
		out = append(out, model.Discrepancy{
			Breakdown:  "stage",
			Total:      total,
			Sum:        stageSum,
			Difference: diff,
			Relative:   relative(diff, total),
		})
	}

	scopeSum, ok := ScopeSum(agg)
	if !ok {
		return out
	}
	diff := math.Abs(total - scopeSum)
	if rel := relative(diff, total); rel > ScopeTolerance {
		out = append(out, model.Discrepancy{
			Breakdown:  "scope",
			Total:      total,
			Sum:        scopeSum,
			Difference: diff,
			Relative:   rel,
		})
	}
	return out
}

func relative(diff, total float64) float64 {
	if total == 0 {
		if diff == 0 {
			return 0
		}
		return 1
	}
	return diff / math.Abs(total)
}
