package model

// Discrepancy records a breakdown that failed to reconcile with the total.
type Discrepancy struct {
	Breakdown  string  `json:"breakdown"` // "stage" or "scope"
	Total      float64 `json:"total"`
	Sum        float64 `json:"sum"`
	Difference float64 `json:"difference"`
	Relative   float64 `json:"relative"`
}

// MaterialBreakdown is one material's contribution to the product totals.
type MaterialBreakdown struct {
	Name       string         `json:"name"`
	Stage      LifecycleStage `json:"stage"`
	Impacts    ImpactValues   `json:"impacts"`
	Transport  float64        `json:"transport"`
	QualityTag QualityTag     `json:"quality_tag"`
	Confidence float64        `json:"confidence"`
}

// AggregatedImpacts is the per-product reduction of every resolved material,
// facility allocation and end-of-life result. Stage and scope breakdowns are
// climate values in kg CO2e.
type AggregatedImpacts struct {
	ProductID  string                       `json:"product_id"`
	Total      ImpactValues                 `json:"total"`
	ByStage    map[LifecycleStage]float64   `json:"by_stage"`
	ByScope    map[Scope]float64            `json:"by_scope"`
	ByMaterial map[string]MaterialBreakdown `json:"by_material"`

	Transport   float64            `json:"transport"`
	EndOfLife   EoLResult          `json:"end_of_life"`
	Allocations []AllocationResult `json:"allocations,omitempty"`

	AllocationsCarriedForward bool          `json:"allocations_carried_forward,omitempty"`
	Discrepancies             []Discrepancy `json:"discrepancies,omitempty"`
	MaterialCount             int           `json:"material_count"`
	AverageConfidence         float64       `json:"average_confidence"`
}

// NewAggregatedImpacts returns an empty aggregate with initialized maps.
func NewAggregatedImpacts(productID string) AggregatedImpacts {
	return AggregatedImpacts{
		ProductID:  productID,
		ByStage:    make(map[LifecycleStage]float64),
		ByScope:    make(map[Scope]float64),
		ByMaterial: make(map[string]MaterialBreakdown),
	}
}
