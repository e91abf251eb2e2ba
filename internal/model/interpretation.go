package model

// SystemBoundary is the declared assessment boundary.
type SystemBoundary string

const (
	BoundaryCradleToGate     SystemBoundary = "cradle_to_gate"
	BoundaryCradleToShelf    SystemBoundary = "cradle_to_shelf"
	BoundaryCradleToConsumer SystemBoundary = "cradle_to_consumer"
	BoundaryCradleToGrave    SystemBoundary = "cradle_to_grave"
)

// ExpectedStages returns the lifecycle stages implied by the boundary. Each
// boundary wider than cradle-to-gate adds one stage.
func (b SystemBoundary) ExpectedStages() []LifecycleStage {
	stages := []LifecycleStage{StageRawMaterials, StageProcessing, StagePackaging}
	switch b {
	case BoundaryCradleToShelf:
		stages = append(stages, StageDistribution)
	case BoundaryCradleToConsumer:
		stages = append(stages, StageDistribution, StageUsePhase)
	case BoundaryCradleToGrave:
		stages = append(stages, StageDistribution, StageUsePhase, StageEndOfLife)
	}
	return stages
}

// SensitivityParameter is one externally computed parameter sensitivity.
// Ratio is the relative output change divided by the relative input change.
type SensitivityParameter struct {
	Name       string  `json:"name" yaml:"name"`
	BaseValue  float64 `json:"base_value" yaml:"base_value"`
	Variation  float64 `json:"variation_percent" yaml:"variation_percent"`
	ResultBase float64 `json:"result_base" yaml:"result_base"`
	ResultHigh float64 `json:"result_high" yaml:"result_high"`
	Ratio      float64 `json:"ratio" yaml:"ratio"`
}

// SensitivityAnalysis is the externally supplied sensitivity input.
type SensitivityAnalysis struct {
	Parameters         []SensitivityParameter `json:"parameters" yaml:"parameters"`
	UncertaintyPercent float64                `json:"uncertainty_percent" yaml:"uncertainty_percent"`
}

// Hotspot is an entry contributing a disproportionate share of climate impact.
type Hotspot struct {
	Kind    string  `json:"kind"` // "material"
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// Dominant names the largest stage or scope and its share of the filtered total.
type Dominant struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// CompletenessCheck compares expected lifecycle stages against present ones.
type CompletenessCheck struct {
	Boundary        SystemBoundary   `json:"boundary"`
	ExpectedStages  []LifecycleStage `json:"expected_stages"`
	PresentStages   []LifecycleStage `json:"present_stages"`
	MissingStages   []LifecycleStage `json:"missing_stages"`
	CoveragePercent float64          `json:"coverage_percent"`
}

// SensitivityCheck summarizes the supplied sensitivity analysis.
type SensitivityCheck struct {
	Performed          bool     `json:"performed"`
	ParameterCount     int      `json:"parameter_count"`
	HighlySensitive    []string `json:"highly_sensitive"`
	UncertaintyPercent float64  `json:"uncertainty_percent"`
}

// ConsistencyCheck reconciles breakdowns against the headline total.
type ConsistencyCheck struct {
	Passed             bool          `json:"passed"`
	StageDiscrepancy   float64       `json:"stage_discrepancy"`
	ScopeDiscrepancy   float64       `json:"scope_discrepancy"`
	Issues             []string      `json:"issues"`
	Discrepancies      []Discrepancy `json:"discrepancies,omitempty"`
	CalculationWarning int           `json:"calculation_warnings"`
}

// InterpretationResult is the read-only analysis derived from one aggregation.
type InterpretationResult struct {
	ProductID     string            `json:"product_id"`
	Hotspots      []Hotspot         `json:"hotspots"`
	DominantStage *Dominant         `json:"dominant_stage,omitempty"`
	DominantScope *Dominant         `json:"dominant_scope,omitempty"`
	Completeness  CompletenessCheck `json:"completeness"`
	Sensitivity   SensitivityCheck  `json:"sensitivity"`
	Consistency   ConsistencyCheck  `json:"consistency"`
	Conclusions   []string          `json:"conclusions"`
}
