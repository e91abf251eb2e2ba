package waterfall

import (
	"time"

	"github.com/sells-group/impact-engine/internal/model"
)

// FactorSet holds optional per-unit impact factors from one source row. A nil
// field means the source did not supply that category.
type FactorSet struct {
	Climate         *float64 `json:"climate,omitempty"`
	ClimateFossil   *float64 `json:"climate_fossil,omitempty"`
	ClimateBiogenic *float64 `json:"climate_biogenic,omitempty"`
	ClimateLUC      *float64 `json:"climate_luc,omitempty"`
	Water           *float64 `json:"water,omitempty"`
	Land            *float64 `json:"land,omitempty"`
	Waste           *float64 `json:"waste,omitempty"`

	OzoneDepletion            *float64 `json:"ozone_depletion,omitempty"`
	PhotochemicalOzone        *float64 `json:"photochemical_ozone,omitempty"`
	Acidification             *float64 `json:"acidification,omitempty"`
	EutrophicationFreshwater  *float64 `json:"eutrophication_freshwater,omitempty"`
	EutrophicationMarine      *float64 `json:"eutrophication_marine,omitempty"`
	EutrophicationTerrestrial *float64 `json:"eutrophication_terrestrial,omitempty"`
	ParticulateMatter         *float64 `json:"particulate_matter,omitempty"`
	IonisingRadiation         *float64 `json:"ionising_radiation,omitempty"`
	HumanToxicityCancer       *float64 `json:"human_toxicity_cancer,omitempty"`
	HumanToxicityNonCancer    *float64 `json:"human_toxicity_non_cancer,omitempty"`
	Ecotoxicity               *float64 `json:"ecotoxicity_freshwater,omitempty"`
	ResourceUseFossil         *float64 `json:"resource_use_fossil,omitempty"`
	ResourceUseMinerals       *float64 `json:"resource_use_minerals,omitempty"`
	WaterScarcity             *float64 `json:"water_scarcity,omitempty"`

	CH4Fossil   *float64 `json:"ch4_fossil,omitempty"`
	CH4Biogenic *float64 `json:"ch4_biogenic,omitempty"`
	N2O         *float64 `json:"n2o,omitempty"`
}

// slots returns pointers to every field in model.ImpactCategoryNames order.
func (f *FactorSet) slots() []**float64 {
	return []**float64{
		&f.Climate, &f.ClimateFossil, &f.ClimateBiogenic, &f.ClimateLUC,
		&f.Water, &f.Land, &f.Waste,
		&f.OzoneDepletion, &f.PhotochemicalOzone, &f.Acidification,
		&f.EutrophicationFreshwater, &f.EutrophicationMarine, &f.EutrophicationTerrestrial,
		&f.ParticulateMatter, &f.IonisingRadiation,
		&f.HumanToxicityCancer, &f.HumanToxicityNonCancer, &f.Ecotoxicity,
		&f.ResourceUseFossil, &f.ResourceUseMinerals, &f.WaterScarcity,
		&f.CH4Fossil, &f.CH4Biogenic, &f.N2O,
	}
}

// HasAny reports whether at least one category is present.
func (f FactorSet) HasAny() bool {
	for _, p := range f.slots() {
		if *p != nil {
			return true
		}
	}
	return false
}

// HasSplit reports whether both the fossil and biogenic climate components
// are present.
func (f FactorSet) HasSplit() bool {
	return f.ClimateFossil != nil && f.ClimateBiogenic != nil
}

// Count returns the number of present categories.
func (f FactorSet) Count() int {
	n := 0
	for _, p := range f.slots() {
		if *p != nil {
			n++
		}
	}
	return n
}

// Values returns the factors as dense impact values, treating absent
// categories as zero.
func (f FactorSet) Values() model.ImpactValues {
	dense := make([]float64, len(model.ImpactCategoryNames))
	for i, p := range f.slots() {
		if *p != nil {
			dense[i] = **p
		}
	}
	return model.ImpactValuesFromSlice(dense)
}

// Set assigns the category with the given canonical name. It reports false for
// unknown names.
func (f *FactorSet) Set(name string, value float64) bool {
	for i, n := range model.ImpactCategoryNames {
		if n == name {
			v := value
			*f.slots()[i] = &v
			return true
		}
	}
	return false
}

// Get returns the category with the given canonical name.
func (f FactorSet) Get(name string) (float64, bool) {
	for i, n := range model.ImpactCategoryNames {
		if n == name {
			p := *f.slots()[i]
			if p == nil {
				return 0, false
			}
			return *p, true
		}
	}
	return 0, false
}

// Map returns present categories keyed by canonical name.
func (f FactorSet) Map() map[string]float64 {
	out := make(map[string]float64)
	for i, p := range f.slots() {
		if *p != nil {
			out[model.ImpactCategoryNames[i]] = **p
		}
	}
	return out
}

// FactorSetFromMap builds a FactorSet from canonical category names. Unknown
// names are ignored.
func FactorSetFromMap(m map[string]float64) FactorSet {
	var f FactorSet
	for name, v := range m {
		f.Set(name, v)
	}
	return f
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// SupplierRecord is a product row from a supplier catalogue or a completed
// supplier footprint.
type SupplierRecord struct {
	ProductID          string    `json:"product_id"`
	Name               string    `json:"name"`
	Source             string    `json:"source"`
	DataQuality        int       `json:"data_quality,omitempty"` // 1-5
	ConfidenceOverride *float64  `json:"confidence_override,omitempty"`
	Factors            FactorSet `json:"factors"`
}

// RegionalMapping links a material name to a climate-only regional emission
// factor and, optionally, a process-database proxy for the other categories.
type RegionalMapping struct {
	MaterialName string  `json:"material_name"`
	FactorName   string  `json:"factor_name"`
	Source       string  `json:"source"`
	Climate      float64 `json:"climate"`
	ProxyID      string  `json:"proxy_id,omitempty"`
}

// ProcessProxy is a process-database record used for non-climate categories of
// a hybrid result.
type ProcessProxy struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Factors FactorSet `json:"factors"`
}

// LiveResult is a per-unit result from the live calculation service.
type LiveResult struct {
	OrgID        string    `json:"org_id"`
	ProcessID    string    `json:"process_id"`
	Method       string    `json:"method"`
	Factors      FactorSet `json:"factors"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// StagingFactor is a row of the internal name-matched factor table.
type StagingFactor struct {
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Factors FactorSet `json:"factors"`
}

// ProxyFactor is a row of the broader proxy dataset.
type ProxyFactor struct {
	Name    string    `json:"name"`
	Source  string    `json:"source"`
	Factors FactorSet `json:"factors"`
}
