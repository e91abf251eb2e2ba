package model

// QualityTag labels how trustworthy a resolved value is, by producing tier.
type QualityTag string

const (
	QualityPrimaryVerified    QualityTag = "PrimaryVerified"
	QualityRegionalStandard   QualityTag = "RegionalStandard"
	QualitySecondaryModelled  QualityTag = "SecondaryModelled"
	QualitySecondaryEstimated QualityTag = "SecondaryEstimated"
)

// QualityGrade is the coarse HIGH/MEDIUM/LOW grade attached to a record.
type QualityGrade string

const (
	GradeHigh   QualityGrade = "HIGH"
	GradeMedium QualityGrade = "MEDIUM"
	GradeLow    QualityGrade = "LOW"
)

// ImpactValues holds one value per impact category. Depending on context the
// values are per-kg factors or quantity-scaled totals.
type ImpactValues struct {
	Climate         float64 `json:"climate"`
	ClimateFossil   float64 `json:"climate_fossil"`
	ClimateBiogenic float64 `json:"climate_biogenic"`
	ClimateLUC      float64 `json:"climate_luc"`
	Water           float64 `json:"water"`
	Land            float64 `json:"land"`
	Waste           float64 `json:"waste"`

	OzoneDepletion            float64 `json:"ozone_depletion"`
	PhotochemicalOzone        float64 `json:"photochemical_ozone"`
	Acidification             float64 `json:"acidification"`
	EutrophicationFreshwater  float64 `json:"eutrophication_freshwater"`
	EutrophicationMarine      float64 `json:"eutrophication_marine"`
	EutrophicationTerrestrial float64 `json:"eutrophication_terrestrial"`
	ParticulateMatter         float64 `json:"particulate_matter"`
	IonisingRadiation         float64 `json:"ionising_radiation"`
	HumanToxicityCancer       float64 `json:"human_toxicity_cancer"`
	HumanToxicityNonCancer    float64 `json:"human_toxicity_non_cancer"`
	Ecotoxicity               float64 `json:"ecotoxicity_freshwater"`
	ResourceUseFossil         float64 `json:"resource_use_fossil"`
	ResourceUseMinerals       float64 `json:"resource_use_minerals"`
	WaterScarcity             float64 `json:"water_scarcity"`

	CH4Fossil   float64 `json:"ch4_fossil"`
	CH4Biogenic float64 `json:"ch4_biogenic"`
	N2O         float64 `json:"n2o"`
}

// NamedValue is a single category name and value pair.
type NamedValue struct {
	Name  string
	Value float64
}

// ImpactCategoryNames lists category names in the canonical field order.
var ImpactCategoryNames = []string{
	"climate", "climate_fossil", "climate_biogenic", "climate_luc",
	"water", "land", "waste",
	"ozone_depletion", "photochemical_ozone", "acidification",
	"eutrophication_freshwater", "eutrophication_marine", "eutrophication_terrestrial",
	"particulate_matter", "ionising_radiation",
	"human_toxicity_cancer", "human_toxicity_non_cancer", "ecotoxicity_freshwater",
	"resource_use_fossil", "resource_use_minerals", "water_scarcity",
	"ch4_fossil", "ch4_biogenic", "n2o",
}

// fields returns pointers to every category in ImpactCategoryNames order.
func (v *ImpactValues) fields() []*float64 {
	return []*float64{
		&v.Climate, &v.ClimateFossil, &v.ClimateBiogenic, &v.ClimateLUC,
		&v.Water, &v.Land, &v.Waste,
		&v.OzoneDepletion, &v.PhotochemicalOzone, &v.Acidification,
		&v.EutrophicationFreshwater, &v.EutrophicationMarine, &v.EutrophicationTerrestrial,
		&v.ParticulateMatter, &v.IonisingRadiation,
		&v.HumanToxicityCancer, &v.HumanToxicityNonCancer, &v.Ecotoxicity,
		&v.ResourceUseFossil, &v.ResourceUseMinerals, &v.WaterScarcity,
		&v.CH4Fossil, &v.CH4Biogenic, &v.N2O,
	}
}

// Scale returns a copy with every category multiplied by f.
func (v ImpactValues) Scale(f float64) ImpactValues {
	out := v
	for _, p := range out.fields() {
		*p *= f
	}
	return out
}

// Add returns the category-wise sum of v and o.
func (v ImpactValues) Add(o ImpactValues) ImpactValues {
	out := v
	other := o.fields()
	for i, p := range out.fields() {
		*p += *other[i]
	}
	return out
}

// Named returns every category as an ordered name/value list.
func (v ImpactValues) Named() []NamedValue {
	ptrs := v.fields()
	out := make([]NamedValue, len(ptrs))
	for i, p := range ptrs {
		out[i] = NamedValue{Name: ImpactCategoryNames[i], Value: *p}
	}
	return out
}

// Slice returns the values in ImpactCategoryNames order.
func (v ImpactValues) Slice() []float64 {
	ptrs := v.fields()
	out := make([]float64, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// ImpactValuesFromSlice builds values from a slice in ImpactCategoryNames
// order. Missing trailing entries stay zero.
func ImpactValuesFromSlice(s []float64) ImpactValues {
	var v ImpactValues
	for i, p := range v.fields() {
		if i < len(s) {
			*p = s[i]
		}
	}
	return v
}

// IsZero reports whether every category is zero.
func (v ImpactValues) IsZero() bool {
	for _, p := range v.fields() {
		if *p != 0 {
			return false
		}
	}
	return true
}

// ResolvedImpact is the resolver output for one material. Impact values are
// already scaled by the material's normalized quantity.
type ResolvedImpact struct {
	MaterialID   string         `json:"material_id"`
	MaterialName string         `json:"material_name"`
	Category     CategoryType   `json:"category"`
	Stage        LifecycleStage `json:"stage"`
	QuantityKg   float64        `json:"quantity_kg"`
	Impacts      ImpactValues   `json:"impacts"`

	Priority         int          `json:"data_priority"`
	QualityTag       QualityTag   `json:"quality_tag"`
	Grade            QualityGrade `json:"quality_grade"`
	Confidence       float64      `json:"confidence"`
	Source           string       `json:"source"`
	IsHybrid         bool         `json:"is_hybrid_source"`
	GWPDataSource    string       `json:"gwp_data_source,omitempty"`
	NonGWPDataSource string       `json:"non_gwp_data_source,omitempty"`

	SupplierProductID string `json:"supplier_product_id,omitempty"`
	ProcessID         string `json:"process_id,omitempty"`
}
