package model

// CategoryType selects which resolution path applies to a material.
type CategoryType string

const (
	CategoryEnergy                CategoryType = "energy"
	CategoryTransport             CategoryType = "transport"
	CategoryCommuting             CategoryType = "commuting"
	CategoryWaste                 CategoryType = "waste"
	CategoryManufacturingMaterial CategoryType = "manufacturing_material"
)

// IsActivity reports whether the category is an activity (energy, transport,
// commuting) rather than a physical input.
func (c CategoryType) IsActivity() bool {
	switch c {
	case CategoryEnergy, CategoryTransport, CategoryCommuting:
		return true
	default:
		return false
	}
}

// MaterialKind distinguishes product ingredients from packaging units.
type MaterialKind string

const (
	MaterialKindIngredient MaterialKind = "ingredient"
	MaterialKindPackaging  MaterialKind = "packaging"
)

// LifecycleStage is a stage of the product lifecycle used for breakdowns.
type LifecycleStage string

const (
	StageRawMaterials LifecycleStage = "raw_materials"
	StageProcessing   LifecycleStage = "processing"
	StagePackaging    LifecycleStage = "packaging"
	StageDistribution LifecycleStage = "distribution"
	StageUsePhase     LifecycleStage = "use_phase"
	StageEndOfLife    LifecycleStage = "end_of_life"
)

// AllStages returns every lifecycle stage in lifecycle order.
func AllStages() []LifecycleStage {
	return []LifecycleStage{
		StageRawMaterials,
		StageProcessing,
		StagePackaging,
		StageDistribution,
		StageUsePhase,
		StageEndOfLife,
	}
}

// TransportMode is the freight mode of an inbound transport leg.
type TransportMode string

const (
	TransportRoad TransportMode = "road"
	TransportRail TransportMode = "rail"
	TransportSea  TransportMode = "sea"
	TransportAir  TransportMode = "air"
)

// TransportLeg describes how far and by which mode a material travels.
type TransportLeg struct {
	Mode       TransportMode `json:"mode" yaml:"mode"`
	DistanceKm float64       `json:"distance_km" yaml:"distance_km"`
}

// Material is one input of a product. It is treated as immutable once it is
// handed to the resolver.
type Material struct {
	ID                string         `json:"id" yaml:"id"`
	ProductID         string         `json:"product_id" yaml:"product_id"`
	Name              string         `json:"name" yaml:"name"`
	Kind              MaterialKind   `json:"kind" yaml:"kind"`
	Category          CategoryType   `json:"category,omitempty" yaml:"category,omitempty"` // explicit, optional
	Quantity          float64        `json:"quantity" yaml:"quantity"`
	Unit              string         `json:"unit" yaml:"unit"`
	Origin            string         `json:"origin,omitempty" yaml:"origin,omitempty"`
	Stage             LifecycleStage `json:"stage,omitempty" yaml:"stage,omitempty"`
	SupplierProductID string         `json:"supplier_product_id,omitempty" yaml:"supplier_product_id,omitempty"`
	ProcessID         string         `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	Transport         *TransportLeg  `json:"transport,omitempty" yaml:"transport,omitempty"`
	EoLCategory       string         `json:"eol_category,omitempty" yaml:"eol_category,omitempty"`
}

// QuantityKg returns the quantity normalized to the canonical mass unit.
func (m Material) QuantityKg() float64 {
	return NormalizeQuantity(m.Quantity, m.Unit)
}

// LifecycleStage returns the declared stage, defaulting packaging units to the
// packaging stage and everything else to raw materials.
func (m Material) LifecycleStage() LifecycleStage {
	if m.Stage != "" {
		return m.Stage
	}
	if m.Kind == MaterialKindPackaging {
		return StagePackaging
	}
	return StageRawMaterials
}

// HasSupplierLink reports whether the material is explicitly linked to a
// verified supplier product.
func (m Material) HasSupplierLink() bool {
	return m.SupplierProductID != ""
}

// HasProcessLink reports whether the material is explicitly linked to a
// process-database identifier.
func (m Material) HasProcessLink() bool {
	return m.ProcessID != ""
}
