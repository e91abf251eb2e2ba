package model

import "time"

// Ownership classifies a facility as owned or contract-manufactured.
type Ownership string

const (
	OwnershipOwned      Ownership = "owned"
	OwnershipThirdParty Ownership = "third_party"
)

// Scope is a regulatory emission scope (1 direct, 2 purchased energy, 3 value chain).
type Scope int

const (
	Scope1 Scope = 1
	Scope2 Scope = 2
	Scope3 Scope = 3
)

// AllScopes returns scopes 1-3 in order.
func AllScopes() []Scope {
	return []Scope{Scope1, Scope2, Scope3}
}

// ReportingPeriod is the half-open [Start, End) window of utility data.
type ReportingPeriod struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t falls inside the period.
func (p ReportingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// UtilityType identifies a metered utility at a facility.
type UtilityType string

const (
	UtilityElectricity  UtilityType = "electricity"
	UtilityNaturalGas   UtilityType = "natural_gas"
	UtilityDiesel       UtilityType = "diesel"
	UtilityLPG          UtilityType = "lpg"
	UtilityHeatingOil   UtilityType = "heating_oil"
	UtilityDistrictHeat UtilityType = "district_heat"
	UtilityWater        UtilityType = "water"
	UtilityWaste        UtilityType = "waste"
)

// UtilityRecord is one raw consumption entry for a facility.
type UtilityRecord struct {
	ID          string      `json:"id" yaml:"id"`
	FacilityID  string      `json:"facility_id" yaml:"facility_id"`
	Type        UtilityType `json:"utility_type" yaml:"utility_type"`
	Quantity    float64     `json:"quantity" yaml:"quantity"`
	Unit        string      `json:"unit" yaml:"unit"`
	PeriodStart time.Time   `json:"period_start" yaml:"period_start"`
	PeriodEnd   time.Time   `json:"period_end" yaml:"period_end"`
}

// FacilityAllocation is one (facility, period, product) input triple.
type FacilityAllocation struct {
	FacilityID          string          `json:"facility_id" yaml:"facility_id"`
	FacilityName        string          `json:"facility_name,omitempty" yaml:"facility_name,omitempty"`
	ProductID           string          `json:"product_id" yaml:"product_id"`
	Ownership           Ownership       `json:"ownership" yaml:"ownership"`
	Period              ReportingPeriod `json:"period" yaml:"period"`
	ProductVolume       float64         `json:"product_volume" yaml:"product_volume"`
	FacilityTotalVolume float64         `json:"facility_total_volume" yaml:"facility_total_volume"`
}

// AllocationBucket is the disjoint destination of an allocated result.
type AllocationBucket string

const (
	BucketProductionSite     AllocationBucket = "production_site"
	BucketContractAllocation AllocationBucket = "contract_allocation"
)

// AllocationStatus marks whether utility-derived emissions backed the result.
type AllocationStatus string

const (
	AllocationVerified    AllocationStatus = "verified"
	AllocationProvisional AllocationStatus = "provisional"
)

// AllocationResult is the product-allocated outcome of one FacilityAllocation.
type AllocationResult struct {
	Allocation FacilityAllocation `json:"allocation"`
	Ratio      float64            `json:"attribution_ratio"`
	Bucket     AllocationBucket   `json:"bucket"`
	Status     AllocationStatus   `json:"status"`
	Skipped    bool               `json:"skipped,omitempty"`

	// Facility-level period totals before allocation.
	FacilityScope1 float64 `json:"facility_scope1"`
	FacilityScope2 float64 `json:"facility_scope2"`
	FacilityWater  float64 `json:"facility_water"`
	FacilityWaste  float64 `json:"facility_waste"`

	// Product-allocated values. Owned facilities fill Scope1/Scope2,
	// contract facilities fill Scope3 only.
	Scope1 float64 `json:"scope1"`
	Scope2 float64 `json:"scope2"`
	Scope3 float64 `json:"scope3"`
	Water  float64 `json:"water"`
	Waste  float64 `json:"waste"`
}

// Emissions returns the allocated emissions regardless of bucket.
func (r AllocationResult) Emissions() float64 {
	return r.Scope1 + r.Scope2 + r.Scope3
}
