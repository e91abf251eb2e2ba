package facility

import (
	"strings"

	"github.com/sells-group/impact-engine/internal/model"
)

// NaturalGasKWhPerM3 converts natural gas volume to energy before its factor
// is applied.
const NaturalGasKWhPerM3 = 10.55

// UtilityFactor is a fixed emission factor for one utility type.
type UtilityFactor struct {
	KgCO2ePerUnit float64
	Unit          string
	Scope         model.Scope
}

// utilityFactors are kg CO2e per unit of consumption.
var utilityFactors = map[model.UtilityType]UtilityFactor{
	model.UtilityElectricity:  {0.20705, "kWh", model.Scope2},
	model.UtilityNaturalGas:   {0.18290, "kWh", model.Scope1},
	model.UtilityDiesel:       {2.51279, "litre", model.Scope1},
	model.UtilityLPG:          {1.55713, "litre", model.Scope1},
	model.UtilityHeatingOil:   {2.54042, "litre", model.Scope1},
	model.UtilityDistrictHeat: {0.17073, "kWh", model.Scope2},
}

// FactorFor returns the emission factor for a utility type. Water and waste
// have no emission factor.
func FactorFor(t model.UtilityType) (UtilityFactor, bool) {
	f, ok := utilityFactors[t]
	return f, ok
}

// Totals are facility-level period totals before allocation.
type Totals struct {
	Scope1 float64
	Scope2 float64
	Water  float64
	Waste  float64
}

// Emissions returns Scope 1 plus Scope 2.
func (t Totals) Emissions() float64 {
	return t.Scope1 + t.Scope2
}

// Summarize multiplies each record by its utility factor and accumulates the
// facility totals. Records of unknown types are ignored.
func Summarize(records []model.UtilityRecord) Totals {
	var t Totals
	for _, r := range records {
		switch r.Type {
		case model.UtilityWater:
			t.Water += r.Quantity
			continue
		case model.UtilityWaste:
			t.Waste += r.Quantity
			continue
		}

		f, ok := FactorFor(r.Type)
		if !ok {
			continue
		}
		qty := r.Quantity
		if r.Type == model.UtilityNaturalGas && isVolumeUnit(r.Unit) {
			qty *= NaturalGasKWhPerM3
		}
		switch f.Scope {
		case model.Scope1:
			t.Scope1 += qty * f.KgCO2ePerUnit
		case model.Scope2:
			t.Scope2 += qty * f.KgCO2ePerUnit
		}
	}
	return t
}

func isVolumeUnit(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "m3", "m³", "cubic metre", "cubic metres", "cubic meter", "cubic meters":
		return true
	default:
		return false
	}
}
