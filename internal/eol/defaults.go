package eol

import "github.com/sells-group/impact-engine/internal/model"

// Material-type keys.
const (
	KeyGlass          = "glass"
	KeyPlastic        = "plastic"
	KeyPaperCardboard = "paper_cardboard"
	KeyAluminium      = "aluminium"
	KeySteel          = "steel"
	KeyOrganic        = "organic"
	KeyOther          = "other"
)

// RegionGlobal is the fallback region.
const RegionGlobal = "GLOBAL"

// PathwayFactors are kg CO2e per kg routed to each pathway, plus the credits
// per kg recycled and per kg incinerated with energy recovery.
type PathwayFactors struct {
	Recycling            float64 `yaml:"recycling"`
	Landfill             float64 `yaml:"landfill"`
	Incineration         float64 `yaml:"incineration"`
	Composting           float64 `yaml:"composting"`
	RecyclingCredit      float64 `yaml:"recycling_credit"`
	EnergyRecoveryCredit float64 `yaml:"energy_recovery_credit"`
}

func builtinFactors() map[string]PathwayFactors {
	return map[string]PathwayFactors{
		KeyGlass:          {Recycling: 0.0213, Landfill: 0.0089, Incineration: 0.0270, RecyclingCredit: 0.314},
		KeyPlastic:        {Recycling: 0.0213, Landfill: 0.0089, Incineration: 2.335, RecyclingCredit: 1.050, EnergyRecoveryCredit: 0.424},
		KeyPaperCardboard: {Recycling: 0.0213, Landfill: 1.0420, Incineration: 0.0213, Composting: 0.0089, RecyclingCredit: 0.190, EnergyRecoveryCredit: 0.427},
		KeyAluminium:      {Recycling: 0.0213, Landfill: 0.0089, Incineration: 0.0213, RecyclingCredit: 8.140},
		KeySteel:          {Recycling: 0.0213, Landfill: 0.0089, Incineration: 0.0213, RecyclingCredit: 1.460},
		KeyOrganic:        {Recycling: 0.0089, Landfill: 0.6270, Incineration: 0.0213, Composting: 0.0089, RecyclingCredit: 0.050, EnergyRecoveryCredit: 0.150},
		KeyOther:          {Recycling: 0.0213, Landfill: 0.4670, Incineration: 0.4160, Composting: 0.0089, RecyclingCredit: 0.100, EnergyRecoveryCredit: 0.200},
	}
}

func shares(recycling, landfill, incineration, composting float64) model.RegionalDefaults {
	return model.RegionalDefaults{Recycling: recycling, Landfill: landfill, Incineration: incineration, Composting: composting}
}

// builtinRegions are pathway shares in percent, per region and material key.
func builtinRegions() map[string]map[string]model.RegionalDefaults {
	return map[string]map[string]model.RegionalDefaults{
		RegionGlobal: {
			KeyGlass:          shares(21, 70, 9, 0),
			KeyPlastic:        shares(9, 79, 12, 0),
			KeyPaperCardboard: shares(56, 33, 11, 0),
			KeyAluminium:      shares(35, 55, 10, 0),
			KeySteel:          shares(60, 32, 8, 0),
			KeyOrganic:        shares(5, 55, 10, 30),
			KeyOther:          shares(10, 70, 20, 0),
		},
		"UK": {
			KeyGlass:          shares(71, 16, 13, 0),
			KeyPlastic:        shares(44, 30, 26, 0),
			KeyPaperCardboard: shares(70, 9, 21, 0),
			KeyAluminium:      shares(55, 14, 31, 0),
			KeySteel:          shares(68, 11, 21, 0),
			KeyOrganic:        shares(15, 25, 20, 40),
			KeyOther:          shares(20, 35, 45, 0),
		},
		"EU": {
			KeyGlass:          shares(76, 14, 10, 0),
			KeyPlastic:        shares(40, 25, 35, 0),
			KeyPaperCardboard: shares(82, 6, 12, 0),
			KeyAluminium:      shares(69, 16, 15, 0),
			KeySteel:          shares(80, 10, 10, 0),
			KeyOrganic:        shares(20, 20, 20, 40),
			KeyOther:          shares(25, 40, 35, 0),
		},
		"US": {
			KeyGlass:          shares(31, 59, 10, 0),
			KeyPlastic:        shares(9, 76, 15, 0),
			KeyPaperCardboard: shares(68, 21, 11, 0),
			KeyAluminium:      shares(35, 52, 13, 0),
			KeySteel:          shares(71, 24, 5, 0),
			KeyOrganic:        shares(4, 53, 11, 32),
			KeyOther:          shares(8, 70, 22, 0),
		},
	}
}

// keyAliases maps common material names to material-type keys.
var keyAliases = map[string]string{
	"paper":     KeyPaperCardboard,
	"cardboard": KeyPaperCardboard,
	"card":      KeyPaperCardboard,
	"aluminum":  KeyAluminium,
	"tin":       KeySteel,
	"plastics":  KeyPlastic,
	"food":      KeyOrganic,
}
