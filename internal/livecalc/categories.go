package livecalc

import (
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
	"github.com/sells-group/impact-engine/pkg/processdb"
)

// categoryAliases maps process-database category labels (name-keyed) to
// canonical impact category names.
var categoryAliases = map[string]string{
	"climate change": "climate",
	"global warming": "climate",
	"gwp100":         "climate",

	"climate change - fossil":   "climate_fossil",
	"climate change - biogenic": "climate_biogenic",
	"climate change - luluc":    "climate_luc",

	"climate change - land use and land use change": "climate_luc",

	"water consumption": "water",
	"land use":          "land",
	"land occupation":   "land",
	"waste generated":   "waste",

	"ozone depletion":               "ozone_depletion",
	"photochemical ozone formation": "photochemical_ozone",
	"acidification":                 "acidification",
	"particulate matter":            "particulate_matter",
	"ionising radiation":            "ionising_radiation",
	"ionizing radiation":            "ionising_radiation",

	"eutrophication, freshwater":  "eutrophication_freshwater",
	"eutrophication, marine":      "eutrophication_marine",
	"eutrophication, terrestrial": "eutrophication_terrestrial",

	"human toxicity, cancer":     "human_toxicity_cancer",
	"human toxicity, non-cancer": "human_toxicity_non_cancer",
	"ecotoxicity, freshwater":    "ecotoxicity_freshwater",

	"resource use, fossils":             "resource_use_fossil",
	"resource use, minerals and metals": "resource_use_minerals",
	"water use":                         "water_scarcity",

	"methane, fossil":     "ch4_fossil",
	"methane, biogenic":   "ch4_biogenic",
	"dinitrogen monoxide": "n2o",
	"nitrous oxide":       "n2o",
}

// CanonicalCategory returns the canonical impact category for a service
// label. Canonical names are accepted as-is.
func CanonicalCategory(label string) (string, bool) {
	key := model.NameKey(label)
	if name, ok := categoryAliases[key]; ok {
		return name, true
	}
	for _, name := range model.ImpactCategoryNames {
		if key == name {
			return name, true
		}
	}
	return "", false
}

// toFactorSet converts service amounts into factors in response order; the
// first amount for a category wins. Unknown labels are returned so callers can
// log them.
func toFactorSet(impacts []processdb.ImpactAmount) (waterfall.FactorSet, []string) {
	var fs waterfall.FactorSet
	var unknown []string
	for _, ia := range impacts {
		name, ok := CanonicalCategory(ia.Category)
		if !ok {
			unknown = append(unknown, ia.Category)
			continue
		}
		if _, seen := fs.Get(name); seen {
			continue
		}
		fs.Set(name, ia.Amount)
	}
	return fs, unknown
}
