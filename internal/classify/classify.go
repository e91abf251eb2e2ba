// Package classify assigns materials to the category type that selects their
// resolution path.
package classify

import (
	"strings"

	"github.com/sells-group/impact-engine/internal/model"
)

// keywordGroup is one category and the substrings that select it.
type keywordGroup struct {
	category model.CategoryType
	keywords []string
}

// orderedKeywords is checked top to bottom; the first group with a matching
// substring wins. Short, ambiguous tokens ("oil", "heat", "van", "bus") are
// avoided because they occur inside ingredient names (olive oil, wheat,
// vanilla, robusta).
var orderedKeywords = []keywordGroup{
	{model.CategoryEnergy, []string{
		"electricity", "electric power", "grid power", "kwh",
		"natural gas", "diesel", "petrol", "gasoline", "lpg", "propane",
		"heating oil", "fuel oil", "fuel", "district heating", "district heat",
		"steam", "coal", "energy", "solar", "wind power",
	}},
	{model.CategoryTransport, []string{
		"transport", "freight", "shipping", "haulage", "trucking", "lorry",
		"logistics", "delivery", "courier", "tonne-km", "tkm",
	}},
	{model.CategoryCommuting, []string{
		"commut", "business travel", "employee travel", "staff travel",
		"taxi", "flight", "hotel stay",
	}},
	{model.CategoryWaste, []string{
		"waste", "landfill", "recycling", "disposal", "effluent", "scrap",
		"incinerat",
	}},
}

// Classify returns the category type for a material. A non-empty explicit
// category is returned unchanged. Otherwise the case-folded name is matched
// against fixed keyword lists (energy, transport, commuting, waste in that
// order), defaulting to manufacturing_material. Classification never fails.
func Classify(name string, explicit model.CategoryType) model.CategoryType {
	if explicit != "" {
		return explicit
	}

	key := model.NameKey(name)
	if key == "" {
		return model.CategoryManufacturingMaterial
	}

	for _, g := range orderedKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(key, kw) {
				return g.category
			}
		}
	}
	return model.CategoryManufacturingMaterial
}

// Material classifies m using its name and explicit category.
func Material(m model.Material) model.CategoryType {
	return Classify(m.Name, m.Category)
}
