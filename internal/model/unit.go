package model

import (
	"strings"

	"golang.org/x/text/cases"
)

var (
	gramUnits = map[string]bool{
		"g": true, "gram": true, "grams": true, "gramme": true, "grammes": true,
	}
	millilitreUnits = map[string]bool{
		"ml": true, "millilitre": true, "millilitres": true, "milliliter": true, "milliliters": true,
	}
)

// NormalizeQuantity converts a quantity to the canonical mass unit (kg).
// Grams and millilitres are divided by 1000; volume is treated as mass at a
// 1:1 density. Kilograms, litres and unrecognized units pass through.
func NormalizeQuantity(quantity float64, unit string) float64 {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case gramUnits[u], millilitreUnits[u]:
		return quantity / 1000
	default:
		return quantity
	}
}

// NameKey returns the lookup key for a free-text material or factor name:
// case-folded with internal whitespace collapsed.
func NameKey(name string) string {
	// A Caser is stateful, so one is built per call.
	return strings.Join(strings.Fields(cases.Fold().String(name)), " ")
}
