package waterfall

import "github.com/sells-group/impact-engine/internal/model"

// SupplierConfidence returns the confidence of a supplier record: the explicit
// override clamped to [0, 100] if present, otherwise the data-quality grade
// mapping, otherwise the configured unknown-grade confidence.
func (c *Config) SupplierConfidence(rec SupplierRecord) float64 {
	if rec.ConfidenceOverride != nil {
		return clamp(*rec.ConfidenceOverride, 0, 100)
	}
	if conf, ok := c.Defaults.DataQualityConfidence[rec.DataQuality]; ok {
		return conf
	}
	return c.Defaults.UnknownQualityConfidence
}

// ProxyGrade returns the grade for proxy-table results: MEDIUM for
// manufacturing materials, LOW for everything else.
func ProxyGrade(category model.CategoryType) model.QualityGrade {
	if category == model.CategoryManufacturingMaterial {
		return model.GradeMedium
	}
	return model.GradeLow
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
