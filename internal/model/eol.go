package model

import "math"

// PathwayShareTolerance is the absolute percentage-point tolerance on the sum
// of the four pathway shares.
const PathwayShareTolerance = 1.0

// RegionalDefaults holds the four end-of-life pathway shares, in percent.
type RegionalDefaults struct {
	Recycling    float64 `json:"recycling" yaml:"recycling"`
	Landfill     float64 `json:"landfill" yaml:"landfill"`
	Incineration float64 `json:"incineration" yaml:"incineration"`
	Composting   float64 `json:"composting" yaml:"composting"`
}

// Sum returns the total of the four shares.
func (d RegionalDefaults) Sum() float64 {
	return d.Recycling + d.Landfill + d.Incineration + d.Composting
}

// WithinTolerance reports whether the shares sum to 100 within tolerance.
func (d RegionalDefaults) WithinTolerance() bool {
	return math.Abs(d.Sum()-100) <= PathwayShareTolerance
}

// EoLConfig is the per-assessment end-of-life configuration. Overrides are
// keyed by material-type key and replace regional defaults for that key.
type EoLConfig struct {
	Region    string                      `json:"region" yaml:"region"`
	Overrides map[string]RegionalDefaults `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// EoLResult is the disposal-stage impact for one or more materials.
type EoLResult struct {
	Gross   float64 `json:"gross"`
	Avoided float64 `json:"avoided"`
	Net     float64 `json:"net"`
}

// Add returns the component-wise sum.
func (r EoLResult) Add(o EoLResult) EoLResult {
	return EoLResult{
		Gross:   r.Gross + o.Gross,
		Avoided: r.Avoided + o.Avoided,
		Net:     r.Net + o.Net,
	}
}
