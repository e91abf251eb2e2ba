package aggregate

import (
	"fmt"

	"github.com/sells-group/impact-engine/internal/model"
)

// transportFactors are kg CO2e per tonne-km by freight mode.
var transportFactors = map[model.TransportMode]float64{
	model.TransportRoad: 0.10749,
	model.TransportRail: 0.02782,
	model.TransportSea:  0.01614,
	model.TransportAir:  0.60154,
}

// TransportFactor returns the per tonne-km factor for mode. Unknown modes use
// the road factor and report false.
func TransportFactor(mode model.TransportMode) (float64, bool) {
	f, ok := transportFactors[mode]
	if !ok {
		return transportFactors[model.TransportRoad], false
	}
	return f, true
}

// TransportEmissions returns distance x mass x factor for one material leg,
// with a warning when the mode is not recognized.
func TransportEmissions(m model.Material) (float64, *model.Warning) {
	leg := m.Transport
	if leg == nil || leg.DistanceKm <= 0 {
		return 0, nil
	}
	tonnes := m.QuantityKg() / 1000
	f, known := TransportFactor(leg.Mode)

	var warn *model.Warning
	if !known {
		warn = &model.Warning{
			Code:    model.WarnTransportModeUnknown,
			Subject: m.Name,
			Message: fmt.Sprintf("unknown transport mode %q, using road factor", leg.Mode),
		}
	}
	return leg.DistanceKm * tonnes * f, warn
}
