package waterfall

import (
	"errors"
	"fmt"

	"github.com/sells-group/impact-engine/internal/model"
)

// MissingFactorError is returned when no tier produced data for a material.
// The calculation for the whole product must be aborted.
type MissingFactorError struct {
	MaterialID   string
	MaterialName string
	Attempts     []model.TierAttempt
}

func (e *MissingFactorError) Error() string {
	return fmt.Sprintf("waterfall: no impact factor found for material %q (%d tiers tried)", e.MaterialName, len(e.Attempts))
}

// IsMissingFactor reports whether err wraps a MissingFactorError.
func IsMissingFactor(err error) bool {
	var mfe *MissingFactorError
	return errors.As(err, &mfe)
}
