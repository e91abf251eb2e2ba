package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-engine/internal/waterfall"
)

// NotFoundError is returned by single-row getters when the row is missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: %s not found: %s", e.Entity, e.ID)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// timeLayout is fixed-width so stored SQLite timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "store: parse time %q", s)
	}
	return t, nil
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode json")
	}
	return b, nil
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(data, v), "store: decode json")
}

func decodeFactors(data []byte) (waterfall.FactorSet, error) {
	var fs waterfall.FactorSet
	err := decode(data, &fs)
	return fs, err
}
