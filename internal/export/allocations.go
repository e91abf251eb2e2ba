package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/impact-engine/internal/model"
)

// SheetAllocations is the sheet read by ReadAllocations.
const SheetAllocations = "Allocations"

// allocationColumns are the required header names.
var allocationColumns = []string{
	"facility_id", "ownership", "period_start", "period_end", "product_volume", "facility_total_volume",
}

// ReadAllocations parses facility allocations for productID from the
// Allocations sheet of an XLSX file, or from the first sheet when none is
// named that. The first row is a header; dates are YYYY-MM-DD or RFC 3339.
func ReadAllocations(path, productID string) ([]model.FacilityAllocation, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open allocations workbook")
	}
	sheet, err := allocationSheet(f)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, name := range rowToStrings(sheet.Rows[0]) {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, c := range allocationColumns {
		if _, ok := cols[c]; !ok {
			return nil, eris.Errorf("export: allocations sheet missing column %q", c)
		}
	}

	var out []model.FacilityAllocation
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		get := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		if get("facility_id") == "" {
			continue
		}

		a := model.FacilityAllocation{
			FacilityID:   get("facility_id"),
			FacilityName: get("facility_name"),
			ProductID:    productID,
			Ownership:    model.Ownership(strings.ToLower(get("ownership"))),
		}
		line := i + 2
		if a.Period.Start, err = parseDate(get("period_start")); err != nil {
			return nil, eris.Wrapf(err, "export: allocations row %d: period_start", line)
		}
		if a.Period.End, err = parseDate(get("period_end")); err != nil {
			return nil, eris.Wrapf(err, "export: allocations row %d: period_end", line)
		}
		if a.ProductVolume, err = parseNumber(get("product_volume")); err != nil {
			return nil, eris.Wrapf(err, "export: allocations row %d: product_volume", line)
		}
		if a.FacilityTotalVolume, err = parseNumber(get("facility_total_volume")); err != nil {
			return nil, eris.Wrapf(err, "export: allocations row %d: facility_total_volume", line)
		}
		out = append(out, a)
	}
	return out, nil
}

func allocationSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if sheet, ok := f.Sheet[SheetAllocations]; ok {
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, eris.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, eris.Errorf("invalid number %q", s)
	}
	return v, nil
}
