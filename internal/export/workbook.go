// Package export writes calculation output to XLSX workbooks and reads
// facility allocation sheets.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/impact-engine/internal/model"
)

// Sheet names written by WriteWorkbook.
const (
	SheetMaterials = "Materials"
	SheetStages    = "Stages"
	SheetScopes    = "Scopes"
	SheetHotspots  = "Hotspots"
	SheetWarnings  = "Warnings"
)

// Report is the calculation output rendered into a workbook.
type Report struct {
	ProductID      string
	Impacts        []model.ResolvedImpact
	Aggregated     model.AggregatedImpacts
	Interpretation model.InterpretationResult
	Warnings       []model.Warning
}

// WriteWorkbook renders r as an XLSX workbook.
func WriteWorkbook(w io.Writer, r Report) error {
	f := xlsx.NewFile()

	builders := []struct {
		name string
		fill func(*xlsx.Sheet, Report)
	}{
		{SheetMaterials, fillMaterials},
		{SheetStages, fillStages},
		{SheetScopes, fillScopes},
		{SheetHotspots, fillHotspots},
		{SheetWarnings, fillWarnings},
	}
	for _, b := range builders {
		sheet, err := f.AddSheet(b.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", b.name)
		}
		b.fill(sheet, r)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func fillMaterials(sheet *xlsx.Sheet, r Report) {
	addHeader(sheet, "Material ID", "Name", "Category", "Stage", "Quantity (kg)",
		"Climate (kg CO2e)", "Climate fossil", "Climate biogenic", "Water", "Land", "Waste",
		"Quality", "Grade", "Confidence", "Priority", "Source", "Hybrid")
	for _, ri := range r.Impacts {
		row := sheet.AddRow()
		addStrings(row, ri.MaterialID, ri.MaterialName, string(ri.Category), string(ri.Stage))
		addFloats(row, ri.QuantityKg,
			ri.Impacts.Climate, ri.Impacts.ClimateFossil, ri.Impacts.ClimateBiogenic,
			ri.Impacts.Water, ri.Impacts.Land, ri.Impacts.Waste)
		addStrings(row, string(ri.QualityTag), string(ri.Grade))
		addFloats(row, ri.Confidence)
		row.AddCell().SetInt(ri.Priority)
		addStrings(row, ri.Source)
		row.AddCell().SetBool(ri.IsHybrid)
	}
}

func fillStages(sheet *xlsx.Sheet, r Report) {
	addHeader(sheet, "Stage", "Climate (kg CO2e)", "Share (%)")
	total := r.Aggregated.Total.Climate
	for _, stage := range model.AllStages() {
		v := r.Aggregated.ByStage[stage]
		row := sheet.AddRow()
		addStrings(row, string(stage))
		addFloats(row, v, share(v, total))
	}
}

func fillScopes(sheet *xlsx.Sheet, r Report) {
	addHeader(sheet, "Scope", "Emissions (kg CO2e)", "Share (%)")
	var total float64
	for _, s := range model.AllScopes() {
		total += r.Aggregated.ByScope[s]
	}
	for _, s := range model.AllScopes() {
		v := r.Aggregated.ByScope[s]
		row := sheet.AddRow()
		addStrings(row, fmt.Sprintf("Scope %d", s))
		addFloats(row, v, share(v, total))
	}
}

func fillHotspots(sheet *xlsx.Sheet, r Report) {
	addHeader(sheet, "Material", "Climate (kg CO2e)", "Share (%)")
	for _, h := range r.Interpretation.Hotspots {
		row := sheet.AddRow()
		addStrings(row, h.Name)
		addFloats(row, h.Value, h.Percent)
	}
}

func fillWarnings(sheet *xlsx.Sheet, r Report) {
	addHeader(sheet, "Code", "Subject", "Message")
	warnings := make([]model.Warning, len(r.Warnings))
	copy(warnings, r.Warnings)
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Code < warnings[j].Code })
	for _, w := range warnings {
		addStrings(sheet.AddRow(), w.Code, w.Subject, w.Message)
	}
}

func addHeader(sheet *xlsx.Sheet, names ...string) {
	addStrings(sheet.AddRow(), names...)
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloats(row *xlsx.Row, values ...float64) {
	for _, v := range values {
		row.AddCell().SetFloat(v)
	}
}

func share(v, total float64) float64 {
	if total == 0 {
		return 0
	}
	return v * 100 / total
}
