package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/impact-engine/internal/model"
)

func testReport() Report {
	agg := model.NewAggregatedImpacts("prod-1")
	agg.Total.Climate = 10
	agg.ByStage[model.StageRawMaterials] = 6
	agg.ByStage[model.StagePackaging] = 4
	agg.ByScope[model.Scope1] = 2
	agg.ByScope[model.Scope3] = 8
	return Report{
		ProductID: "prod-1",
		Impacts: []model.ResolvedImpact{
			{MaterialID: "m1", MaterialName: "Flour", Category: model.CategoryManufacturingMaterial, Stage: model.StageRawMaterials,
				QuantityKg: 2, Impacts: model.ImpactValues{Climate: 6, ClimateFossil: 5.1, ClimateBiogenic: 0.9},
				QualityTag: model.QualitySecondaryModelled, Grade: model.GradeMedium, Confidence: 75, Priority: 3, Source: "staging"},
			{MaterialID: "m2", MaterialName: "Glass Jar", Stage: model.StagePackaging, QuantityKg: 0.5,
				Impacts: model.ImpactValues{Climate: 4}, Priority: 2, IsHybrid: true},
		},
		Aggregated: agg,
		Interpretation: model.InterpretationResult{
			Hotspots: []model.Hotspot{{Kind: "material", Name: "Flour", Value: 6, Percent: 60}},
		},
		Warnings: []model.Warning{
			{Code: model.WarnProxyMissing, Subject: "Glass Jar", Message: "no proxy"},
			{Code: model.WarnEoLShareSum, Subject: "glass", Message: "shares sum to 90"},
		},
	}
}

func readBack(t *testing.T, r Report) *xlsx.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, r))
	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	return f
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	f := readBack(t, testReport())

	var names []string
	for _, s := range f.Sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{SheetMaterials, SheetStages, SheetScopes, SheetHotspots, SheetWarnings}, names)
}

func TestWriteWorkbook_Materials(t *testing.T) {
	f := readBack(t, testReport())
	sheet := f.Sheet[SheetMaterials]
	require.Len(t, sheet.Rows, 3)

	header := rowToStrings(sheet.Rows[0])
	assert.Equal(t, "Material ID", header[0])
	assert.Equal(t, "Hybrid", header[len(header)-1])

	flour := sheet.Rows[1].Cells
	assert.Equal(t, "m1", flour[0].String())
	climate, err := flour[5].Float()
	require.NoError(t, err)
	assert.InDelta(t, 6, climate, 1e-9)
	priority, err := flour[14].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, priority)
	assert.False(t, flour[16].Bool())
	assert.True(t, sheet.Rows[2].Cells[16].Bool())
}

func TestWriteWorkbook_StagesAndScopes(t *testing.T) {
	f := readBack(t, testReport())

	stages := f.Sheet[SheetStages]
	require.Len(t, stages.Rows, 1+len(model.AllStages()))
	assert.Equal(t, string(model.StageRawMaterials), stages.Rows[1].Cells[0].String())
	pct, err := stages.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 60, pct, 1e-9)

	scopes := f.Sheet[SheetScopes]
	require.Len(t, scopes.Rows, 4)
	assert.Equal(t, "Scope 1", scopes.Rows[1].Cells[0].String())
	s3, err := scopes.Rows[3].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 80, s3, 1e-9)
}

func TestWriteWorkbook_HotspotsAndWarnings(t *testing.T) {
	f := readBack(t, testReport())

	hotspots := f.Sheet[SheetHotspots]
	require.Len(t, hotspots.Rows, 2)
	assert.Equal(t, "Flour", hotspots.Rows[1].Cells[0].String())

	warnings := f.Sheet[SheetWarnings]
	require.Len(t, warnings.Rows, 3)
	// Sorted by code.
	assert.Equal(t, model.WarnEoLShareSum, warnings.Rows[1].Cells[0].String())
	assert.Equal(t, model.WarnProxyMissing, warnings.Rows[2].Cells[0].String())
}

func TestWriteWorkbook_EmptyReport(t *testing.T) {
	f := readBack(t, Report{Aggregated: model.NewAggregatedImpacts("prod-1")})
	require.Len(t, f.Sheets, 5)
	assert.Len(t, f.Sheet[SheetMaterials].Rows, 1)
	scopes := f.Sheet[SheetScopes]
	pct, err := scopes.Rows[1].Cells[2].Float()
	require.NoError(t, err)
	assert.Zero(t, pct)
}
