package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const allocationsYAML = `
- facility_id: fac-1
  ownership: owned
  period:
    start: 2024-01-01T00:00:00Z
    end: 2024-04-01T00:00:00Z
  product_volume: 250
  facility_total_volume: 1000
- facility_id: fac-2
  product_id: prod-other
  ownership: third_party
  product_volume: 10
  facility_total_volume: 100
`

func TestReadAllocations_YAML(t *testing.T) {
	allocs, err := readAllocations(writeFile(t, "allocs.yaml", allocationsYAML), "prod-1")
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, "prod-1", allocs[0].ProductID)
	assert.Equal(t, model.OwnershipOwned, allocs[0].Ownership)
	assert.Equal(t, 4, int(allocs[0].Period.End.Month()))
	assert.InDelta(t, 250, allocs[0].ProductVolume, 1e-9)

	// Explicit product IDs are kept.
	assert.Equal(t, "prod-other", allocs[1].ProductID)
	assert.Equal(t, model.OwnershipThirdParty, allocs[1].Ownership)
}

func TestReadAllocations_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Allocations")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"facility_id", "ownership", "period_start", "period_end", "product_volume", "facility_total_volume"},
		{"fac-1", "owned", "2024-01-01", "2024-07-01", "300", "1,200"},
	} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "allocs.xlsx")
	require.NoError(t, f.Save(path))

	allocs, err := readAllocations(path, "prod-1")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "fac-1", allocs[0].FacilityID)
	assert.Equal(t, "prod-1", allocs[0].ProductID)
	assert.InDelta(t, 1200, allocs[0].FacilityTotalVolume, 1e-9)
}

func TestReadAllocations_UnsupportedExtension(t *testing.T) {
	_, err := readAllocations(writeFile(t, "allocs.csv", "facility_id\n"), "prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported allocations file")
}

func TestBuildRequest(t *testing.T) {
	eolPath := writeFile(t, "eol.yaml", `
region: UK
overrides:
  paper:
    recycling: 80
    landfill: 10
    incineration: 10
    composting: 0
`)
	sensPath := writeFile(t, "sens.yaml", `
uncertainty_percent: 12.5
parameters:
  - name: transport distance
    ratio: 0.8
`)

	req, err := buildRequest("prod-1", "org-1", writeFile(t, "allocs.yml", allocationsYAML), eolPath, sensPath)
	require.NoError(t, err)

	assert.Equal(t, "prod-1", req.ProductID)
	assert.Equal(t, "org-1", req.OrgID)
	assert.Len(t, req.Allocations, 2)
	require.NotNil(t, req.EoL)
	assert.Equal(t, "UK", req.EoL.Region)
	assert.InDelta(t, 80, req.EoL.Overrides["paper"].Recycling, 1e-9)
	require.NotNil(t, req.Sensitivity)
	assert.InDelta(t, 12.5, req.Sensitivity.UncertaintyPercent, 1e-9)
	require.Len(t, req.Sensitivity.Parameters, 1)
	assert.Equal(t, "transport distance", req.Sensitivity.Parameters[0].Name)
}

func TestBuildRequest_Minimal(t *testing.T) {
	req, err := buildRequest("prod-1", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, engine.Request{ProductID: "prod-1"}, req)
}

func TestBuildRequest_Errors(t *testing.T) {
	_, err := buildRequest("", "", "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--product is required")

	_, err = buildRequest("prod-1", "", "", filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ")

	_, err = buildRequest("prod-1", "", "", "", writeFile(t, "bad.yaml", "parameters: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse ")
}

func TestFormatResult(t *testing.T) {
	agg := model.NewAggregatedImpacts("prod-1")
	agg.Total.Climate = 3.25
	agg.ByStage[model.StageRawMaterials] = 2.5
	agg.ByStage[model.StagePackaging] = 0.75
	agg.ByScope[model.Scope3] = 3.25
	agg.MaterialCount = 2

	res := &engine.Result{
		Run: model.CalculationRun{ID: "run-1"},
		Impacts: []model.ResolvedImpact{
			{MaterialName: "Wheat Flour", Stage: model.StageRawMaterials, Impacts: model.ImpactValues{Climate: 2.5}, Priority: 3, Source: "staging"},
		},
		Aggregated: agg,
		Interpretation: model.InterpretationResult{
			Conclusions: []string{"Raw materials dominate the footprint."},
		},
		Warnings: []model.Warning{{Code: model.WarnProxyMissing, Subject: "Paper Bag", Message: "no proxy"}},
	}

	var buf bytes.Buffer
	formatResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "prod-1")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "3.2500")
	assert.Contains(t, out, "Wheat Flour")
	assert.Contains(t, out, "Scope 3:")
	assert.Contains(t, out, "- Raw materials dominate the footprint.")
	assert.Contains(t, out, "1 warning(s)")
	assert.Contains(t, out, "[proxy_missing] Paper Bag: no proxy")
}
