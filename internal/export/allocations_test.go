package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/impact-engine/internal/model"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "allocations.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

var allocationHeader = []string{
	"Facility_ID", "facility_name", "ownership", "period_start", "period_end", "product_volume", "facility_total_volume",
}

func TestReadAllocations(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		SheetAllocations: {
			allocationHeader,
			{"fac-1", "Leeds Bakery", "Owned", "2024-01-01", "2024-02-01", "600", "1,000"},
			{"", "", "", "", "", "", ""},
			{"fac-2", "", "third_party", "2024-01-01T00:00:00Z", "2024-04-01T00:00:00Z", "50", "200"},
		},
	})

	allocs, err := ReadAllocations(path, "prod-1")
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, "fac-1", allocs[0].FacilityID)
	assert.Equal(t, "Leeds Bakery", allocs[0].FacilityName)
	assert.Equal(t, "prod-1", allocs[0].ProductID)
	assert.Equal(t, model.OwnershipOwned, allocs[0].Ownership)
	assert.True(t, allocs[0].Period.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 1000, allocs[0].FacilityTotalVolume, 1e-9)

	assert.Equal(t, model.OwnershipThirdParty, allocs[1].Ownership)
	assert.True(t, allocs[1].Period.End.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestReadAllocations_FirstSheetFallback(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			allocationHeader,
			{"fac-1", "", "owned", "2024-01-01", "2024-02-01", "1", "2"},
		},
	})

	allocs, err := ReadAllocations(path, "prod-1")
	require.NoError(t, err)
	require.Len(t, allocs, 1)
}

func TestReadAllocations_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadAllocations(filepath.Join(t.TempDir(), "nope.xlsx"), "prod-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export: open allocations workbook")
	})

	t.Run("missing column", func(t *testing.T) {
		path := createTestXLSX(t, map[string][][]string{
			SheetAllocations: {{"facility_id", "ownership"}},
		})
		_, err := ReadAllocations(path, "prod-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing column "period_start"`)
	})

	t.Run("bad date", func(t *testing.T) {
		path := createTestXLSX(t, map[string][][]string{
			SheetAllocations: {
				allocationHeader,
				{"fac-1", "", "owned", "January", "2024-02-01", "1", "2"},
			},
		})
		_, err := ReadAllocations(path, "prod-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 2: period_start")
	})

	t.Run("bad number", func(t *testing.T) {
		path := createTestXLSX(t, map[string][][]string{
			SheetAllocations: {
				allocationHeader,
				{"fac-1", "", "owned", "2024-01-01", "2024-02-01", "lots", "2"},
			},
		})
		_, err := ReadAllocations(path, "prod-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "product_volume")
	})
}
