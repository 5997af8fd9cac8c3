package feed

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFeedFile(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "feed.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseXLSX(t *testing.T) {
	path := writeFeedFile(t, [][]interface{}{
		{"External_ID", "Business_Name", "Email", "Phone", "Owner_Name"},
		{"EXT-001", "Shop A", "a@example.com", "+254700000001", "A. Otieno"},
		{"EXT-002", "Shop B", "b@example.com", "", ""},
	})

	records, err := ParseXLSX(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "EXT-001", records[0].ExternalID)
	assert.Equal(t, "Shop A", records[0].BusinessName)
	assert.Equal(t, "a@example.com", records[0].Email)
	assert.Equal(t, "+254700000001", records[0].Phone)
	assert.Equal(t, "A. Otieno", records[0].OwnerName)

	assert.Equal(t, "EXT-002", records[1].ExternalID)
	assert.Empty(t, records[1].Phone)
}

func TestParseXLSX_ColumnOrderIndependent(t *testing.T) {
	path := writeFeedFile(t, [][]interface{}{
		{"email", "external_id", "business_name"},
		{"a@example.com", "EXT-001", "Shop A"},
	})

	records, err := ParseXLSX(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "EXT-001", records[0].ExternalID)
	assert.Equal(t, "Shop A", records[0].BusinessName)
	assert.Equal(t, "a@example.com", records[0].Email)
}

func TestParseXLSX_MissingRequiredColumn(t *testing.T) {
	path := writeFeedFile(t, [][]interface{}{
		{"external_id", "business_name"},
		{"EXT-001", "Shop A"},
	})

	_, err := ParseXLSX(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestParseXLSX_SkipsBlankRows(t *testing.T) {
	path := writeFeedFile(t, [][]interface{}{
		{"external_id", "business_name", "email"},
		{"EXT-001", "Shop A", "a@example.com"},
		{"", "", ""},
	})

	records, err := ParseXLSX(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseXLSX_MissingFile(t *testing.T) {
	_, err := ParseXLSX(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
