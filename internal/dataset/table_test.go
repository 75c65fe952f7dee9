package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadTable_CSVDelimiters(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"comma", "COM,patrimoine\n75101,1000\n75102,2000\n"},
		{"semicolon", "COM;patrimoine\n75101;1000\n75102;2000\n"},
		{"bom and blank line", "\ufeffCOM,patrimoine\n75101,1000\n\n75102,2000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable(strings.NewReader(tt.data), FormatCSV)
			require.NoError(t, err)
			require.Len(t, table.Rows, 2)

			col, ok := table.Column("com")
			require.True(t, ok)
			assert.Equal(t, "75102", table.Value(1, col))
		})
	}
}

func TestReadTable_LineNumbers(t *testing.T) {
	table, err := ReadTable(strings.NewReader("a,b\n1,2\n\n3,4\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, table.Lines)
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), FormatCSV)
	assert.Error(t, err)
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"COM", "DISP_MED18"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{75101, 31000.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"75102", ""}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	rows, warnings, err := ParseIncome(table)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, IncomeRow{RegionID: "75101", MedianIncome: 31000.5, Known: true}, rows[0])
	assert.Equal(t, IncomeRow{RegionID: "75102"}, rows[1])
}

func TestFormatFromName(t *testing.T) {
	f, err := FormatFromName("data/Customers.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromName("arrondissements.geojson")
	require.NoError(t, err)
	assert.Equal(t, FormatGeoJSON, f)

	_, err = FormatFromName("map.shp")
	assert.Error(t, err)
}

func TestNormalizeRegionID(t *testing.T) {
	tests := map[string]string{
		"75101":   "75101",
		"75101.0": "75101",
		" 75120 ": "75120",
		"75101.5": "75101.5",
		"2A004":   "2A004",
		"01001.0": "01001",
		"":        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeRegionID(in), in)
	}
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("1 234,5")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, v, 1e-9)

	_, err = parseNumber("NaN")
	assert.Error(t, err)

	_, err = parseNumber("abc")
	assert.Error(t, err)
}
