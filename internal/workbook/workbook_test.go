package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeFixture builds a small workbook the way an exported spreadsheet looks:
// padded headers, numeric cells, text noise and gaps.
func writeFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := "country_level_data"
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	rows := [][]interface{}{
		{" country_name ", "iso3c", "waste_treatment_recycling_percent"},
		{"Germany", "DEU", 47.5},
		{"Chad", "TCD", "n/a"},
		{"Peru"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "Country_data_project.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	tb, err := Load(writeFixture(t), "country_level_data")
	require.NoError(t, err)

	assert.Equal(t, []string{" country_name ", "iso3c", "waste_treatment_recycling_percent"}, tb.Columns())
	require.Equal(t, 3, tb.Len())

	f, ok := tb.At(0, 2).Float()
	require.True(t, ok)
	assert.Equal(t, 47.5, f)
	assert.Equal(t, table.KindText, tb.At(1, 2).Kind())
	assert.Equal(t, "n/a", tb.At(1, 2).String())
	assert.True(t, tb.At(2, 1).IsMissing())
	assert.True(t, tb.At(2, 2).IsMissing())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"), "country_level_data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestLoadMissingSheet(t *testing.T) {
	_, err := Load(writeFixture(t), "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSheetNotFound))
	assert.Contains(t, err.Error(), "Available sheets: country_level_data")
}

func TestSaveRoundTrip(t *testing.T) {
	src := table.New(
		[]string{"country_name", "waste_per_1000_people", "recycling_level"},
		[][]table.Value{
			{table.Text("A"), table.Number(1234.5678), table.Text("Low")},
			{table.Text("B"), table.Missing(), table.Missing()},
			{table.Text("C"), table.Number(0.1 + 0.2), table.Text("High")},
		},
	)
	dir := t.TempDir()
	path := filepath.Join(dir, "Country_data_cleaned.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Save(path, "", src))

	got, err := Load(path, "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, src.Columns(), got.Columns())
	require.Equal(t, src.Len(), got.Len())
	for i := 0; i < src.Len(); i++ {
		for j := range src.Columns() {
			assert.Truef(t, src.At(i, j).Equal(got.At(i, j)), "cell (%d,%d): %v != %v", i, j, src.At(i, j), got.At(i, j))
		}
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestSaveUnwritableDestination(t *testing.T) {
	src := table.New([]string{"a"}, [][]table.Value{{table.Number(1)}})
	path := filepath.Join(t.TempDir(), "missing-dir", "out.xlsx")
	err := Save(path, "Sheet1", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}
