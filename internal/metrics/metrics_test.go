package metrics

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = DefaultColumns()

// country builds one source row; pass nil for a blank cell.
type country struct {
	name, iso, region string
	recycling, msw    interface{}
	population        interface{}
}

func cell(v interface{}) table.Value {
	switch x := v.(type) {
	case nil:
		return table.Missing()
	case string:
		return table.Text(x)
	case int:
		return table.Number(float64(x))
	case float64:
		return table.Number(x)
	}
	panic(fmt.Sprintf("unsupported cell %T", v))
}

func build(rows ...country) *table.Table {
	header := []string{cols.Country, cols.ISO3, cols.Region, cols.Recycling, cols.MSW, cols.Population}
	data := make([][]table.Value, len(rows))
	for i, r := range rows {
		data[i] = []table.Value{
			table.Text(r.name), table.Text(r.iso), table.Text(r.region),
			cell(r.recycling), cell(r.msw), cell(r.population),
		}
	}
	return table.New(header, data)
}

func strs(t *testing.T, tb *table.Table, name string) []string {
	t.Helper()
	col, err := tb.Column(name)
	require.NoError(t, err)
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = v.String()
	}
	return out
}

func TestTopRecyclers(t *testing.T) {
	var rows []country
	for i := 0; i < 14; i++ {
		rows = append(rows, country{name: fmt.Sprintf("c%02d", i), iso: fmt.Sprintf("I%02d", i), recycling: i * 5})
	}
	rows = append(rows,
		country{name: "noise", recycling: "unknown"},
		country{name: "blank"},
		country{name: "tie", iso: "TIE", recycling: "65"},
	)
	top, err := TopRecyclers(build(rows...), cols, 10, false)
	require.NoError(t, err)

	assert.Equal(t, []string{cols.Country, cols.Recycling}, top.Columns())
	require.Equal(t, 10, top.Len())
	assert.Equal(t, []string{"c13", "tie", "c12", "c11", "c10", "c09", "c08", "c07", "c06", "c05"}, strs(t, top, cols.Country))

	prev := 101.0
	for i := 0; i < top.Len(); i++ {
		f, ok := top.At(i, 1).Float()
		require.True(t, ok)
		assert.LessOrEqual(t, f, prev)
		prev = f
	}

	withISO, err := TopRecyclers(build(rows...), cols, 10, true)
	require.NoError(t, err)
	assert.Equal(t, []string{cols.ISO3, cols.Country, cols.Recycling}, withISO.Columns())
	assert.Equal(t, "I13", withISO.At(0, 0).String())
}

func TestTopRecyclersFewerThanN(t *testing.T) {
	top, err := TopRecyclers(build(
		country{name: "a", recycling: 3},
		country{name: "b", recycling: "x"},
	), cols, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 1, top.Len())

	empty, err := TopRecyclers(build(), cols, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestTopRecyclersMissingColumn(t *testing.T) {
	tb := table.New([]string{"country_name"}, nil)
	_, err := TopRecyclers(tb, cols, 10, false)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestWastePer1000(t *testing.T) {
	src := build(
		country{name: "a", msw: 600, population: 2000},
		country{name: "b", msw: "1.5", population: "1000000"},
		country{name: "c", msw: nil, population: 10},
		country{name: "d", msw: 10, population: "lots"},
	)
	got, err := WastePer1000(src, cols)
	require.NoError(t, err)

	assert.NotContains(t, src.Columns(), cols.WastePer1000)
	vals, err := got.Column(cols.WastePer1000)
	require.NoError(t, err)
	f, ok := vals[0].Float()
	require.True(t, ok)
	assert.Equal(t, 600.0*2000/1000, f)
	f, ok = vals[1].Float()
	require.True(t, ok)
	assert.Equal(t, 1.5*1000000/1000, f)
	assert.True(t, vals[2].IsMissing())
	assert.True(t, vals[3].IsMissing())
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		in   table.Value
		want string
	}{
		{table.Number(0), LevelLow},
		{table.Number(20), LevelLow},
		{table.Number(20.0001), LevelMedium},
		{table.Number(40), LevelMedium},
		{table.Number(40.5), LevelHigh},
		{table.Number(100), LevelHigh},
		{table.Number(-0.1), "NaN"},
		{table.Number(100.1), "NaN"},
		{table.Text("12"), LevelLow},
		{table.Text("n/a"), "NaN"},
		{table.Missing(), "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.in).String(), "Level(%v)", tt.in)
	}
}

func TestRecyclingLevelsAndCounts(t *testing.T) {
	src := build(
		country{name: "a", recycling: 5},
		country{name: "b", recycling: 25},
		country{name: "c", recycling: 15},
		country{name: "d", recycling: nil},
		country{name: "e", recycling: 150},
	)
	got, err := RecyclingLevels(src, cols)
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "Medium", "Low", "NaN", "NaN"}, strs(t, got, cols.Level))

	counts, err := LevelCounts(got, cols)
	require.NoError(t, err)
	assert.Equal(t, []LevelCount{
		{Label: "Low", Count: 2},
		{Label: "NaN", Missing: true, Count: 2},
		{Label: "Medium", Count: 1},
	}, counts)
}

func TestProblemCountries(t *testing.T) {
	src := build(
		country{name: "X", msw: 600, recycling: 15},
		country{name: "Y", msw: 600, recycling: 25},
		country{name: "Z", msw: 500, recycling: 1},
		country{name: "W", msw: nil, recycling: 1},
		country{name: "V", msw: 900, recycling: "?"},
		country{name: "U", msw: "750", recycling: "19.9"},
	)
	got, err := ProblemCountries(src, cols, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, []string{cols.Country, cols.MSW, cols.Recycling}, got.Columns())
	assert.Equal(t, []string{"X", "U"}, strs(t, got, cols.Country))
	assert.Equal(t, []string{"600.0", "750.0"}, strs(t, got, cols.MSW))
	assert.Equal(t, []string{"15.0", "19.9"}, strs(t, got, cols.Recycling))
}

func TestRegionAverages(t *testing.T) {
	src := build(
		country{name: "a", region: "EAS", recycling: 20},
		country{name: "b", region: "EAS", recycling: 40},
		country{name: "c", region: "EAS", recycling: nil},
		country{name: "d", region: "SSF", recycling: 5},
		country{name: "e", region: "ECS", recycling: 50},
		country{name: "f", region: "MEA", recycling: "n/a"},
		country{name: "g", region: "", recycling: 99},
	)
	got, err := RegionAverages(src, cols)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "ECS", got[0].Region)
	assert.Equal(t, "EAS", got[1].Region)
	mean, ok := got[1].Mean.Float()
	require.True(t, ok)
	assert.Equal(t, 30.0, mean)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, "SSF", got[2].Region)
	assert.Equal(t, "MEA", got[3].Region)
	assert.True(t, got[3].Mean.IsMissing())
	assert.Equal(t, 0, got[3].Count)
}

func TestNormalizedColumns(t *testing.T) {
	n := cols.Normalized()
	assert.Equal(t, "waste_per_1000_people", n.WastePer1000)
	assert.Equal(t, "recycling_level", n.Level)
	assert.Equal(t, "msw_per_capita_(kg/year)", n.MSW)
	assert.Equal(t, n, n.Normalized())
}
