package chart

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/mswreport-cli/internal/metrics"
	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionBarsSkipsMissingMeans(t *testing.T) {
	bc := RegionBars([]metrics.RegionAverage{
		{Region: "ECS", Mean: table.Number(40)},
		{Region: "EAS", Mean: table.Number(30)},
		{Region: "MEA", Mean: table.Missing()},
	})
	assert.Equal(t, RegionTitle, bc.Title)
	assert.Equal(t, RegionXLabel, bc.XLabel)
	assert.Equal(t, RegionYLabel, bc.YLabel)
	assert.Equal(t, []string{"ECS", "EAS"}, bc.Labels)
	assert.Equal(t, []float64{40, 30}, bc.Values)
}

func TestFileRenderBar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "regions.png")
	r := NewFile(path, 0, 0)
	err := r.RenderBar(BarChart{
		Title:  RegionTitle,
		XLabel: RegionXLabel,
		YLabel: RegionYLabel,
		Labels: []string{"ECS", "NAC", "EAS", "LCN", "MEA", "SAS", "SSF"},
		Values: []float64{41.2, 33.0, 20.5, 6.1, 5.0, 3.3, 2.9},
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestFileRenderBarErrors(t *testing.T) {
	r := NewFile(filepath.Join(t.TempDir(), "x.png"), 4, 3)
	err := r.RenderBar(BarChart{})
	assert.True(t, errors.Is(err, ErrNoData))

	err = r.RenderBar(BarChart{Labels: []string{"a"}, Values: []float64{1, 2}})
	assert.Error(t, err)
}
