// Package chart renders the region bar chart.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/mswreport-cli/internal/metrics"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Fixed labels of the region chart.
const (
	RegionTitle  = "Average Recycling Rate by Region"
	RegionYLabel = "Recycling Rate (%)"
	RegionXLabel = "Region ID"
)

// ErrNoData is returned when a chart has no bars to draw.
var ErrNoData = errors.New("chart has no data")

// BarChart is a labelled series of bar heights.
type BarChart struct {
	Title  string
	XLabel string
	YLabel string
	Labels []string
	Values []float64
}

// Renderer draws bar charts. A nil Renderer means no backend is available.
type Renderer interface {
	RenderBar(BarChart) error
}

// RegionBars builds the region chart from averages already sorted by mean.
// Regions without a numeric mean get no bar.
func RegionBars(avgs []metrics.RegionAverage) BarChart {
	bc := BarChart{Title: RegionTitle, XLabel: RegionXLabel, YLabel: RegionYLabel}
	for _, ra := range avgs {
		if m, ok := ra.Mean.Float(); ok {
			bc.Labels = append(bc.Labels, ra.Region)
			bc.Values = append(bc.Values, m)
		}
	}
	return bc
}

// File renders charts to an image file with gonum/plot. The format follows
// the file extension (.png, .svg, .pdf, ...).
type File struct {
	Path   string
	Width  vg.Length
	Height vg.Length
}

// NewFile returns a renderer writing to path with the size given in inches.
func NewFile(path string, widthIn, heightIn float64) *File {
	if widthIn <= 0 {
		widthIn = 8
	}
	if heightIn <= 0 {
		heightIn = 5
	}
	return &File{Path: path, Width: vg.Length(widthIn) * vg.Inch, Height: vg.Length(heightIn) * vg.Inch}
}

// RenderBar draws bc and saves it to r.Path.
func (r *File) RenderBar(bc BarChart) error {
	if len(bc.Values) == 0 {
		return ErrNoData
	}
	if len(bc.Labels) != len(bc.Values) {
		return fmt.Errorf("chart: %d labels for %d values", len(bc.Labels), len(bc.Values))
	}
	p := plot.New()
	p.Title.Text = bc.Title
	p.X.Label.Text = bc.XLabel
	p.Y.Label.Text = bc.YLabel

	values := make(plotter.Values, len(bc.Values))
	copy(values, bc.Values)
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.NominalX(bc.Labels...)
	if len(bc.Labels) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	p.Y.Min = 0

	if dir := filepath.Dir(r.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("chart dir: %w", err)
		}
	}
	if err := p.Save(r.Width, r.Height, r.Path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}
