// Package report prints the derived views as plain text tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/mswreport-cli/internal/metrics"
	"github.com/KaramelBytes/mswreport-cli/internal/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Printer writes report sections to an output stream.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// Table prints t under title: header row, then one line per row, without an
// index column. Cells are right-aligned and Missing shows as NaN.
func (p *Printer) Table(title string, t *table.Table) {
	p.title(title)
	cols := t.Columns()
	if t.Len() == 0 {
		_, _ = fmt.Fprintf(p.w, "(0 rows; columns: %v)\n\n", cols)
		return
	}
	tw := p.writer(len(cols))
	header := make(prettytable.Row, len(cols))
	for j, c := range cols {
		header[j] = c
	}
	tw.AppendHeader(header)
	for i := 0; i < t.Len(); i++ {
		row := make(prettytable.Row, len(cols))
		for j := range cols {
			row[j] = t.At(i, j).String()
		}
		tw.AppendRow(row)
	}
	tw.Render()
	_, _ = fmt.Fprintln(p.w)
}

// LevelCounts prints a level histogram, one bucket per line.
func (p *Printer) LevelCounts(title string, column string, counts []metrics.LevelCount) {
	p.title(title)
	tw := p.writer(2)
	tw.AppendHeader(prettytable.Row{column, "count"})
	for _, lc := range counts {
		tw.AppendRow(prettytable.Row{lc.Label, strconv.Itoa(lc.Count)})
	}
	tw.Render()
	_, _ = fmt.Fprintln(p.w)
}

// RegionAverages prints the per-region mean recycling rate.
func (p *Printer) RegionAverages(title, regionCol, valueCol string, avgs []metrics.RegionAverage) {
	p.title(title)
	if len(avgs) == 0 {
		_, _ = fmt.Fprintln(p.w, "(0 rows)")
		_, _ = fmt.Fprintln(p.w)
		return
	}
	tw := p.writer(2)
	tw.AppendHeader(prettytable.Row{regionCol, valueCol})
	for _, ra := range avgs {
		tw.AppendRow(prettytable.Row{ra.Region, ra.Mean.String()})
	}
	tw.Render()
	_, _ = fmt.Fprintln(p.w)
}

func (p *Printer) title(s string) {
	if s == "" {
		return
	}
	_, _ = fmt.Fprintln(p.w, s)
}

// writer returns a borderless go-pretty writer that keeps header case and
// right-aligns every column.
func (p *Printer) writer(ncols int) prettytable.Writer {
	tw := prettytable.NewWriter()
	tw.SetOutputMirror(p.w)
	tw.SetStyle(prettytable.StyleDefault)
	style := tw.Style()
	style.Options = prettytable.OptionsNoBordersAndSeparators
	style.Format.Header = text.FormatDefault
	style.Box.PaddingLeft = " "
	style.Box.PaddingRight = ""
	cfg := make([]prettytable.ColumnConfig, ncols)
	for j := range cfg {
		cfg[j] = prettytable.ColumnConfig{Number: j + 1, Align: text.AlignRight, AlignHeader: text.AlignRight}
	}
	tw.SetColumnConfigs(cfg)
	return tw
}
