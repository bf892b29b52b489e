// Package metrics derives the recycling and waste views of the country table.
//
// Every function takes a table snapshot and returns a new table or a plain
// result; inputs are never modified. Numeric inputs are coerced first, so
// noise in a numeric column turns into Missing instead of an error.
package metrics

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/mswreport-cli/internal/colname"
	"github.com/KaramelBytes/mswreport-cli/internal/table"
)

// Columns names the columns the metrics read and write.
type Columns struct {
	Country    string
	ISO3       string
	Region     string
	Recycling  string
	MSW        string
	Population string
	// Derived columns.
	WastePer1000 string
	Level        string
}

// DefaultColumns returns the column names of the source sheet.
func DefaultColumns() Columns {
	return Columns{
		Country:      "country_name",
		ISO3:         "iso3c",
		Region:       "region_id",
		Recycling:    "waste_treatment_recycling_percent",
		MSW:          "MSW_per_capita (kg/year)",
		Population:   "population_population_number_of_people",
		WastePer1000: "Waste_per_1000_people",
		Level:        "Recycling_Level",
	}
}

// Normalized maps every name through colname.Strict, matching the table
// after the export rename.
func (c Columns) Normalized() Columns {
	return Columns{
		Country:      colname.Strict(c.Country),
		ISO3:         colname.Strict(c.ISO3),
		Region:       colname.Strict(c.Region),
		Recycling:    colname.Strict(c.Recycling),
		MSW:          colname.Strict(c.MSW),
		Population:   colname.Strict(c.Population),
		WastePer1000: colname.Strict(c.WastePer1000),
		Level:        colname.Strict(c.Level),
	}
}

// TopRecyclers returns the n rows with the highest recycling rate, largest
// first. Rows without a numeric rate are dropped; ties keep table order.
// With withISO the ISO3 code leads the output columns.
func TopRecyclers(t *table.Table, c Columns, n int, withISO bool) (*table.Table, error) {
	cols := []string{c.Country, c.Recycling}
	if withISO {
		cols = []string{c.ISO3, c.Country, c.Recycling}
	}
	ct, err := t.Coerce(c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("top recyclers: %w", err)
	}
	sel, err := ct.Select(cols...)
	if err != nil {
		return nil, fmt.Errorf("top recyclers: %w", err)
	}
	kept, err := sel.DropMissing(c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("top recyclers: %w", err)
	}
	sorted, err := kept.SortDesc(c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("top recyclers: %w", err)
	}
	return sorted.Head(n), nil
}

// WastePer1000 adds c.WastePer1000 = msw * population / 1000. The result is
// Missing whenever either input is.
func WastePer1000(t *table.Table, c Columns) (*table.Table, error) {
	ct, err := t.Coerce(c.MSW, c.Population)
	if err != nil {
		return nil, fmt.Errorf("waste per 1000: %w", err)
	}
	msw, _ := ct.Column(c.MSW)
	pop, _ := ct.Column(c.Population)
	out := make([]table.Value, ct.Len())
	for i := range out {
		m, okm := msw[i].Float()
		p, okp := pop[i].Float()
		if okm && okp {
			out[i] = table.Number(m * p / 1000)
		}
	}
	return ct.WithColumn(c.WastePer1000, out)
}

// Recycling level labels.
const (
	LevelLow    = "Low"
	LevelMedium = "Medium"
	LevelHigh   = "High"
)

// Level buckets a recycling rate: [0,20] Low, (20,40] Medium, (40,100] High.
// Missing and out-of-range rates stay Missing.
func Level(v table.Value) table.Value {
	f, ok := table.ToNumber(v).Float()
	switch {
	case !ok || f < 0 || f > 100:
		return table.Missing()
	case f <= 20:
		return table.Text(LevelLow)
	case f <= 40:
		return table.Text(LevelMedium)
	default:
		return table.Text(LevelHigh)
	}
}

// RecyclingLevels adds c.Level with the Level of every recycling rate.
func RecyclingLevels(t *table.Table, c Columns) (*table.Table, error) {
	ct, err := t.Coerce(c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("recycling levels: %w", err)
	}
	rates, _ := ct.Column(c.Recycling)
	out := make([]table.Value, len(rates))
	for i, r := range rates {
		out[i] = Level(r)
	}
	return ct.WithColumn(c.Level, out)
}

// LevelCount is one row of a level histogram. Missing is true for the
// bucket of unlabeled rows.
type LevelCount struct {
	Label   string
	Missing bool
	Count   int
}

// LevelCounts counts c.Level values, including unlabeled rows. Buckets are
// ordered by count, largest first; equal counts keep Low, Medium, High,
// Missing order. Empty buckets are omitted.
func LevelCounts(t *table.Table, c Columns) ([]LevelCount, error) {
	levels, err := t.Column(c.Level)
	if err != nil {
		return nil, fmt.Errorf("level counts: %w", err)
	}
	counts := []LevelCount{{Label: LevelLow}, {Label: LevelMedium}, {Label: LevelHigh}, {Label: "NaN", Missing: true}}
	for _, v := range levels {
		switch v.String() {
		case LevelLow:
			counts[0].Count++
		case LevelMedium:
			counts[1].Count++
		case LevelHigh:
			counts[2].Count++
		default:
			counts[3].Count++
		}
	}
	out := counts[:0]
	for _, lc := range counts {
		if lc.Count > 0 {
			out = append(out, lc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Thresholds bound the problem-country filter.
type Thresholds struct {
	MSW       float64 // kg per capita per year, exclusive lower bound
	Recycling float64 // percent, exclusive upper bound
}

// DefaultThresholds flags countries above 500 kg/year that recycle under 20%.
func DefaultThresholds() Thresholds { return Thresholds{MSW: 500, Recycling: 20} }

// ProblemCountries keeps rows with msw > th.MSW and recycling < th.Recycling,
// in table order. A Missing value never satisfies a comparison.
func ProblemCountries(t *table.Table, c Columns, th Thresholds) (*table.Table, error) {
	ct, err := t.Coerce(c.MSW, c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("problem countries: %w", err)
	}
	sel, err := ct.Select(c.Country, c.MSW, c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("problem countries: %w", err)
	}
	return sel.Filter(func(r []table.Value) bool {
		m, okm := r[1].Float()
		rec, okr := r[2].Float()
		return okm && okr && m > th.MSW && rec < th.Recycling
	}), nil
}

// RegionAverage is the mean recycling rate of one region.
type RegionAverage struct {
	Region string
	// Mean is Missing when no row in the region has a numeric rate.
	Mean table.Value
	// Count is the number of rates that went into Mean.
	Count int
}

// RegionAverages groups rows by c.Region and averages the recycling rate,
// ignoring Missing rates. Rows without a region are left out. Groups are
// sorted by mean, largest first, with Missing means last; ties keep the
// order in which regions first appear.
func RegionAverages(t *table.Table, c Columns) ([]RegionAverage, error) {
	ct, err := t.Coerce(c.Recycling)
	if err != nil {
		return nil, fmt.Errorf("region averages: %w", err)
	}
	regions, err := ct.Column(c.Region)
	if err != nil {
		return nil, fmt.Errorf("region averages: %w", err)
	}
	rates, _ := ct.Column(c.Recycling)

	type acc struct {
		sum float64
		cnt int
	}
	var order []string
	groups := map[string]*acc{}
	for i, rv := range regions {
		if rv.IsMissing() {
			continue
		}
		key := rv.String()
		g := groups[key]
		if g == nil {
			g = &acc{}
			groups[key] = g
			order = append(order, key)
		}
		if x, ok := rates[i].Float(); ok {
			g.sum += x
			g.cnt++
		}
	}

	out := make([]RegionAverage, 0, len(order))
	for _, key := range order {
		g := groups[key]
		ra := RegionAverage{Region: key, Count: g.cnt}
		if g.cnt > 0 {
			ra.Mean = table.Number(g.sum / float64(g.cnt))
		}
		out = append(out, ra)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, oka := out[i].Mean.Float()
		b, okb := out[j].Mean.Float()
		if oka && okb {
			return a > b
		}
		return oka && !okb
	})
	return out, nil
}
