package analysis

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// Options controls profiling of a loaded sheet.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric means for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Workers bounds concurrent column summaries; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindText        = "text"
	KindEmpty       = "empty"
)

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name       string
	Rows       int
	Processed  int
	Duplicates int
	Cols       []ColumnSummary
	Samples    [][]string
	Warnings   []string
	Groups     []GroupResult
	Corr       []PairCorr
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Median float64
	// Non-numeric cells in a numeric column; they load as Missing in metrics.
	Unparsed int
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	N    int
	R    float64
}

// Profile summarizes every column of t. Columns are summarized concurrently;
// the report is identical to a sequential pass.
func Profile(ctx context.Context, name string, t *table.Table, opt Options) (*Report, error) {
	rep := &Report{Name: name, Rows: t.Len()}
	work := t
	if opt.MaxRows > 0 && t.Len() > opt.MaxRows {
		work = t.Head(opt.MaxRows)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, t.Len()))
	}
	rep.Processed = work.Len()
	cols := work.Columns()

	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < work.Len() && i < sampleRows; i++ {
		row := make([]string, len(cols))
		for j, v := range work.Row(i) {
			if !v.IsMissing() {
				row[j] = v.String()
			}
		}
		rep.Samples = append(rep.Samples, row)
	}

	rep.Cols = make([]ColumnSummary, len(cols))
	nums := make([][]float64, len(cols)) // per column, NaN where not numeric
	g, gctx := errgroup.WithContext(ctx)
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for j, c := range cols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vals, _ := work.Column(c)
			rep.Cols[j], nums[j] = summarize(c, vals, opt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if dups := duplicateRows(work); dups > 0 {
		rep.Duplicates = dups
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d duplicate rows", dups))
	}
	for _, c := range rep.Cols {
		if c.Kind == KindNumeric && c.Unparsed > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %d non-numeric values treated as missing", c.Name, c.Unparsed))
		}
	}

	var numCols []int
	for j, c := range rep.Cols {
		if c.Kind == KindNumeric {
			numCols = append(numCols, j)
		}
	}
	if len(opt.GroupBy) > 0 {
		groups, missing := groupMeans(work, opt.GroupBy, numCols, nums)
		for _, m := range missing {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column not found: %s", m))
		}
		rep.Groups = groups
	}
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = correlations(cols, numCols, nums)
	}
	return rep, nil
}

// summarize builds one column summary and returns its numeric stream, with
// NaN marking rows that hold no number.
func summarize(name string, vals []table.Value, opt Options) (ColumnSummary, []float64) {
	s := ColumnSummary{Name: name}
	stream := make([]float64, len(vals))
	// Welford accumulators
	var n int
	var mean, m2 float64
	min, max := math.Inf(1), math.Inf(-1)

	var txtCnt int
	var exText []string
	var numericSet []float64
	cats := map[string]int{}
	for i, v := range vals {
		stream[i] = math.NaN()
		if v.IsMissing() {
			s.Missing++
			continue
		}
		s.NonNull++
		if x, ok := table.ToNumber(v).Float(); ok {
			stream[i] = x
			numericSet = append(numericSet, x)
			// Welford update
			n++
			if x < min {
				min = x
			}
			if x > max {
				max = x
			}
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
			continue
		}
		txt := strings.TrimSpace(v.String())
		txtCnt++
		if len(cats) <= 10000 && len(txt) <= 64 {
			cats[txt]++
		}
		if len(exText) < 3 {
			exText = append(exText, txt)
		}
	}

	switch {
	case s.NonNull == 0:
		s.Kind = KindEmpty
	case n > 0 && n >= txtCnt:
		s.Kind = KindNumeric
		s.Min, s.Max, s.Mean = min, max, mean
		if n > 1 {
			s.Std = math.Sqrt(m2 / float64(n-1))
		}
		s.Unparsed = txtCnt
		median, mad := medianMAD(numericSet)
		s.Median = median
		if opt.Outliers && len(numericSet) >= 8 {
			thr := opt.OutlierThreshold
			if thr <= 0 {
				thr = 3.5
			}
			s.OutlierThreshold = thr
			if mad > 0 {
				for _, x := range numericSet {
					az := math.Abs(0.6745 * (x - median) / mad)
					if az > thr {
						s.OutliersCount++
					}
					if az > s.OutliersMaxAbsZ {
						s.OutliersMaxAbsZ = az
					}
				}
			}
		}
	case len(cats) > 0:
		s.Kind = KindCategorical
		tops := make([]CategoryCount, 0, len(cats))
		for k, v := range cats {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		s.TopValues = tops
		s.Unique = len(cats)
	default:
		s.Kind = KindText
		s.ExampleTexts = exText
	}
	return s, stream
}

// duplicateRows counts rows whose every cell repeats an earlier row.
func duplicateRows(t *table.Table) int {
	seen := make(map[uint64]struct{}, t.Len())
	var b strings.Builder
	dups := 0
	for i := 0; i < t.Len(); i++ {
		b.Reset()
		for _, v := range t.Row(i) {
			b.WriteByte(byte('0' + v.Kind()))
			b.WriteString(v.String())
			b.WriteByte(0x1f)
		}
		h := xxh3.HashString(b.String())
		if _, ok := seen[h]; ok {
			dups++
			continue
		}
		seen[h] = struct{}{}
	}
	return dups
}

func groupMeans(t *table.Table, by []string, numCols []int, nums [][]float64) ([]GroupResult, []string) {
	var idx []int
	var missing []string
	for _, name := range by {
		j := t.Index(strings.TrimSpace(name))
		if j < 0 {
			missing = append(missing, name)
			continue
		}
		idx = append(idx, j)
	}
	if len(idx) == 0 {
		return nil, missing
	}
	cols := t.Columns()

	type gAcc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	groups := map[string]*gAcc{}
	for i := 0; i < t.Len(); i++ {
		parts := make([]string, 0, len(idx))
		for _, j := range idx {
			parts = append(parts, fmt.Sprintf("%s=%s", cols[j], safeVal(t.At(i, j).String())))
		}
		key := strings.Join(parts, " | ")
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = ga
		}
		ga.size++
		for _, j := range numCols {
			x := nums[j][i]
			if math.IsNaN(x) {
				continue
			}
			ga.sum[j] += x
			ga.cnt[j]++
			if m, ok := ga.min[j]; !ok || x < m {
				ga.min[j] = x
			}
			if m, ok := ga.max[j]; !ok || x > m {
				ga.max[j] = x
			}
		}
	}

	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, j := range numCols {
			if ga.cnt[j] == 0 {
				continue
			}
			gr.Metrics[cols[j]] = NumSummary{Count: ga.cnt[j], Min: ga.min[j], Max: ga.max[j], Mean: ga.sum[j] / float64(ga.cnt[j])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, missing
}

// correlations returns the strongest Pearson pairs among numeric columns,
// each computed over rows where both columns hold a number.
func correlations(cols []string, numCols []int, nums [][]float64) []PairCorr {
	var pairs []PairCorr
	for a := 0; a < len(numCols); a++ {
		for b := a + 1; b < len(numCols); b++ {
			xs, ys := nums[numCols[a]], nums[numCols[b]]
			var n, sx, sy, sxx, syy, sxy float64
			for i := range xs {
				x, y := xs[i], ys[i]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				n++
				sx += x
				sy += y
				sxx += x * x
				syy += y * y
				sxy += x * y
			}
			if n < 2 {
				continue
			}
			denom := math.Sqrt((n*sxx - sx*sx) * (n*syy - sy*sy))
			if denom == 0 || math.IsNaN(denom) {
				continue
			}
			r := (n*sxy - sx*sy) / denom
			r = math.Max(-1, math.Min(1, r))
			pairs = append(pairs, PairCorr{A: cols[numCols[a]], B: cols[numCols[b]], N: int(n), R: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > 10 {
		pairs = pairs[:10]
	}
	return pairs
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
