// Package pipeline runs the country waste report from source workbook to
// cleaned export.
//
// Stages run in a fixed order and hand each other immutable table
// snapshots: load, strip names, rename, derive metrics, report, chart,
// export. Only load and export failures stop a run; a missing or failing
// chart renderer is logged and skipped.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/mswreport-cli/internal/chart"
	"github.com/KaramelBytes/mswreport-cli/internal/colname"
	"github.com/KaramelBytes/mswreport-cli/internal/metrics"
	"github.com/KaramelBytes/mswreport-cli/internal/report"
	"github.com/KaramelBytes/mswreport-cli/internal/table"
	"github.com/KaramelBytes/mswreport-cli/internal/workbook"
	"github.com/google/uuid"
)

// Config controls one run.
type Config struct {
	InputPath   string
	SheetName   string
	OutputPath  string
	OutputSheet string
	// SummaryPath, when set, receives a YAML run summary.
	SummaryPath string

	Columns    metrics.Columns
	Renames    colname.Renames
	TopN       int
	Preview    int
	Thresholds metrics.Thresholds
}

// DefaultConfig returns the stock report settings.
func DefaultConfig() Config {
	return Config{
		InputPath:   "Country_data_project.xlsx",
		SheetName:   "country_level_data",
		OutputPath:  "Country_data_cleaned.xlsx",
		OutputSheet: "Sheet1",
		Columns:     metrics.DefaultColumns(),
		TopN:        10,
		Preview:     5,
		Thresholds:  metrics.DefaultThresholds(),
	}
}

// Deps are the run's side channels.
type Deps struct {
	// Out receives the report tables.
	Out io.Writer
	// Logger receives progress and warnings. Nil discards them.
	Logger *slog.Logger
	// Renderer draws the region chart. Nil skips the chart.
	Renderer chart.Renderer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a completed run.
type Result struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Rows          int
	Columns       []string
	Top           *table.Table
	Problems      *table.Table
	Levels        []metrics.LevelCount
	Regions       []metrics.RegionAverage
	ChartRendered bool
	OutputPath    string
}

// Section titles, in print order.
const (
	TitleTop         = "Top countries by recycling rate"
	TitleTopISO      = "Top countries by recycling rate (with ISO3)"
	TitleWaste       = "Waste per 1000 people (preview)"
	TitleLevels      = "Recycling level counts"
	TitleProblems    = "Problem countries (high waste, low recycling)"
	TitleRegions     = "Average recycling rate by region"
	TitleExportedTop = "Top countries by recycling rate (exported data)"
)

// Run executes every stage in order. On an ExportError the returned Result
// still carries the metrics that were reported.
func Run(ctx context.Context, cfg Config, deps Deps) (*Result, error) {
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	res := &Result{RunID: uuid.NewString(), StartedAt: deps.Now(), OutputPath: cfg.OutputPath}
	log = log.With(slog.String("run_id", res.RunID))
	out := report.NewPrinter(deps.Out)
	c := cfg.Columns

	// Loader + normalizer
	src, err := workbook.Load(cfg.InputPath, cfg.SheetName)
	if err != nil {
		return nil, &LoadError{Path: cfg.InputPath, Sheet: cfg.SheetName, Err: err}
	}
	log.Info("loaded workbook",
		slog.String("path", cfg.InputPath),
		slog.String("sheet", cfg.SheetName),
		slog.Int("rows", src.Len()),
		slog.Int("columns", len(src.Columns())))
	t := src.RenameColumns(colname.Strip)
	if len(cfg.Renames) > 0 {
		for _, from := range cfg.Renames.Missing(t.Columns()) {
			log.Warn("rename source column not found", slog.String("column", from))
		}
		t = t.RenameColumns(cfg.Renames.Apply)
	}
	res.Rows = t.Len()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Metric engine + reporter
	top, err := metrics.TopRecyclers(t, c, cfg.TopN, false)
	if err != nil {
		return nil, err
	}
	out.Table(TitleTop, top)
	topISO, err := metrics.TopRecyclers(t, c, cfg.TopN, true)
	if err != nil {
		return nil, err
	}
	out.Table(TitleTopISO, topISO)

	if t, err = metrics.WastePer1000(t, c); err != nil {
		return nil, err
	}
	preview, err := t.Select(c.Country, c.WastePer1000)
	if err != nil {
		return nil, err
	}
	out.Table(TitleWaste, preview.Head(cfg.Preview))

	if t, err = metrics.RecyclingLevels(t, c); err != nil {
		return nil, err
	}
	if res.Levels, err = metrics.LevelCounts(t, c); err != nil {
		return nil, err
	}
	out.LevelCounts(TitleLevels, c.Level, res.Levels)

	if res.Problems, err = metrics.ProblemCountries(t, c, cfg.Thresholds); err != nil {
		return nil, err
	}
	out.Table(TitleProblems, res.Problems)
	log.Debug("problem countries", slog.Int("count", res.Problems.Len()))

	if res.Regions, err = metrics.RegionAverages(t, c); err != nil {
		return nil, err
	}
	out.RegionAverages(TitleRegions, c.Region, c.Recycling, res.Regions)
	res.ChartRendered = renderChart(log, deps.Renderer, res.Regions)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Exporter
	nc := c.Normalized()
	exported := t.RenameColumns(colname.Strict)
	if exported, err = exported.Coerce(nc.Recycling); err != nil {
		return res, &ExportError{Path: cfg.OutputPath, Err: err}
	}
	if res.Top, err = metrics.TopRecyclers(exported, nc, cfg.TopN, false); err != nil {
		return res, &ExportError{Path: cfg.OutputPath, Err: err}
	}
	out.Table(TitleExportedTop, res.Top)
	res.Columns = exported.Columns()

	if err := workbook.Save(cfg.OutputPath, cfg.OutputSheet, exported); err != nil {
		return res, &ExportError{Path: cfg.OutputPath, Err: err}
	}
	res.FinishedAt = deps.Now()
	log.Info("exported workbook",
		slog.String("path", cfg.OutputPath),
		slog.Int("rows", exported.Len()),
		slog.Int("columns", len(res.Columns)),
		slog.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))

	if cfg.SummaryPath != "" {
		if err := WriteSummary(cfg.SummaryPath, res, cfg); err != nil {
			log.Warn("run summary not written", slog.String("path", cfg.SummaryPath), slog.Any("error", err))
		}
	}
	return res, nil
}

// renderChart draws the region chart when a renderer is available. Any
// failure is logged and reported as false.
func renderChart(log *slog.Logger, r chart.Renderer, regions []metrics.RegionAverage) (ok bool) {
	if r == nil {
		log.Info("chart skipped: no renderer available")
		return false
	}
	defer func() {
		if p := recover(); p != nil {
			log.Warn("chart renderer panicked", slog.String("panic", fmt.Sprint(p)))
			ok = false
		}
	}()
	if err := r.RenderBar(chart.RegionBars(regions)); err != nil {
		log.Warn("chart not rendered", slog.Any("error", err))
		return false
	}
	log.Info("chart rendered")
	return true
}
