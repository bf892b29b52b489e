package pipeline

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/mswreport-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

// Summary is the machine-readable record of one run.
type Summary struct {
	RunID         string          `yaml:"run_id"`
	StartedAt     time.Time       `yaml:"started_at"`
	FinishedAt    time.Time       `yaml:"finished_at"`
	Input         string          `yaml:"input"`
	Sheet         string          `yaml:"sheet"`
	Output        string          `yaml:"output"`
	Rows          int             `yaml:"rows"`
	Columns       []string        `yaml:"columns"`
	ChartRendered bool            `yaml:"chart_rendered"`
	Levels        map[string]int  `yaml:"recycling_levels"`
	Problems      []string        `yaml:"problem_countries"`
	Regions       []RegionSummary `yaml:"regions"`
}

// RegionSummary is one region's mean. A nil Mean means no country in the
// region reported a recycling rate.
type RegionSummary struct {
	Region string   `yaml:"region"`
	Mean   *float64 `yaml:"mean"`
	Count  int      `yaml:"count"`
}

// NewSummary builds the summary of a completed run.
func NewSummary(res *Result, cfg Config) Summary {
	s := Summary{
		RunID:         res.RunID,
		StartedAt:     res.StartedAt.UTC(),
		FinishedAt:    res.FinishedAt.UTC(),
		Input:         cfg.InputPath,
		Sheet:         cfg.SheetName,
		Output:        res.OutputPath,
		Rows:          res.Rows,
		Columns:       res.Columns,
		ChartRendered: res.ChartRendered,
		Levels:        make(map[string]int, len(res.Levels)),
	}
	for _, lc := range res.Levels {
		s.Levels[lc.Label] = lc.Count
	}
	if res.Problems != nil {
		if vals, err := res.Problems.Column(cfg.Columns.Country); err == nil {
			for _, v := range vals {
				s.Problems = append(s.Problems, v.String())
			}
		}
	}
	for _, ra := range res.Regions {
		rs := RegionSummary{Region: ra.Region, Count: ra.Count}
		if m, ok := ra.Mean.Float(); ok {
			rs.Mean = &m
		}
		s.Regions = append(s.Regions, rs)
	}
	return s
}

// WriteSummary writes the run summary as YAML to path.
func WriteSummary(path string, res *Result, cfg Config) error {
	b, err := yaml.Marshal(NewSummary(res, cfg))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
