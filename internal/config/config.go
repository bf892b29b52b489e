package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	InputPath   string `mapstructure:"input_path" yaml:"input_path" validate:"required"`
	SheetName   string `mapstructure:"sheet_name" yaml:"sheet_name" validate:"required"`
	OutputPath  string `mapstructure:"output_path" yaml:"output_path" validate:"required"`
	OutputSheet string `mapstructure:"output_sheet" yaml:"output_sheet"`
	SummaryPath string `mapstructure:"summary_path" yaml:"summary_path"`

	// Chart rendering; disabled or failing charts never stop a run.
	ChartEnabled  bool    `mapstructure:"chart_enabled" yaml:"chart_enabled"`
	ChartPath     string  `mapstructure:"chart_path" yaml:"chart_path" validate:"required_if=ChartEnabled true"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in" validate:"gt=0"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in" validate:"gt=0"`

	// Metrics
	TopN                      int      `mapstructure:"top_n" yaml:"top_n" validate:"gte=0"`
	PreviewRows               int      `mapstructure:"preview_rows" yaml:"preview_rows" validate:"gte=0"`
	ProblemMSWThreshold       float64  `mapstructure:"problem_msw_threshold" yaml:"problem_msw_threshold"`
	ProblemRecyclingThreshold float64  `mapstructure:"problem_recycling_threshold" yaml:"problem_recycling_threshold"`
	Renames                   []Rename `mapstructure:"renames" yaml:"renames,omitempty" validate:"dive"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// Rename is one explicit column rename applied after loading. Pairs are a
// list rather than a map because viper lower-cases map keys.
type Rename struct {
	From string `mapstructure:"from" yaml:"from" validate:"required"`
	To   string `mapstructure:"to" yaml:"to" validate:"required"`
}

// RenameMap returns the rename pairs keyed by source column.
func (c *Global) RenameMap() map[string]string {
	m := make(map[string]string, len(c.Renames))
	for _, r := range c.Renames {
		if r.From != "" && r.To != "" {
			m[r.From] = r.To
		}
	}
	return m
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"input_path", "sheet_name", "output_path", "output_sheet", "summary_path",
	"chart_enabled", "chart_path", "chart_width_in", "chart_height_in",
	"top_n", "preview_rows", "problem_msw_threshold", "problem_recycling_threshold",
	"log_level", "log_format",
}

// Defaults returns the built-in configuration.
func Defaults() Global {
	return Global{
		InputPath:                 "Country_data_project.xlsx",
		SheetName:                 "country_level_data",
		OutputPath:                "Country_data_cleaned.xlsx",
		OutputSheet:               "Sheet1",
		ChartEnabled:              true,
		ChartPath:                 "recycling_by_region.png",
		ChartWidthIn:              8,
		ChartHeightIn:             5,
		TopN:                      10,
		PreviewRows:               5,
		ProblemMSWThreshold:       500,
		ProblemRecyclingThreshold: 20,
		LogLevel:                  "info",
		LogFormat:                 "text",
	}
}

// Dir returns the directory holding config.yaml (~/.mswreport).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".mswreport"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.mswreport/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("MSWREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("input_path", d.InputPath)
	v.SetDefault("sheet_name", d.SheetName)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("output_sheet", d.OutputSheet)
	v.SetDefault("summary_path", "")
	v.SetDefault("chart_enabled", d.ChartEnabled)
	v.SetDefault("chart_path", d.ChartPath)
	v.SetDefault("chart_width_in", d.ChartWidthIn)
	v.SetDefault("chart_height_in", d.ChartHeightIn)
	v.SetDefault("top_n", d.TopN)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("problem_msw_threshold", d.ProblemMSWThreshold)
	v.SetDefault("problem_recycling_threshold", d.ProblemRecyclingThreshold)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	switch key {
	case "input_path":
		c.InputPath = val
	case "sheet_name":
		c.SheetName = val
	case "output_path":
		if val == "" {
			return fmt.Errorf("output_path cannot be empty")
		}
		c.OutputPath = val
	case "output_sheet":
		c.OutputSheet = val
	case "summary_path":
		c.SummaryPath = val
	case "chart_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for chart_enabled: %v", val)
		}
		c.ChartEnabled = b
	case "chart_path":
		c.ChartPath = val
	case "chart_width_in", "chart_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid size for %s: %v", key, val)
		}
		if key == "chart_width_in" {
			c.ChartWidthIn = f
		} else {
			c.ChartHeightIn = f
		}
	case "top_n", "preview_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		if key == "top_n" {
			c.TopN = i
		} else {
			c.PreviewRows = i
		}
	case "problem_msw_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for problem_msw_threshold: %w", err)
		}
		c.ProblemMSWThreshold = f
	case "problem_recycling_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for problem_recycling_threshold: %w", err)
		}
		c.ProblemRecyclingThreshold = f
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text|json)", val)
		}
	default:
		if from, ok := strings.CutPrefix(key, "renames."); ok && from != "" {
			kept := c.Renames[:0]
			for _, r := range c.Renames {
				if r.From != from {
					kept = append(kept, r)
				}
			}
			c.Renames = kept
			if val != "" {
				c.Renames = append(c.Renames, Rename{From: from, To: val})
			}
			return nil
		}
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the string form of one key, as accepted by Set.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "input_path":
		return c.InputPath, nil
	case "sheet_name":
		return c.SheetName, nil
	case "output_path":
		return c.OutputPath, nil
	case "output_sheet":
		return c.OutputSheet, nil
	case "summary_path":
		return c.SummaryPath, nil
	case "chart_enabled":
		return strconv.FormatBool(c.ChartEnabled), nil
	case "chart_path":
		return c.ChartPath, nil
	case "chart_width_in":
		return strconv.FormatFloat(c.ChartWidthIn, 'g', -1, 64), nil
	case "chart_height_in":
		return strconv.FormatFloat(c.ChartHeightIn, 'g', -1, 64), nil
	case "top_n":
		return strconv.Itoa(c.TopN), nil
	case "preview_rows":
		return strconv.Itoa(c.PreviewRows), nil
	case "problem_msw_threshold":
		return strconv.FormatFloat(c.ProblemMSWThreshold, 'g', -1, 64), nil
	case "problem_recycling_threshold":
		return strconv.FormatFloat(c.ProblemRecyclingThreshold, 'g', -1, 64), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}
