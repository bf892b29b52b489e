package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/mswreport-cli/internal/pipeline"
	"github.com/KaramelBytes/mswreport-cli/internal/workbook"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// execCmd runs the root command with args and returns its stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset sticky flags that may persist Changed state across invocations
	for _, c := range []*cobra.Command{rootCmd, runCmd, profileCmd, configCmd, configShowCmd, configSetCmd} {
		resetFlags(c.Flags())
		resetFlags(c.PersistentFlags())
	}
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCLI is a helper to execute the root command with args.
func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			def := strings.Trim(fl.DefValue, "[]")
			var vals []string
			if def != "" {
				vals = strings.Split(def, ",")
			}
			_ = sv.Replace(vals)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	})
}

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := "country_level_data"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]interface{}{
		{"country_name", "iso3c", "region_id", "waste_treatment_recycling_percent", "MSW_per_capita (kg/year)", "population_population_number_of_people"},
		{"Alpha", "AAA", "ECS", 45, 600, 1000},
		{"Bravo", "BBB", "ECS", "n/a", 700, 2000},
		{"Charlie", "CCC", "SSF", 10, 550, 3000},
		{"Delta", "DDD", "SSF", 30, 200, 4000},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(dir, "Country_data_project.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	return path
}

func TestCLI_RunWithoutChart(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	in := writeWorkbook(t, home)
	outPath := filepath.Join(home, "clean.xlsx")
	summary := filepath.Join(home, "run.yaml")

	out := runCLI(t, "run", "-i", in, "-o", outPath, "--no-chart", "--summary", summary, "--top", "2")

	for _, want := range []string{pipeline.TitleTop, pipeline.TitleProblems, "Charlie", "✓ Exported 4 rows to " + outPath} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Wrote chart") {
		t.Fatalf("chart should be skipped:\n%s", out)
	}
	tb, err := workbook.Load(outPath, "Sheet1")
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if tb.Len() != 4 || tb.Index("recycling_level") < 0 || tb.Index("waste_per_1000_people") < 0 {
		t.Fatalf("unexpected export: %v rows, columns %v", tb.Len(), tb.Columns())
	}

	b, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var s pipeline.Summary
	if err := yaml.Unmarshal(b, &s); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if s.Rows != 4 || s.ChartRendered || len(s.Problems) != 1 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestCLI_RunRendersChart(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	in := writeWorkbook(t, home)
	chartPath := filepath.Join(home, "charts", "regions.png")

	out := runCLI(t, "run", "-i", in, "-o", filepath.Join(home, "clean.xlsx"), "--chart", chartPath)
	if !strings.Contains(out, "✓ Wrote chart to "+chartPath) {
		t.Fatalf("output missing chart line:\n%s", out)
	}
	if fi, err := os.Stat(chartPath); err != nil || fi.Size() == 0 {
		t.Fatalf("chart not written: %v", err)
	}
}

func TestCLI_RunMissingInputFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execCmd(t, "run", "-i", filepath.Join(home, "absent.xlsx"), "--no-chart")
	if err == nil {
		t.Fatalf("expected error for missing workbook")
	}
	var le *pipeline.LoadError
	if !errors.As(err, &le) || !errors.Is(err, workbook.ErrFileNotFound) {
		t.Fatalf("err = %v, want LoadError wrapping ErrFileNotFound", err)
	}
	if out != "" {
		t.Fatalf("nothing should be printed before load:\n%s", out)
	}
}

func TestCLI_ConfigSetShowAndRenames(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	runCLI(t, "config", "set", "top_n", "3")
	runCLI(t, "config", "set", "renames.region_id", "region")
	out := runCLI(t, "config", "show")
	for _, want := range []string{"top_n: 3", "sheet_name: country_level_data", "region_id -> region"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(home, ".mswreport", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if _, err := execCmd(t, "config", "set", "log_level", "loud"); err == nil {
		t.Fatalf("expected invalid log_level to fail")
	}
}

func TestCLI_ProfileMarkdownAndJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	in := writeWorkbook(t, home)

	md := runCLI(t, "profile", in, "--correlations")
	for _, want := range []string{"[SCHEMA]", "- waste_treatment_recycling_percent: numeric", "region_id=ECS (n=2)", "[CORRELATIONS]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("profile missing %q:\n%s", want, md)
		}
	}

	jsonPath := filepath.Join(home, "profile.json")
	out := runCLI(t, "profile", in, "--json", "-o", jsonPath)
	if !strings.Contains(out, "✓ Wrote profile to "+jsonPath) {
		t.Fatalf("unexpected output: %s", out)
	}
	b, err := os.ReadFile(jsonPath)
	if err != nil || !strings.Contains(string(b), `"Kind": "numeric"`) {
		t.Fatalf("json profile = %s (err %v)", b, err)
	}
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json", false)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
	buf.Reset()
	newLogger(&buf, "error", "text", true).Debug("forced")
	if !strings.Contains(buf.String(), "msg=forced") {
		t.Fatalf("debug flag should force debug level: %s", buf.String())
	}
}
