package cmd

import (
	"fmt"

	"github.com/KaramelBytes/mswreport-cli/internal/chart"
	"github.com/KaramelBytes/mswreport-cli/internal/colname"
	cfgpkg "github.com/KaramelBytes/mswreport-cli/internal/config"
	"github.com/KaramelBytes/mswreport-cli/internal/metrics"
	"github.com/KaramelBytes/mswreport-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runInput       string
	runSheet       string
	runOutput      string
	runOutputSheet string
	runSummary     string
	runChartPath   string
	runNoChart     bool
	runTopN        int
	runPreview     int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Print the waste report and export the cleaned workbook",
	Long: `Run loads the source sheet, prints the top recyclers, waste per 1000 people,
recycling level counts, problem countries and region averages, renders the region
chart and writes the cleaned workbook.

Flags override values from the config file and MSWREPORT_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		f := cmd.Flags()
		if f.Changed("input") {
			c.InputPath = runInput
		}
		if f.Changed("sheet") {
			c.SheetName = runSheet
		}
		if f.Changed("output") {
			c.OutputPath = runOutput
		}
		if f.Changed("output-sheet") {
			c.OutputSheet = runOutputSheet
		}
		if f.Changed("summary") {
			c.SummaryPath = runSummary
		}
		if f.Changed("chart") {
			c.ChartPath = runChartPath
			c.ChartEnabled = true
		}
		if runNoChart {
			c.ChartEnabled = false
		}
		if f.Changed("top") {
			c.TopN = runTopN
		}
		if f.Changed("preview") {
			c.PreviewRows = runPreview
		}
		if err := c.Validate(); err != nil {
			return err
		}

		deps := pipeline.Deps{Out: cmd.OutOrStdout(), Logger: logger}
		if c.ChartEnabled {
			deps.Renderer = chart.NewFile(c.ChartPath, c.ChartWidthIn, c.ChartHeightIn)
		}
		res, err := pipeline.Run(cmd.Context(), pipelineConfig(&c), deps)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rows to %s\n", res.Rows, res.OutputPath)
		if res.ChartRendered {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote chart to %s\n", c.ChartPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "source workbook (overrides input_path)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "source sheet name (overrides sheet_name)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "cleaned workbook path (overrides output_path)")
	runCmd.Flags().StringVar(&runOutputSheet, "output-sheet", "", "sheet name in the cleaned workbook")
	runCmd.Flags().StringVar(&runSummary, "summary", "", "optional YAML run summary path")
	runCmd.Flags().StringVar(&runChartPath, "chart", "", "region chart image path (.png, .svg, .pdf)")
	runCmd.Flags().BoolVar(&runNoChart, "no-chart", false, "skip the region chart")
	runCmd.Flags().IntVar(&runTopN, "top", 10, "number of top recyclers to list")
	runCmd.Flags().IntVar(&runPreview, "preview", 5, "rows in the waste per 1000 preview")
}

// effectiveConfig returns a copy of the loaded configuration, or the
// defaults when none was loaded.
func effectiveConfig() cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	c := *cfg
	c.Renames = append([]cfgpkg.Rename(nil), cfg.Renames...)
	return c
}

func pipelineConfig(c *cfgpkg.Global) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.InputPath = c.InputPath
	pc.SheetName = c.SheetName
	pc.OutputPath = c.OutputPath
	pc.OutputSheet = c.OutputSheet
	pc.SummaryPath = c.SummaryPath
	pc.TopN = c.TopN
	pc.Preview = c.PreviewRows
	pc.Thresholds = metrics.Thresholds{MSW: c.ProblemMSWThreshold, Recycling: c.ProblemRecyclingThreshold}
	if m := c.RenameMap(); len(m) > 0 {
		pc.Renames = colname.Renames(m)
	}
	return pc
}
