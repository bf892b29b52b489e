package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/mswreport-cli/internal/analysis"
	"github.com/KaramelBytes/mswreport-cli/internal/colname"
	"github.com/KaramelBytes/mswreport-cli/internal/utils"
	"github.com/KaramelBytes/mswreport-cli/internal/workbook"
	"github.com/spf13/cobra"
)

var (
	proSheet      string
	proOutputPath string
	proSampleRows int
	proMaxRows    int
	proGroupBy    []string
	proCorr       bool
	proOutliers   bool
	proOutlierThr float64
	proJSON       bool
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Profile the source sheet: column kinds, missing values, stats and group means",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		path := c.InputPath
		if len(args) == 1 {
			path = args[0]
		}
		sheet := c.SheetName
		if proSheet != "" {
			sheet = proSheet
		}

		opt := analysis.DefaultOptions()
		if proSampleRows > 0 {
			opt.SampleRows = proSampleRows
		}
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = proMaxRows
		}
		opt.GroupBy = proGroupBy
		opt.Correlations = proCorr
		opt.Outliers = proOutliers
		if proOutlierThr > 0 {
			opt.OutlierThreshold = proOutlierThr
		}

		t, err := workbook.Load(path, sheet)
		if err != nil {
			return err
		}
		t = t.RenameColumns(colname.Strip)
		if m := c.RenameMap(); len(m) > 0 {
			t = t.RenameColumns(colname.Renames(m).Apply)
		}
		logger.Debug("profiling sheet", "path", path, "sheet", sheet, "rows", t.Len())

		rep, err := analysis.Profile(cmd.Context(), fmt.Sprintf("%s (sheet %s)", filepath.Base(path), sheet), t, opt)
		if err != nil {
			return err
		}
		var out []byte
		if proJSON {
			if out, err = utils.PrettyJSON(rep); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(rep.Markdown())
		}

		if proOutputPath != "" {
			if err := utils.SafeWriteFile(proOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", proOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&proSheet, "sheet", "", "sheet to profile (default: sheet_name)")
	profileCmd.Flags().StringVarP(&proOutputPath, "output", "o", "", "optional path to write the profile")
	profileCmd.Flags().IntVar(&proSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().IntVar(&proMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	profileCmd.Flags().StringSliceVar(&proGroupBy, "group-by", []string{"region_id"}, "comma-separated column names to group by")
	profileCmd.Flags().BoolVar(&proCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	profileCmd.Flags().BoolVar(&proOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&proOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().BoolVar(&proJSON, "json", false, "emit the profile as JSON instead of Markdown")
}
