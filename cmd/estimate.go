package cmd

import (
	"fmt"

	"mysql-db-export/internal/application"
	"mysql-db-export/internal/estimate"

	"github.com/spf13/cobra"
)

var (
	estimateReq       application.ExportRequest
	estimateBreakdown bool
	estimateFormat    string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the size of an export",
	Long: `Estimate the size of an export from table metadata and check that the
output directory has room for it.

Examples:
  db-export estimate --profile=clean
  db-export estimate --breakdown --format=yaml`,
	RunE: runEstimate,
}

func init() {
	addSelectionFlags(estimateCmd, &estimateReq)
	estimateCmd.Flags().BoolVar(&estimateBreakdown, "breakdown", false, "show the detailed size report")
	estimateCmd.Flags().StringVar(&estimateFormat, "format", application.FormatText, "output format (text, json, yaml)")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if estimateBreakdown {
		breakdown, err := manager.Breakdown(cmd.Context(), estimateReq)
		if err != nil {
			return err
		}
		return application.RenderValue(out, estimateFormat, breakdown, breakdown.FormatReport)
	}

	est, err := manager.Estimate(cmd.Context(), estimateReq)
	if err != nil {
		return err
	}
	return application.RenderValue(out, estimateFormat, est, func() string {
		return estimateText(est)
	})
}

func estimateText(est estimate.SizeEstimate) string {
	text := fmt.Sprintf("Tables:          %d\n", est.TableCount)
	text += fmt.Sprintf("Rows:            %s\n", estimate.FormatCount(est.RowCount))
	text += fmt.Sprintf("Database size:   %s\n", est.HumanTotal())
	text += fmt.Sprintf("Export size:     %s\n", est.HumanExport())
	if est.Compressed {
		text += fmt.Sprintf("Compressed size: %s\n", est.HumanCompressed())
	}
	if est.DiskSpace.Sufficient {
		text += fmt.Sprintf("Disk space:      ok (%.2f MB available)\n", est.DiskSpace.AvailableMB())
	} else {
		text += fmt.Sprintf("Disk space:      %s\n", est.DiskSpace.Warning)
	}
	return text
}
