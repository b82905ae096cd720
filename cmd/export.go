package cmd

import (
	"fmt"
	"time"

	"mysql-db-export/internal/application"
	"mysql-db-export/internal/display"
	"mysql-db-export/internal/estimate"
	"mysql-db-export/internal/export"

	"github.com/spf13/cobra"
)

// Export flag variables
var (
	exportReq    application.ExportRequest
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database to a SQL artifact",
	Long: `Export the database to a single SQL file, optionally compressed.

Tables are selected by the profile and the command line: exclusions are
added together, structure-only tables keep their DDL but no rows, and
tables with anonymization rules are rewritten row by row.

Examples:
  # Export with the default profile
  db-export export

  # Skip audit tables and keep only the structure of logs
  db-export export --exclude='audit_*' --structure-only=logs

  # Uncompressed export to a custom file
  db-export export --path=/tmp --filename=snapshot.sql --no-compress`,
	RunE: runExport,
}

func init() {
	flags := exportCmd.Flags()
	addSelectionFlags(exportCmd, &exportReq)
	flags.StringVar(&exportReq.Filename, "filename", "", "output file name (default <database>_<timestamp>_<profile>.sql)")
	flags.BoolVar(&exportReq.NoViews, "no-views", false, "skip view definitions")
	flags.BoolVar(&exportReq.NoFKWrapper, "no-fk-wrapper", false, "do not disable foreign key checks around the dump")
	flags.BoolVar(&exportReq.DryRun, "dry-run", false, "show what would be exported without writing")
	flags.BoolVar(&exportReq.Force, "force", false, "export even when the disk space check fails")
	flags.BoolVar(&exportReq.Upload, "upload", false, "publish the artifact to the configured provider")
	flags.StringVar(&exportFormat, "format", application.FormatText, "dry run output format (text, json, yaml)")
}

// addSelectionFlags registers the flags shared by export and estimate
func addSelectionFlags(cmd *cobra.Command, req *application.ExportRequest) {
	flags := cmd.Flags()
	flags.StringVarP(&req.Profile, "profile", "p", "", "export profile")
	flags.StringVarP(&req.Connection, "connection", "c", "", "named connection from the configuration")
	flags.StringVar(&req.Path, "path", "", "output directory")
	flags.BoolVar(&req.NoCompress, "no-compress", false, "write plain SQL")
	flags.StringVar(&req.Compression, "compression", "", "compression algorithm (gzip, zstd, lz4, none)")
	flags.StringSliceVar(&req.Exclude, "exclude", nil, "tables to skip (wildcards allowed)")
	flags.StringSliceVar(&req.StructureOnly, "structure-only", nil, "tables exported without rows")
	flags.StringSliceVar(&req.IncludeData, "include-data", nil, "tables whose rows are kept despite structure-only")
	flags.StringSliceVar(&req.IncludeOnly, "include-only", nil, "restrict the export to these tables")
}

func runExport(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout())

	if exportReq.DryRun {
		report, err := manager.DryRun(cmd.Context(), exportReq)
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), exportFormat)
	}

	result, err := manager.Export(cmd.Context(), exportReq)
	if result != nil && result.Success {
		printResult(p, result)
	}
	if err != nil {
		p.Error("%v", err)
		return err
	}
	return nil
}

func printResult(p *display.Printer, result *export.ExportResult) {
	p.Success("Export completed: %s", result.OutputPath)
	pairs := [][2]string{
		{"Size", estimate.FormatBytes(result.FileSize)},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
		{"Tables", fmt.Sprintf("%d", len(result.Tables))},
		{"Anonymized", fmt.Sprintf("%d", len(result.AnonymizedTables))},
		{"Run ID", result.RunID},
	}
	if result.Checksum != "" {
		pairs = append(pairs, [2]string{"Checksum", result.Checksum})
	}
	if result.Location != "" {
		pairs = append(pairs, [2]string{"Published", result.Location})
	}
	p.KeyValue(pairs)
}
