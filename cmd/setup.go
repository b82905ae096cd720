package cmd

import (
	"errors"

	"mysql-db-export/internal/application"
	"mysql-db-export/internal/config"
	"mysql-db-export/internal/display"

	"github.com/spf13/cobra"
)

var setupFormat string

var errSetupFailed = errors.New("setup check failed")

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check that this machine can run exports",
	Long: `Validate the configuration, locate the mysqldump binary, check that the
output directory is writable and that publishing is fully configured.

When mysqldump is installed outside PATH the command prints the environment
variable that selects it.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupFormat, "format", application.FormatText, "output format (text, json, yaml)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	// an invalid configuration is reported, not fatal
	cfg, err := newLoader(cmd).Read()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	result := application.NewManager(cfg, logger).Setup(cmd.Context())

	if setupFormat != "" && setupFormat != application.FormatText {
		if err := application.RenderValue(cmd.OutOrStdout(), setupFormat, result, nil); err != nil {
			return err
		}
	} else {
		printSetup(newPrinter(cmd.OutOrStdout()), result)
	}

	if !result.Success {
		return errSetupFailed
	}
	return nil
}

func printSetup(p *display.Printer, result *config.SetupResult) {
	p.Header("Setup")

	check := func(ok bool, pass, fail string) {
		if ok {
			p.Success("%s", pass)
		} else {
			p.Error("%s", fail)
		}
	}
	check(result.ConfigValid, "Configuration is valid", "Configuration is invalid")
	check(result.BinaryFound, "mysqldump found", "mysqldump not found")
	check(result.OutputWritable, "Output directory is writable", "Output directory is not writable")
	if result.PublishReady {
		p.Success("Publishing ready")
	}

	if len(result.Binaries) > 0 {
		table := display.NewTable(p.Colors(), "Path", "Version")
		for _, binary := range result.Binaries {
			table.AddRow(binary.Path, binary.Version)
		}
		p.Table(table)
	}

	for _, msg := range result.Errors {
		p.Error("%s", msg)
	}
	for _, msg := range result.Warnings {
		p.Warning("%s", msg)
	}
	p.List("Recommended fixes", result.RecommendedFixes)
}
