package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mysql-db-export/internal/application"
	"mysql-db-export/internal/config"
	"mysql-db-export/internal/display"
	"mysql-db-export/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Global flag variables
var (
	verbose   bool
	quiet     bool
	logFile   string
	logFormat string
	noColor   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "db-export",
	Short: "Export MySQL databases with profiles and anonymization",
	Long: `db-export produces consistent, size-bounded and optionally anonymized
logical backups of a MySQL database.

Named profiles decide which tables are skipped, which keep only their
structure and which columns are rewritten before they leave the server.

Examples:
  # Export with the default profile
  db-export export

  # Anonymized export of a named connection, uploaded after writing
  db-export export --profile=anonymized --connection=staging --upload

  # See what an export would contain
  db-export export --profile=clean --dry-run --format=json

  # Check that mysqldump is installed
  db-export setup`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.FileName+".yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")

	rootCmd.AddCommand(exportCmd, estimateCmd, profilesCmd, pruneCmd, setupCmd, configCmd, versionCmd)
}

// newLoader creates the config loader with the persistent flags bound
func newLoader(cmd *cobra.Command) *config.Loader {
	loader := config.NewLoader(cfgFile)
	bindFlags(loader.Viper(), cmd, map[string]string{
		"logging.file":   "log-file",
		"logging.format": "log-format",
	})
	return loader
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// loadConfig reads and validates the configuration
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := newLoader(cmd)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if verbose && loader.ConfigFileUsed() != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", loader.ConfigFileUsed())
	}
	return cfg, nil
}

// newLogger builds the logger from the configuration and global flags
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	level := logging.LogLevel(cfg.Logging.Level)
	switch {
	case quiet:
		level = logging.LogLevelQuiet
	case verbose:
		level = logging.LogLevelVerbose
	case level == "":
		level = logging.LogLevelNormal
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Output:  cmd.ErrOrStderr(),
		Format:  cfg.Logging.Format,
		LogFile: cfg.Logging.File,
	})
}

// newManager loads the configuration and builds the application manager
func newManager(cmd *cobra.Command) (*application.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return application.NewManager(cfg, logger), nil
}

// newPrinter builds the console printer honoring --quiet and --no-color
func newPrinter(out io.Writer) *display.Printer {
	colors := display.NewColorSystem(display.ThemeForTerminal(), !noColor)
	p := display.NewPrinter(out, colors)
	p.SetQuiet(quiet)
	return p
}
