package cmd

import (
	"os"
	"path/filepath"

	"mysql-db-export/internal/config"

	"github.com/spf13/cobra"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with every option set to its default, the
built-in profiles and a sample connection.

Examples:
  # Write ~/.db-export.yaml
  db-export config init

  # Write to a custom location, replacing an existing file
  db-export config init --path=./db-export.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, config.FileName+".yaml")
		}

		p := newPrinter(cmd.OutOrStdout())
		if err := config.WriteDefault(path, configInitForce); err != nil {
			p.Error("%v", err)
			return err
		}
		p.Success("Configuration written to %s", path)
		p.Info("Store passwords in %s_CONNECTIONS_<NAME>_PASSWORD instead of the file", config.EnvPrefix)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "file to write (default is $HOME/"+config.FileName+".yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
