package cmd

import (
	"fmt"
	"path/filepath"

	"mysql-db-export/internal/confirmation"

	"github.com/spf13/cobra"
)

var (
	prunePath string
	pruneYes  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete export artifacts from the output directory",
	Long: `Delete every export artifact (*.sql*) from the output directory.
Other files are left alone. The files are listed and confirmed first
unless --yes is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return err
		}
		p := newPrinter(cmd.OutOrStdout())

		artifacts, err := manager.Artifacts(prunePath)
		if err != nil {
			p.Error("%v", err)
			return err
		}
		if len(artifacts) == 0 {
			p.Info("No export artifacts to remove")
			return nil
		}

		names := make([]string, len(artifacts))
		for i, path := range artifacts {
			names[i] = filepath.Base(path)
		}
		confirmer := confirmation.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), p.Colors())
		ok, err := confirmer.Confirm(cmd.Context(), fmt.Sprintf("Delete %d export artifact(s)?", len(artifacts)), names, pruneYes)
		if err != nil {
			return err
		}
		if !ok {
			p.Info("Nothing deleted")
			return nil
		}

		removed, err := manager.Prune(prunePath)
		if err != nil {
			p.Error("%v", err)
			return err
		}
		p.Success("Removed %d export artifact(s)", removed)
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&prunePath, "path", "", "directory to prune (default is the configured output path)")
	pruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false, "delete without asking")
}
