package cmd

import (
	"fmt"
	"sort"

	"mysql-db-export/internal/application"
	"mysql-db-export/internal/config"
	"mysql-db-export/internal/display"

	"github.com/spf13/cobra"
)

var profilesDetailed bool

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the export profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager(cmd)
		if err != nil {
			return err
		}
		p := newPrinter(cmd.OutOrStdout())
		if profilesDetailed {
			printProfileDetails(p, manager.ProfileDetails())
			return nil
		}
		printProfileTable(p, manager.Profiles())
		return nil
	},
}

func init() {
	profilesCmd.Flags().BoolVarP(&profilesDetailed, "detailed", "d", false, "show the tables and rules of every profile")
}

func printProfileTable(p *display.Printer, profiles *config.ProfileManager) {
	table := display.NewTable(p.Colors(), "Profile", "Description", "Features")
	for _, summary := range profiles.WithDescriptions() {
		table.AddRow(summary.Name, summary.Description, summary.Features())
	}
	p.Table(table)
}

func printProfileDetails(p *display.Printer, details []application.ProfileDetail) {
	for i, detail := range details {
		if i > 0 {
			p.Println()
		}
		p.Header(detail.Name)
		description := detail.Profile.Description
		if description == "" {
			description = "No description"
		}
		p.KeyValue([][2]string{{"Description", description}})
		p.List("Excluded", detail.Profile.Exclude)
		p.List("Structure only", detail.Profile.StructureOnly)
		p.List("Include only", detail.Profile.IncludeOnly)
		if detail.Profile.HasAnonymization() {
			p.List("Anonymization", anonymizationLines(detail.Profile))
		}
	}
}

func anonymizationLines(profile config.Profile) []string {
	tableNames := make([]string, 0, len(profile.Anonymize))
	for table := range profile.Anonymize {
		tableNames = append(tableNames, table)
	}
	sort.Strings(tableNames)

	var lines []string
	for _, table := range tableNames {
		columns := profile.Anonymize[table]
		names := make([]string, 0, len(columns))
		for column := range columns {
			names = append(names, column)
		}
		sort.Strings(names)
		for _, column := range names {
			lines = append(lines, fmt.Sprintf("%s.%s: %s", table, column, application.DescribeRule(columns[column])))
		}
	}
	return lines
}
