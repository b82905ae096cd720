package application

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mysql-db-export/internal/estimate"
	"mysql-db-export/internal/export"
	"mysql-db-export/internal/tables"

	"gopkg.in/yaml.v3"
)

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DryRunReport describes what an export would do
type DryRunReport struct {
	Configuration    export.ExportConfig   `json:"configuration" yaml:"configuration"`
	Database         string                `json:"database" yaml:"database"`
	Tables           []tables.TableInfo    `json:"tables" yaml:"tables"`
	AnonymizedTables []string              `json:"anonymized_tables" yaml:"anonymized_tables"`
	TableCount       int                   `json:"table_count" yaml:"table_count"`
	OutputPath       string                `json:"output_path" yaml:"output_path"`
	Estimate         estimate.SizeEstimate `json:"estimate" yaml:"estimate"`
}

// Render writes the report in the given format
func (r *DryRunReport) Render(w io.Writer, format string) error {
	return RenderValue(w, format, r, r.Text)
}

// RenderValue writes v as indented JSON or YAML, or the output of text for
// the text format.
func RenderValue(w io.Writer, format string, v interface{}, text func() string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		_, err := io.WriteString(w, text())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (expected text, json or yaml)", format)
	}
}

// Text renders the report for a terminal
func (r *DryRunReport) Text() string {
	var b strings.Builder

	cfg := r.Configuration
	fmt.Fprintf(&b, "Dry run for database %s\n\n", r.Database)
	fmt.Fprintf(&b, "Profile:      %s\n", valueOr(cfg.Profile, "(none)"))
	fmt.Fprintf(&b, "Output:       %s\n", r.OutputPath)
	fmt.Fprintf(&b, "Compression:  %s\n", cfg.CompressionAlgorithm())
	fmt.Fprintf(&b, "Views:        %s\n", onOff(cfg.IncludeViews))
	fmt.Fprintf(&b, "FK wrapper:   %s\n", onOff(cfg.DisableForeignKeys))
	fmt.Fprintf(&b, "Estimated:    %s (%s uncompressed)\n", r.Estimate.HumanCompressed(), r.Estimate.HumanExport())

	fmt.Fprintf(&b, "\nTables (%d):\n", r.TableCount)
	anonymized := make(map[string]bool, len(r.AnonymizedTables))
	for _, name := range r.AnonymizedTables {
		anonymized[name] = true
	}
	for _, t := range r.Tables {
		var notes []string
		switch {
		case t.IsView:
			notes = append(notes, "view")
		case t.StructureOnly:
			notes = append(notes, "structure only")
		case anonymized[t.Name]:
			notes = append(notes, "anonymized")
		}
		if len(t.ExcludedColumns) > 0 {
			notes = append(notes, "without "+strings.Join(t.ExcludedColumns, ", "))
		}

		line := fmt.Sprintf("  - %s", t.Name)
		if !t.IsView {
			line += fmt.Sprintf(" %s rows, %s", estimate.FormatCount(t.Rows), estimate.FormatBytes(t.TotalBytes()))
		}
		if len(notes) > 0 {
			line += " [" + strings.Join(notes, "; ") + "]"
		}
		b.WriteString(line + "\n")
	}

	if !r.Estimate.DiskSpace.Sufficient {
		fmt.Fprintf(&b, "\nWarning: %s\n", r.Estimate.DiskSpace.Warning)
	}
	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
