// Package export composes, wraps, compresses and finalizes dump artifacts.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"mysql-db-export/internal/anonymize"
)

// Compression identifies the artifact compression algorithm
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// Extension returns the file suffix appended after ".sql"
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression maps a configured name to a Compression. Empty means gzip.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionGzip:
		return CompressionGzip, nil
	case CompressionZstd, CompressionLZ4, CompressionNone:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// DefaultOutputPath is used when neither the command line nor the
// configuration names an output directory.
const DefaultOutputPath = "./storage/db-exports"

const timestampLayout = "2006-01-02_15h04"

// ProfileSettings is the part of a named profile that shapes an export
type ProfileSettings struct {
	Name          string
	Exclude       []string
	StructureOnly []string
	// IncludeOnly nil means every table.
	IncludeOnly []string
	Anonymize   anonymize.RawRules
}

// ExportConfig describes one export run. Values are treated as immutable;
// the With* methods return modified copies.
type ExportConfig struct {
	Connection         string             `json:"connection,omitempty" yaml:"connection,omitempty"`
	Profile            string             `json:"profile,omitempty" yaml:"profile,omitempty"`
	OutputDir          string             `json:"output_path" yaml:"output_path"`
	FilenameOverride   string             `json:"filename,omitempty" yaml:"filename,omitempty"`
	Compress           bool               `json:"compress" yaml:"compress"`
	Compression        Compression        `json:"compression" yaml:"compression"`
	CompressionLevel   int                `json:"compression_level" yaml:"compression_level"`
	Exclude            []string           `json:"exclude" yaml:"exclude"`
	StructureOnly      []string           `json:"structure_only" yaml:"structure_only"`
	IncludeData        []string           `json:"include_data" yaml:"include_data"`
	IncludeOnly        []string           `json:"include_only" yaml:"include_only"`
	Anonymize          anonymize.RawRules `json:"anonymize" yaml:"anonymize"`
	IncludeViews       bool               `json:"include_views" yaml:"include_views"`
	DisableForeignKeys bool               `json:"disable_foreign_keys" yaml:"disable_foreign_keys"`
	DryRun             bool               `json:"dry_run" yaml:"dry_run"`
}

// NewExportConfig returns the defaults: gzip compression, views included
// and foreign key checks disabled during import.
func NewExportConfig() ExportConfig {
	return ExportConfig{
		Compress:           true,
		Compression:        CompressionGzip,
		CompressionLevel:   DefaultGzipLevel,
		IncludeViews:       true,
		DisableForeignKeys: true,
	}
}

// EffectiveStructureOnly returns the structure-only patterns that are not
// named by include-data.
func (c ExportConfig) EffectiveStructureOnly() []string {
	if len(c.IncludeData) == 0 {
		return cloneStrings(c.StructureOnly)
	}
	include := make(map[string]struct{}, len(c.IncludeData))
	for _, name := range c.IncludeData {
		include[name] = struct{}{}
	}
	out := []string{}
	for _, name := range c.StructureOnly {
		if _, ok := include[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// WithProfile merges a profile under the command line values. Exclusions and
// structure-only lists are concatenated; include-only and the profile name
// keep the command line value when one was given; anonymize rules from the
// command line replace the profile's rules for the same table.
func (c ExportConfig) WithProfile(p ProfileSettings) ExportConfig {
	out := c.clone()

	out.Exclude = append(cloneStrings(p.Exclude), c.Exclude...)
	out.StructureOnly = append(cloneStrings(p.StructureOnly), c.StructureOnly...)
	if c.IncludeOnly == nil && p.IncludeOnly != nil {
		out.IncludeOnly = cloneStrings(p.IncludeOnly)
	}
	if c.Profile == "" {
		out.Profile = p.Name
	}

	merged := make(anonymize.RawRules, len(p.Anonymize)+len(c.Anonymize))
	for table, columns := range p.Anonymize {
		merged[table] = columns
	}
	for table, columns := range c.Anonymize {
		merged[table] = columns
	}
	out.Anonymize = merged

	return out
}

// WithDefaults fills output directory and compression from configuration
// when the command line left them empty.
func (c ExportConfig) WithDefaults(outputDir string, compression Compression, level int) ExportConfig {
	out := c.clone()
	if out.OutputDir == "" {
		out.OutputDir = outputDir
	}
	if out.Compression == "" {
		out.Compression = compression
	}
	if out.CompressionLevel == 0 {
		out.CompressionLevel = level
	}
	return out
}

// CompressionAlgorithm returns the effective algorithm, none when
// compression is switched off.
func (c ExportConfig) CompressionAlgorithm() Compression {
	if !c.Compress || c.Compression == CompressionNone {
		return CompressionNone
	}
	if c.Compression == "" {
		return CompressionGzip
	}
	return c.Compression
}

// OutputPath returns the directory artifacts are written to
func (c ExportConfig) OutputPath() string {
	if c.OutputDir == "" {
		return DefaultOutputPath
	}
	return c.OutputDir
}

// Filename returns {database}_{timestamp}[_{profile}].sql[.ext], or the
// explicit filename when one is configured.
func (c ExportConfig) Filename(database string, now time.Time) string {
	if c.FilenameOverride != "" {
		return c.FilenameOverride
	}
	if database == "" {
		database = "database"
	}
	suffix := ""
	if c.Profile != "" {
		suffix = "_" + c.Profile
	}
	return fmt.Sprintf("%s_%s%s%s", database, now.Format(timestampLayout), suffix, ".sql"+c.CompressionAlgorithm().Extension())
}

// FullPath joins OutputPath and Filename
func (c ExportConfig) FullPath(database string, now time.Time) string {
	return filepath.Join(c.OutputPath(), c.Filename(database, now))
}

// AnonymizedTableNames returns the tables with profile rules, sorted
func (c ExportConfig) AnonymizedTableNames() []string {
	names := make([]string, 0, len(c.Anonymize))
	for table := range c.Anonymize {
		names = append(names, table)
	}
	sort.Strings(names)
	return names
}

func (c ExportConfig) clone() ExportConfig {
	out := c
	out.Exclude = cloneStrings(c.Exclude)
	out.StructureOnly = cloneStrings(c.StructureOnly)
	out.IncludeData = cloneStrings(c.IncludeData)
	out.IncludeOnly = cloneStrings(c.IncludeOnly)
	if c.Anonymize != nil {
		out.Anonymize = make(anonymize.RawRules, len(c.Anonymize))
		for table, columns := range c.Anonymize {
			out.Anonymize[table] = columns
		}
	}
	return out
}

// cloneStrings copies s, keeping nil as nil
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
