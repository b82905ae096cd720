// Package config holds the application configuration: named connections,
// export defaults and the profile catalog.
package config

import (
	"errors"
	"fmt"
	"sort"

	"mysql-db-export/internal/anonymize"
	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/export"
	"mysql-db-export/internal/storage"
	"mysql-db-export/internal/tables"
)

// Config is the root of .db-export.yaml
type Config struct {
	DefaultPath string `mapstructure:"default_path" yaml:"default_path"`
	// Connection names the default entry of Connections.
	Connection  string                             `mapstructure:"connection" yaml:"connection"`
	Connections map[string]database.DatabaseConfig `mapstructure:"connections" yaml:"connections"`

	Compression  CompressionConfig   `mapstructure:"compression" yaml:"compression"`
	MySQLOptions export.MySQLOptions `mapstructure:"mysql_options" yaml:"mysql_options"`
	ForeignKeys  ForeignKeysConfig   `mapstructure:"foreign_keys" yaml:"foreign_keys"`
	Views        ViewsConfig         `mapstructure:"views" yaml:"views"`
	DiskCheck    DiskCheckConfig     `mapstructure:"disk_check" yaml:"disk_check"`
	Cleanup      CleanupConfig       `mapstructure:"cleanup" yaml:"cleanup"`
	Estimate     EstimateConfig      `mapstructure:"estimate" yaml:"estimate"`

	Profiles            map[string]Profile                `mapstructure:"profiles" yaml:"profiles"`
	GlobalAnonymization map[string]map[string]interface{} `mapstructure:"global_anonymization" yaml:"global_anonymization"`
	PreserveRows        map[string]anonymize.PreserveRule `mapstructure:"preserve_rows" yaml:"preserve_rows,omitempty"`
	ExcludeColumns      map[string][]string               `mapstructure:"exclude_columns" yaml:"exclude_columns"`
	Columns             ColumnsConfig                     `mapstructure:"columns" yaml:"columns"`
	Anonymization       AnonymizationConfig               `mapstructure:"anonymization" yaml:"anonymization"`

	Publish storage.Config `mapstructure:"publish" yaml:"publish"`
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// CompressionConfig selects the artifact compression
type CompressionConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level"`
}

// ForeignKeysConfig controls the FK fencing of the artifact
type ForeignKeysConfig struct {
	DisableDuringImport bool `mapstructure:"disable_during_import" yaml:"disable_during_import"`
}

// ViewsConfig controls view export
type ViewsConfig struct {
	Include     bool   `mapstructure:"include" yaml:"include"`
	Definer     string `mapstructure:"definer" yaml:"definer"`
	ReplaceWith string `mapstructure:"replace_with" yaml:"replace_with"`
}

// DiskCheckConfig configures the free space preflight
type DiskCheckConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled"`
	SafetyMargin  float64 `mapstructure:"safety_margin" yaml:"safety_margin"`
	MinimumFreeMB int64   `mapstructure:"minimum_free_mb" yaml:"minimum_free_mb"`
}

// CleanupConfig configures retention of old artifacts
type CleanupConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// KeepRecent 0 deletes every previous artifact.
	KeepRecent int `mapstructure:"keep_recent" yaml:"keep_recent"`
}

// EstimateConfig holds the heuristics that turn table sizes into artifact sizes
type EstimateConfig struct {
	ExportRatio      float64 `mapstructure:"export_ratio" yaml:"export_ratio"`
	CompressionRatio float64 `mapstructure:"compression_ratio" yaml:"compression_ratio"`
}

// ColumnsConfig controls which columns anonymized tables read
type ColumnsConfig struct {
	SkipLarge  bool     `mapstructure:"skip_large" yaml:"skip_large"`
	LargeTypes []string `mapstructure:"large_types" yaml:"large_types"`
}

// AnonymizationConfig tunes the anonymized table writer
type AnonymizationConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	// FakerSeed makes generated values reproducible. 0 picks a random seed.
	FakerSeed uint64 `mapstructure:"faker_seed" yaml:"faker_seed"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DefaultPath: export.DefaultOutputPath,
		Connections: map[string]database.DatabaseConfig{},
		Compression: CompressionConfig{
			Enabled:   true,
			Algorithm: string(export.CompressionGzip),
			Level:     export.DefaultGzipLevel,
		},
		MySQLOptions: export.DefaultMySQLOptions(),
		ForeignKeys:  ForeignKeysConfig{DisableDuringImport: true},
		Views: ViewsConfig{
			Include:     true,
			Definer:     string(tables.DefinerStrip),
			ReplaceWith: "CURRENT_USER",
		},
		DiskCheck: DiskCheckConfig{
			Enabled:       true,
			SafetyMargin:  1.5,
			MinimumFreeMB: 100,
		},
		Cleanup: CleanupConfig{Enabled: true, KeepRecent: 0},
		Estimate: EstimateConfig{
			ExportRatio:      0.7,
			CompressionRatio: 0.2,
		},
		Profiles:            DefaultProfiles(),
		GlobalAnonymization: map[string]map[string]interface{}{},
		ExcludeColumns:      map[string][]string{},
		Columns:             ColumnsConfig{LargeTypes: append([]string{}, tables.DefaultLargeTypes...)},
		Anonymization:       AnonymizationConfig{BatchSize: export.DefaultBatchSize},
		Logging:             LoggingConfig{Level: "normal", Format: "text"},
	}
}

// Validate checks every section and parses all anonymization rules so
// configuration mistakes surface before an export starts.
func (c *Config) Validate() error {
	var errs []error

	if _, err := export.ParseCompression(c.Compression.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if c.Compression.Level < 1 || c.Compression.Level > 9 {
		errs = append(errs, fmt.Errorf("compression level must be between 1 and 9, got %d", c.Compression.Level))
	}

	switch tables.DefinerMode(c.Views.Definer) {
	case "", tables.DefinerStrip, tables.DefinerKeep, tables.DefinerReplace:
	default:
		errs = append(errs, fmt.Errorf("views.definer must be strip, keep or replace, got %q", c.Views.Definer))
	}

	if c.DiskCheck.SafetyMargin < 1 {
		errs = append(errs, fmt.Errorf("disk_check.safety_margin must be at least 1, got %v", c.DiskCheck.SafetyMargin))
	}
	if c.DiskCheck.MinimumFreeMB < 0 {
		errs = append(errs, errors.New("disk_check.minimum_free_mb cannot be negative"))
	}
	if c.Cleanup.KeepRecent < 0 {
		errs = append(errs, errors.New("cleanup.keep_recent cannot be negative"))
	}
	if c.Estimate.ExportRatio <= 0 || c.Estimate.ExportRatio > 1 {
		errs = append(errs, fmt.Errorf("estimate.export_ratio must be in (0, 1], got %v", c.Estimate.ExportRatio))
	}
	if c.Estimate.CompressionRatio <= 0 || c.Estimate.CompressionRatio > 1 {
		errs = append(errs, fmt.Errorf("estimate.compression_ratio must be in (0, 1], got %v", c.Estimate.CompressionRatio))
	}
	if c.Anonymization.BatchSize < 0 {
		errs = append(errs, errors.New("anonymization.batch_size cannot be negative"))
	}

	for _, name := range sortedNames(c.Connections) {
		conn := c.Connections[name]
		conn.SetDefaults()
		if err := conn.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", name, err))
		}
	}

	if _, err := anonymize.LoadConfig(nil, c.GlobalAnonymization, c.PreserveRows); err != nil {
		errs = append(errs, fmt.Errorf("global_anonymization: %w", err))
	}
	for _, name := range sortedNames(c.Profiles) {
		if _, err := anonymize.LoadConfig(c.Profiles[name].Anonymize, nil, nil); err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", name, err))
		}
	}

	if err := c.Publish.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("publish: %w", err))
	}

	if len(errs) > 0 {
		return apperrors.NewConfigurationError("configuration validation failed", errors.Join(errs...))
	}
	return nil
}

// ResolveConnection returns the named connection with defaults applied.
// An empty name selects the configured default, or the only connection.
func (c *Config) ResolveConnection(name string) (database.DatabaseConfig, error) {
	if name == "" {
		name = c.Connection
	}
	if name == "" && len(c.Connections) == 1 {
		for only := range c.Connections {
			name = only
		}
	}
	if name == "" {
		return database.DatabaseConfig{}, apperrors.NewConfigurationError(
			"no connection selected; set 'connection' in the configuration or pass --connection", nil)
	}

	conn, ok := c.Connections[name]
	if !ok {
		return database.DatabaseConfig{}, apperrors.NewConfigurationError(
			fmt.Sprintf("connection '%s' not found. Available connections: %s", name, joinNames(sortedNames(c.Connections))), nil).
			WithContext("connection", name)
	}
	conn.SetDefaults()
	return conn, nil
}

// CompressionAlgorithm returns the configured algorithm, none when disabled
func (c *Config) CompressionAlgorithm() export.Compression {
	if !c.Compression.Enabled {
		return export.CompressionNone
	}
	alg, err := export.ParseCompression(c.Compression.Algorithm)
	if err != nil {
		return export.CompressionGzip
	}
	return alg
}

// ProfileManager returns a manager over the configured profiles
func (c *Config) ProfileManager() *ProfileManager {
	return NewProfileManager(c.Profiles)
}

// AnonymizationRules parses the global rules and preserved rows together
// with the given table rules.
func (c *Config) AnonymizationRules(tableRules anonymize.RawRules) (*anonymize.Config, error) {
	return anonymize.LoadConfig(tableRules, c.GlobalAnonymization, c.PreserveRows)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
