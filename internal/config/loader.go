package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the configuration file looked up in $HOME and the working directory
	FileName = ".db-export"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "DB_EXPORT"
)

// scalar keys that may be overridden from the environment; viper only
// consults the environment during Unmarshal for keys it already knows
var envKeys = []string{
	"default_path",
	"connection",
	"compression.enabled",
	"compression.algorithm",
	"compression.level",
	"mysql_options.single_transaction",
	"mysql_options.quick",
	"mysql_options.skip_lock_tables",
	"mysql_options.set_gtid_purged",
	"mysql_options.routines",
	"mysql_options.triggers",
	"foreign_keys.disable_during_import",
	"views.include",
	"views.definer",
	"views.replace_with",
	"disk_check.enabled",
	"disk_check.safety_margin",
	"disk_check.minimum_free_mb",
	"cleanup.enabled",
	"cleanup.keep_recent",
	"estimate.export_ratio",
	"estimate.compression_ratio",
	"columns.skip_large",
	"anonymization.batch_size",
	"anonymization.faker_seed",
	"logging.level",
	"logging.format",
	"logging.file",
}

// Loader reads the configuration file and environment through viper
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a loader. An empty path searches $HOME and the working
// directory for .db-export.yaml.
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	// the dump binary keeps its historical variable name
	_ = v.BindEnv("mysql_options.dump_binary_path", EnvPrefix+"_DUMP_BINARY_PATH")

	return &Loader{viper: v}
}

// Viper exposes the underlying instance so commands can bind flags
func (l *Loader) Viper() *viper.Viper {
	return l.viper
}

// ConfigFileUsed returns the file that was read, if any
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

// Load reads and validates the configuration. A missing file found by
// search is not an error; a missing explicit file is.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that report problems
// instead of failing on them.
func (l *Loader) Read() (*Config, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.NewConfigurationError("error reading config file", err)
		}
	}

	cfg := Default()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigurationError("failed to unmarshal configuration", err)
	}

	cfg.Publish.LoadFromEnvironment()
	cfg.Publish.SetDefaults()
	return cfg, nil
}

// Load is a shortcut for NewLoader(path).Load()
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// WriteDefault writes the default configuration as YAML. An existing file
// is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return apperrors.NewResourceError("configuration file already exists", path, nil)
		}
	}

	data, err := yaml.Marshal(sampleConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewResourceError("failed to create config directory", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return apperrors.NewResourceError("failed to write configuration file", path, err)
	}
	return nil
}

func sampleConfig() *Config {
	cfg := Default()
	cfg.Connection = "main"
	cfg.Connections = map[string]database.DatabaseConfig{
		"main": {
			Host:     "127.0.0.1",
			Port:     3306,
			Username: "root",
			Database: "app",
		},
	}
	return cfg
}
