package config

import (
	"testing"

	"mysql-db-export/internal/anonymize"
	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, export.DefaultOutputPath, cfg.DefaultPath)
	assert.True(t, cfg.Compression.Enabled)
	assert.Equal(t, 6, cfg.Compression.Level)
	assert.True(t, cfg.ForeignKeys.DisableDuringImport)
	assert.Equal(t, "strip", cfg.Views.Definer)
	assert.Equal(t, "CURRENT_USER", cfg.Views.ReplaceWith)
	assert.Equal(t, 1.5, cfg.DiskCheck.SafetyMargin)
	assert.Equal(t, int64(100), cfg.DiskCheck.MinimumFreeMB)
	assert.Equal(t, 0, cfg.Cleanup.KeepRecent)
	assert.Equal(t, 0.7, cfg.Estimate.ExportRatio)
	assert.Equal(t, 0.2, cfg.Estimate.CompressionRatio)
	assert.Equal(t, 1000, cfg.Anonymization.BatchSize)
	assert.True(t, cfg.MySQLOptions.SingleTransaction)
	assert.Len(t, cfg.Profiles, 6)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Compression.Level = 0
	cfg.Compression.Algorithm = "brotli"
	cfg.Views.Definer = "rewrite"
	cfg.DiskCheck.SafetyMargin = 0.5
	cfg.Cleanup.KeepRecent = -1
	cfg.Estimate.ExportRatio = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	msg := err.Error()
	for _, want := range []string{"brotli", "compression level", "views.definer", "safety_margin", "keep_recent", "export_ratio"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateRejectsBadRules(t *testing.T) {
	t.Run("profile rule without method", func(t *testing.T) {
		cfg := Default()
		cfg.Profiles["broken"] = Profile{
			Anonymize: anonymize.RawRules{"users": {"email": {"strategy": "faker"}}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "broken"`)
	})

	t.Run("global rule without method", func(t *testing.T) {
		cfg := Default()
		cfg.GlobalAnonymization = map[string]map[string]interface{}{
			"*email*": {"strategy": "faker"},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "global_anonymization")
	})

	t.Run("invalid connection", func(t *testing.T) {
		cfg := Default()
		cfg.Connections["main"] = database.DatabaseConfig{Host: "localhost"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `connection "main"`)
	})

	t.Run("unknown publish provider", func(t *testing.T) {
		cfg := Default()
		cfg.Publish.Provider = "ftp"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ftp")
	})
}

func TestResolveConnection(t *testing.T) {
	main := database.DatabaseConfig{Host: "db", Username: "root", Database: "shop"}
	replica := database.DatabaseConfig{Host: "replica", Port: 3307, Username: "ro", Database: "shop"}

	t.Run("only connection is the default", func(t *testing.T) {
		cfg := Default()
		cfg.Connections = map[string]database.DatabaseConfig{"main": main}

		conn, err := cfg.ResolveConnection("")
		require.NoError(t, err)
		assert.Equal(t, "db", conn.Host)
		assert.Equal(t, 3306, conn.Port)
	})

	t.Run("configured default", func(t *testing.T) {
		cfg := Default()
		cfg.Connection = "replica"
		cfg.Connections = map[string]database.DatabaseConfig{"main": main, "replica": replica}

		conn, err := cfg.ResolveConnection("")
		require.NoError(t, err)
		assert.Equal(t, 3307, conn.Port)

		conn, err = cfg.ResolveConnection("main")
		require.NoError(t, err)
		assert.Equal(t, "db", conn.Host)
	})

	t.Run("unknown connection lists available", func(t *testing.T) {
		cfg := Default()
		cfg.Connections = map[string]database.DatabaseConfig{"main": main, "replica": replica}

		_, err := cfg.ResolveConnection("staging")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
		assert.Contains(t, err.Error(), "connection 'staging' not found. Available connections: main, replica")
	})

	t.Run("ambiguous without default", func(t *testing.T) {
		cfg := Default()
		cfg.Connections = map[string]database.DatabaseConfig{"main": main, "replica": replica}

		_, err := cfg.ResolveConnection("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no connection selected")
	})
}

func TestCompressionAlgorithm(t *testing.T) {
	cfg := Default()
	assert.Equal(t, export.CompressionGzip, cfg.CompressionAlgorithm())

	cfg.Compression.Algorithm = "zstd"
	assert.Equal(t, export.CompressionZstd, cfg.CompressionAlgorithm())

	cfg.Compression.Enabled = false
	assert.Equal(t, export.CompressionNone, cfg.CompressionAlgorithm())
}

func TestAnonymizationRules(t *testing.T) {
	cfg := Default()
	cfg.GlobalAnonymization = map[string]map[string]interface{}{
		"*token*": {"strategy": "null"},
	}

	rules, err := cfg.AnonymizationRules(cfg.Profiles["anonymized"].Anonymize)
	require.NoError(t, err)
	assert.True(t, rules.HasRulesForTable("users"))
	assert.True(t, rules.HasRulesForTable("sessions"))

	rule, ok := rules.RuleForColumn("api_keys", "access_token")
	require.True(t, ok)
	assert.Equal(t, "null", rule.Strategy)
}
