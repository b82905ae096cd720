package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"mysql-db-export/internal/estimate"
	"mysql-db-export/internal/export"
	"mysql-db-export/internal/storage"
)

// DumpSearchPaths are probed for mysqldump after PATH. Entries may be globs.
var DumpSearchPaths = []string{
	"/usr/bin",
	"/usr/local/bin",
	"/usr/local/mysql/bin",
	"/opt/homebrew/bin",
	"/opt/homebrew/opt/mysql/bin",
	"/opt/homebrew/opt/mariadb/bin",
	"/Users/Shared/Herd/services/mysql/*/bin",
	"/Users/Shared/Herd/services/mariadb/*/bin",
	"/Applications/MAMP/Library/bin",
	"/Applications/XAMPP/xamppfiles/bin",
}

var versionPattern = regexp.MustCompile(`Ver\s+([^\s]+)`)

// DumpBinary is one mysqldump found on this machine
type DumpBinary struct {
	Path    string `json:"path" yaml:"path"`
	Dir     string `json:"dir" yaml:"dir"`
	Version string `json:"version" yaml:"version"`
}

// EnvLine returns the environment assignment that selects this binary
func (b DumpBinary) EnvLine() string {
	return fmt.Sprintf("%s_DUMP_BINARY_PATH=%s", EnvPrefix, b.Dir)
}

// SetupResult is the outcome of a setup check
type SetupResult struct {
	Success          bool         `json:"success" yaml:"success"`
	ConfigValid      bool         `json:"config_valid" yaml:"config_valid"`
	BinaryFound      bool         `json:"binary_found" yaml:"binary_found"`
	OutputWritable   bool         `json:"output_writable" yaml:"output_writable"`
	PublishReady     bool         `json:"publish_ready" yaml:"publish_ready"`
	ConfiguredBinary string       `json:"configured_binary" yaml:"configured_binary"`
	Binaries         []DumpBinary `json:"binaries" yaml:"binaries"`
	Warnings         []string     `json:"warnings" yaml:"warnings"`
	Errors           []string     `json:"errors" yaml:"errors"`
	RecommendedFixes []string     `json:"recommended_fixes" yaml:"recommended_fixes"`
}

// SetupChecker verifies that this machine can run exports
type SetupChecker struct {
	config      *Config
	searchPaths []string

	lookPath func(file string) (string, error)
	version  func(ctx context.Context, path string) (string, error)
	stat     func(path string) (os.FileInfo, error)
}

// NewSetupChecker creates a checker for cfg
func NewSetupChecker(cfg *Config) *SetupChecker {
	return &SetupChecker{
		config:      cfg,
		searchPaths: DumpSearchPaths,
		lookPath:    exec.LookPath,
		version:     binaryVersion,
		stat:        os.Stat,
	}
}

// Run checks configuration, the dump binary, the output directory and
// the publish target.
func (sc *SetupChecker) Run(ctx context.Context) *SetupResult {
	result := &SetupResult{
		Success:          true,
		ConfigValid:      true,
		PublishReady:     true,
		Binaries:         []DumpBinary{},
		Warnings:         []string{},
		Errors:           []string{},
		RecommendedFixes: []string{},
	}

	if err := sc.config.Validate(); err != nil {
		result.Success = false
		result.ConfigValid = false
		result.Errors = append(result.Errors, err.Error())
	}

	sc.checkBinary(ctx, result)
	sc.checkOutput(result)
	sc.checkPublish(result)
	sc.generateRecommendations(result)

	return result
}

// FindBinaries returns every mysqldump found on PATH and in the search
// paths, without duplicates.
func (sc *SetupChecker) FindBinaries(ctx context.Context) []DumpBinary {
	var candidates []string
	if path, err := sc.lookPath(export.DumpBinary); err == nil {
		candidates = append(candidates, path)
	}
	for _, dir := range sc.searchPaths {
		dirs := []string{dir}
		if strings.Contains(dir, "*") {
			matches, err := filepath.Glob(dir)
			if err != nil {
				continue
			}
			dirs = matches
		}
		for _, d := range dirs {
			candidates = append(candidates, filepath.Join(d, export.DumpBinary))
		}
	}

	seen := map[string]bool{}
	binaries := []DumpBinary{}
	for _, path := range candidates {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		if seen[path] {
			continue
		}
		info, err := sc.stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		seen[path] = true

		version, err := sc.version(ctx, path)
		if err != nil || version == "" {
			version = "unknown"
		}
		binaries = append(binaries, DumpBinary{Path: path, Dir: filepath.Dir(path), Version: version})
	}
	return binaries
}

func (sc *SetupChecker) checkBinary(ctx context.Context, result *SetupResult) {
	result.Binaries = sc.FindBinaries(ctx)

	configured := sc.config.MySQLOptions.DumpBinaryPath
	result.ConfiguredBinary = export.BinaryPath(configured)

	if configured != "" {
		if info, err := sc.stat(result.ConfiguredBinary); err != nil || info.IsDir() {
			result.Success = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("Configured mysqldump not found: %s", result.ConfiguredBinary))
			result.RecommendedFixes = append(result.RecommendedFixes,
				fmt.Sprintf("Fix %s_DUMP_BINARY_PATH or mysql_options.dump_binary_path", EnvPrefix))
			return
		}
		result.BinaryFound = true
		return
	}

	if _, err := sc.lookPath(export.DumpBinary); err == nil {
		result.BinaryFound = true
		return
	}

	if len(result.Binaries) == 0 {
		result.Success = false
		result.Errors = append(result.Errors, "mysqldump was not found on PATH or in the common install locations")
		result.RecommendedFixes = append(result.RecommendedFixes,
			"Install the MySQL or MariaDB client tools")
		return
	}

	result.Warnings = append(result.Warnings, "mysqldump is installed but not on PATH")
	result.RecommendedFixes = append(result.RecommendedFixes,
		fmt.Sprintf("Add to your environment: %s", result.Binaries[0].EnvLine()))
}

func (sc *SetupChecker) checkOutput(result *SetupResult) {
	path := sc.config.DefaultPath
	if path == "" {
		path = export.DefaultOutputPath
	}

	result.OutputWritable = estimate.IsWritable(path)
	if !result.OutputWritable {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("Output path is not writable: %s", path))
		result.RecommendedFixes = append(result.RecommendedFixes,
			fmt.Sprintf("Create the directory or set default_path: mkdir -p %s", path))
	}
}

func (sc *SetupChecker) checkPublish(result *SetupResult) {
	publish := sc.config.Publish
	if !publish.Enabled() {
		return
	}
	publish.SetDefaults()
	if err := publish.Validate(); err != nil {
		result.PublishReady = false
		result.Warnings = append(result.Warnings, fmt.Sprintf("Publish configuration is incomplete: %v", err))
		return
	}

	switch publish.Provider {
	case storage.ProviderS3:
		if publish.S3.AccessKey == "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
			result.Warnings = append(result.Warnings, "AWS_ACCESS_KEY_ID environment variable is not set")
			result.RecommendedFixes = append(result.RecommendedFixes,
				"Set AWS credentials: export AWS_ACCESS_KEY_ID=your_access_key")
		}
	case storage.ProviderGCS:
		if publish.GCS.CredentialsPath != "" {
			if _, err := sc.stat(publish.GCS.CredentialsPath); err != nil {
				result.PublishReady = false
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("GCS credentials file does not exist: %s", publish.GCS.CredentialsPath))
			}
		}
	}
}

func (sc *SetupChecker) generateRecommendations(result *SetupResult) {
	if !sc.config.DiskCheck.Enabled {
		result.RecommendedFixes = append(result.RecommendedFixes,
			"Enable disk_check to catch full disks before an export starts")
	}
	if sc.config.Cleanup.Enabled && sc.config.Cleanup.KeepRecent == 0 {
		result.Warnings = append(result.Warnings,
			"cleanup.keep_recent is 0: every previous export is deleted before a new one is written")
	}
	if !sc.config.Compression.Enabled {
		result.RecommendedFixes = append(result.RecommendedFixes,
			"Enable compression to reduce artifact size")
	}
}

func binaryVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	return ParseVersion(string(out)), nil
}

// ParseVersion extracts the version from mysqldump --version output
func ParseVersion(output string) string {
	if m := versionPattern.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return "unknown"
}
