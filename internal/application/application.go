// Package application wires configuration, catalog, estimator, orchestrator
// and publisher into the operations the command line exposes.
package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"mysql-db-export/internal/anonymize"
	"mysql-db-export/internal/config"
	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/estimate"
	"mysql-db-export/internal/export"
	"mysql-db-export/internal/logging"
	"mysql-db-export/internal/storage"
	"mysql-db-export/internal/tables"
)

// CatalogOpener connects to a database and returns its catalog together
// with a function releasing the connection.
type CatalogOpener func(ctx context.Context, conn database.DatabaseConfig) (tables.Catalog, func() error, error)

// PublisherFactory builds the publisher for a publish configuration
type PublisherFactory func(ctx context.Context, cfg storage.Config) (storage.Publisher, error)

// ExportRequest carries the command line inputs of an export, estimate or
// dry run. Empty values fall back to the profile and the configuration.
type ExportRequest struct {
	Profile       string
	Connection    string
	Path          string
	Filename      string
	NoCompress    bool
	Compression   string
	Exclude       []string
	StructureOnly []string
	IncludeData   []string
	IncludeOnly   []string
	NoViews       bool
	NoFKWrapper   bool
	DryRun        bool
	// Force skips the disk space preflight.
	Force bool
	// Upload publishes the artifact even when publish is not configured to
	// run automatically.
	Upload bool
}

// Manager is the entry point of every command
type Manager struct {
	config     *config.Config
	logger     *logging.Logger
	profiles   *config.ProfileManager
	open       CatalogOpener
	dumper     export.Dumper
	publishers PublisherFactory
	stat       estimate.StatFunc
	now        func() time.Time
}

// Option customizes a Manager
type Option func(*Manager)

// WithCatalogOpener replaces the MySQL connection
func WithCatalogOpener(open CatalogOpener) Option {
	return func(m *Manager) { m.open = open }
}

// WithDumper replaces mysqldump
func WithDumper(d export.Dumper) Option {
	return func(m *Manager) { m.dumper = d }
}

// WithPublisherFactory replaces the storage publishers
func WithPublisherFactory(f PublisherFactory) Option {
	return func(m *Manager) { m.publishers = f }
}

// WithStatFunc replaces the free space probe
func WithStatFunc(stat estimate.StatFunc) Option {
	return func(m *Manager) { m.stat = stat }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager for cfg
func NewManager(cfg *config.Config, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	m := &Manager{
		config:     cfg,
		logger:     logger,
		profiles:   cfg.ProfileManager(),
		publishers: storage.NewPublisher,
		stat:       estimate.StatfsAvailable,
		now:        time.Now,
	}
	m.open = m.openMySQL
	m.dumper = export.NewMysqldumpDumper(cfg.MySQLOptions, logger)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration the manager runs with
func (m *Manager) Config() *config.Config {
	return m.config
}

// Profiles returns the profile manager
func (m *Manager) Profiles() *config.ProfileManager {
	return m.profiles
}

func (m *Manager) openMySQL(ctx context.Context, conn database.DatabaseConfig) (tables.Catalog, func() error, error) {
	service := database.NewServiceWithLogger(m.logger)
	db, err := service.Connect(ctx, conn)
	if err != nil {
		return nil, nil, err
	}
	return database.NewCatalog(db, conn.Database, m.logger), func() error { return service.Close(db) }, nil
}

// BuildExportConfig merges the request, the selected profile and the
// configuration defaults into one export configuration.
func (m *Manager) BuildExportConfig(req ExportRequest) (export.ExportConfig, error) {
	cfg := export.NewExportConfig()
	cfg.Connection = req.Connection
	cfg.OutputDir = req.Path
	cfg.FilenameOverride = req.Filename
	cfg.Exclude = req.Exclude
	cfg.StructureOnly = req.StructureOnly
	cfg.IncludeData = req.IncludeData
	cfg.IncludeOnly = req.IncludeOnly
	cfg.DryRun = req.DryRun

	cfg.Compress = m.config.Compression.Enabled && !req.NoCompress
	cfg.Compression = ""
	if req.Compression != "" {
		alg, err := export.ParseCompression(req.Compression)
		if err != nil {
			return export.ExportConfig{}, apperrors.NewConfigurationError("invalid --compression value", err)
		}
		cfg.Compression = alg
		if alg != export.CompressionNone {
			cfg.Compress = !req.NoCompress
		}
	}
	cfg.CompressionLevel = 0
	cfg.IncludeViews = m.config.Views.Include && !req.NoViews
	cfg.DisableForeignKeys = m.config.ForeignKeys.DisableDuringImport && !req.NoFKWrapper

	if req.Profile != "" {
		profile, err := m.profiles.Get(req.Profile)
		if err != nil {
			return export.ExportConfig{}, err
		}
		cfg = cfg.WithProfile(profile.Settings(req.Profile))
	}

	algorithm, err := export.ParseCompression(m.config.Compression.Algorithm)
	if err != nil {
		return export.ExportConfig{}, apperrors.NewConfigurationError("invalid compression algorithm", err)
	}
	outputDir := m.config.DefaultPath
	if outputDir == "" {
		outputDir = export.DefaultOutputPath
	}
	return cfg.WithDefaults(outputDir, algorithm, m.config.Compression.Level), nil
}

// session is a resolved export: configuration, open catalog and table set
type session struct {
	cfg      export.ExportConfig
	conn     database.DatabaseConfig
	catalog  tables.Catalog
	close    func() error
	rules    *anonymize.Config
	registry *anonymize.Registry
	tables   []tables.TableInfo
}

func (s *session) Close() {
	if s.close != nil {
		_ = s.close()
	}
}

func (m *Manager) prepare(ctx context.Context, req ExportRequest) (*session, error) {
	cfg, err := m.BuildExportConfig(req)
	if err != nil {
		return nil, err
	}

	conn, err := m.config.ResolveConnection(cfg.Connection)
	if err != nil {
		return nil, err
	}

	rules, err := m.config.AnonymizationRules(cfg.Anonymize)
	if err != nil {
		return nil, err
	}
	registry := m.registry()
	if err := registry.Validate(rules); err != nil {
		return nil, err
	}

	catalog, closeFn, err := m.open(ctx, conn)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, conn: conn, catalog: catalog, close: closeFn, rules: rules, registry: registry}

	resolver := tables.NewResolver(catalog, m.logger)
	s.tables, err = resolver.Resolve(ctx, tables.ResolveOptions{
		IncludeOnly:    cfg.IncludeOnly,
		Exclude:        cfg.Exclude,
		StructureOnly:  cfg.StructureOnly,
		IncludeData:    cfg.IncludeData,
		IncludeViews:   cfg.IncludeViews,
		ExcludeColumns: m.config.ExcludeColumns,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (m *Manager) registry() *anonymize.Registry {
	return anonymize.NewRegistry(anonymize.NewGofakeitGenerator(m.config.Anonymization.FakerSeed))
}

func (m *Manager) estimator(outputPath string) *estimate.Estimator {
	checker := estimate.NewDiskChecker(m.config.DiskCheck.Enabled, m.config.DiskCheck.SafetyMargin, m.config.DiskCheck.MinimumFreeMB)
	checker.Stat = m.stat
	est := estimate.NewEstimator(checker, outputPath)
	est.ExportRatio = m.config.Estimate.ExportRatio
	est.CompressionRatio = m.config.Estimate.CompressionRatio
	return est
}

// Estimate resolves the tables of req and projects the artifact size
func (m *Manager) Estimate(ctx context.Context, req ExportRequest) (estimate.SizeEstimate, error) {
	s, err := m.prepare(ctx, req)
	if err != nil {
		return estimate.SizeEstimate{}, err
	}
	defer s.Close()

	return m.estimator(s.cfg.OutputPath()).Estimate(s.tables, s.cfg.CompressionAlgorithm() != export.CompressionNone), nil
}

// Breakdown returns the detailed size report of req
func (m *Manager) Breakdown(ctx context.Context, req ExportRequest) (estimate.Breakdown, error) {
	est, err := m.Estimate(ctx, req)
	if err != nil {
		return estimate.Breakdown{}, err
	}
	return estimate.GenerateBreakdown(est), nil
}

// DryRun resolves everything an export would touch without writing
func (m *Manager) DryRun(ctx context.Context, req ExportRequest) (*DryRunReport, error) {
	s, err := m.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	partition := export.PartitionTables(s.tables, s.rules)
	est := m.estimator(s.cfg.OutputPath()).Estimate(s.tables, s.cfg.CompressionAlgorithm() != export.CompressionNone)

	return &DryRunReport{
		Configuration:    s.cfg,
		Database:         s.conn.Database,
		Tables:           s.tables,
		AnonymizedTables: tables.Names(partition.Anonymized),
		TableCount:       len(s.tables),
		OutputPath:       s.cfg.FullPath(s.conn.Database, m.now()),
		Estimate:         est,
	}, nil
}

// Export runs the full pipeline for req: resolve, disk check, compose,
// finalize and publish.
func (m *Manager) Export(ctx context.Context, req ExportRequest) (*export.ExportResult, error) {
	s, err := m.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	est := m.estimator(s.cfg.OutputPath()).Estimate(s.tables, s.cfg.CompressionAlgorithm() != export.CompressionNone)
	if !est.DiskSpace.Sufficient {
		if !req.Force {
			return nil, est.DiskSpace.Err()
		}
		m.logger.Warn(est.DiskSpace.Warning)
	}

	orchestrator, err := m.orchestrator(s)
	if err != nil {
		return nil, err
	}

	result, err := orchestrator.Export(ctx, s.cfg, s.tables)
	if err != nil {
		return result, err
	}

	if req.Upload || m.config.Publish.Enabled() {
		location, err := m.publish(ctx, s, result, req.Upload)
		if err != nil {
			return result, err
		}
		result.Location = location
	}
	return result, nil
}

func (m *Manager) orchestrator(s *session) (*export.Orchestrator, error) {
	engine := anonymize.NewEngine(s.registry, m.logger)
	columns := tables.NewColumnFilter(s.catalog, m.config.Columns.SkipLarge, m.config.Columns.LargeTypes...)
	writer := export.NewAnonymizedTableWriter(s.catalog, columns, engine, m.config.Anonymization.BatchSize, m.logger)

	views, err := tables.NewViewExporter(s.catalog, tables.DefinerMode(m.config.Views.Definer), m.config.Views.ReplaceWith)
	if err != nil {
		return nil, err
	}

	return export.NewOrchestrator(export.Dependencies{
		Connection: s.conn,
		Dumper:     m.dumper,
		Writer:     writer,
		Views:      views,
		Rules:      s.rules,
		Cleaner:    export.NewCleaner(m.config.Cleanup.Enabled, m.config.Cleanup.KeepRecent, m.logger),
		Logger:     m.logger,
		Now:        m.now,
	}), nil
}

func (m *Manager) publish(ctx context.Context, s *session, result *export.ExportResult, explicit bool) (string, error) {
	publishCfg := m.config.Publish
	if explicit && !publishCfg.Enabled() {
		return "", apperrors.NewConfigurationError("--upload requires publish.provider to be configured", nil)
	}

	publisher, err := m.publishers(ctx, publishCfg)
	if err != nil {
		return "", err
	}
	if closer, ok := publisher.(io.Closer); ok {
		defer closer.Close()
	}

	done := m.logger.LogOperationStart("publish", map[string]interface{}{
		"provider": string(publishCfg.Provider),
		"path":     result.OutputPath,
	})
	location, err := publisher.Publish(ctx, result.OutputPath, storage.Metadata{
		"run_id":   result.RunID,
		"profile":  s.cfg.Profile,
		"database": s.conn.Database,
		"checksum": result.Checksum,
	})
	done(err)
	if err != nil {
		return "", err
	}

	if !publishCfg.KeepLocal && publishCfg.Provider != storage.ProviderLocal {
		if err := os.Remove(result.OutputPath); err != nil {
			m.logger.LogArtifactCleanup(result.OutputPath, err)
		}
	}
	return location, nil
}

// CheckDisk runs the disk space check for an estimated size at path
func (m *Manager) CheckDisk(path string, estimated int64) estimate.DiskSpaceResult {
	if path == "" {
		path = m.config.DefaultPath
	}
	return m.estimator(path).Checker.Check(path, estimated)
}

// Artifacts lists the export artifacts in dir, newest first. An empty dir
// means the configured output directory; a missing one has no artifacts.
func (m *Manager) Artifacts(dir string) ([]string, error) {
	dir, err := m.artifactDir(dir)
	if err != nil || dir == "" {
		return nil, err
	}
	return export.NewCleaner(true, 0, m.logger).Artifacts(dir)
}

// Prune deletes every export artifact in dir, the configured output
// directory when empty.
func (m *Manager) Prune(dir string) (int, error) {
	dir, err := m.artifactDir(dir)
	if err != nil || dir == "" {
		return 0, err
	}
	return export.NewCleaner(true, 0, m.logger).Prune(dir)
}

// artifactDir resolves dir and returns "" when it does not exist
func (m *Manager) artifactDir(dir string) (string, error) {
	if dir == "" {
		dir = m.config.DefaultPath
	}
	if dir == "" {
		dir = export.DefaultOutputPath
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperrors.NewResourceError("cannot read export directory", dir, err)
	}
	return dir, nil
}

// Setup checks that this machine can run exports
func (m *Manager) Setup(ctx context.Context) *config.SetupResult {
	return config.NewSetupChecker(m.config).Run(ctx)
}

// ProfileDetail is the full view of one profile
type ProfileDetail struct {
	Name    string
	Profile config.Profile
}

// ProfileDetails returns every profile in name order
func (m *Manager) ProfileDetails() []ProfileDetail {
	names := m.profiles.Names()
	details := make([]ProfileDetail, 0, len(names))
	for _, name := range names {
		p, _ := m.profiles.Get(name)
		details = append(details, ProfileDetail{Name: name, Profile: p})
	}
	return details
}

// DescribeRule renders a flat rule map as "strategy (method)"
func DescribeRule(rule map[string]interface{}) string {
	strategy, _ := rule["strategy"].(string)
	if strategy == "" {
		strategy = "unknown"
	}
	if method, ok := rule["method"].(string); ok && method != "" {
		return fmt.Sprintf("%s (%s)", strategy, method)
	}
	return strategy
}
