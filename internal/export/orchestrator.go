package export

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"mysql-db-export/internal/anonymize"
	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/estimate"
	"mysql-db-export/internal/logging"
	"mysql-db-export/internal/tables"

	"github.com/google/uuid"
)

// Stage names a step of the export pipeline
type Stage string

const (
	StageStart              Stage = "start"
	StageDirectoryEnsured   Stage = "directory_ensured"
	StageOldExportsCleaned  Stage = "old_exports_cleaned"
	StageTablesPartitioned  Stage = "tables_partitioned"
	StageDataDumped         Stage = "data_dumped"
	StageAnonymizedAppended Stage = "anonymized_appended"
	StageStructureAppended  Stage = "structure_appended"
	StageViewsAppended      Stage = "views_appended"
	StageFKWrapped          Stage = "fk_wrapped"
	StageCompressed         Stage = "compressed"
	StageFinalized          Stage = "finalized"
)

const (
	noDataMarker    = "-- No data tables to export\n"
	structureMarker = "\n\n-- Structure-only tables\n"
	viewsMarker     = "\n\n-- Views\n"
	tempSuffix      = ".tmp"
	structureSuffix = ".structure"
)

// Partition is the fate of every resolved table. Each base table lands in
// exactly one of Native, Anonymized or StructureOnly.
type Partition struct {
	Native        []tables.TableInfo
	Anonymized    []tables.TableInfo
	StructureOnly []tables.TableInfo
	Views         []tables.TableInfo
}

// PartitionTables splits infos by how their content is produced
func PartitionTables(infos []tables.TableInfo, rules *anonymize.Config) Partition {
	var p Partition
	for _, t := range infos {
		switch {
		case t.IsView:
			p.Views = append(p.Views, t)
		case t.StructureOnly:
			p.StructureOnly = append(p.StructureOnly, t)
		case rules.HasRulesForTable(t.Name):
			p.Anonymized = append(p.Anonymized, t)
		default:
			p.Native = append(p.Native, t)
		}
	}
	return p
}

// Dependencies are the collaborators of an Orchestrator
type Dependencies struct {
	Connection database.DatabaseConfig
	Dumper     Dumper
	Writer     *AnonymizedTableWriter
	Views      *tables.ViewExporter
	Rules      *anonymize.Config
	Cleaner    *Cleaner
	Logger     *logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives one export through its stages
type Orchestrator struct {
	conn    database.DatabaseConfig
	dumper  Dumper
	writer  *AnonymizedTableWriter
	views   *tables.ViewExporter
	rules   *anonymize.Config
	cleaner *Cleaner
	fk      *FKWrapper
	logger  *logging.Logger
	now     func() time.Time
}

// NewOrchestrator creates an orchestrator from deps
func NewOrchestrator(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cleaner := deps.Cleaner
	if cleaner == nil {
		cleaner = NewCleaner(false, 0, logger)
	}
	return &Orchestrator{
		conn:    deps.Connection,
		dumper:  deps.Dumper,
		writer:  deps.Writer,
		views:   deps.Views,
		rules:   deps.Rules,
		cleaner: cleaner,
		fk:      NewFKWrapper(),
		logger:  logger,
		now:     now,
	}
}

// run carries the mutable state of one export
type run struct {
	cfg       ExportConfig
	id        string
	started   time.Time
	stage     Stage
	output    string
	temp      string
	partition Partition
}

// Export produces the artifact for infos. On failure the returned error is
// an *errors.ExportError naming the stage that failed, and the result is a
// failure result carrying the same message.
func (o *Orchestrator) Export(ctx context.Context, cfg ExportConfig, infos []tables.TableInfo) (*ExportResult, error) {
	r := &run{cfg: cfg, id: uuid.NewString(), started: o.now(), stage: StageStart}
	ctx = logging.ContextWithRunID(ctx, r.id)

	o.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"profile":     cfg.Profile,
		"tables":      len(infos),
		"output_path": cfg.OutputPath(),
		"compression": string(cfg.CompressionAlgorithm()),
	}).Info("Export started")

	algorithm := cfg.CompressionAlgorithm()

	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageDirectoryEnsured, func() error { return EnsureDirectory(cfg.OutputPath()) }},
		{StageOldExportsCleaned, func() error {
			_, err := o.cleaner.Cleanup(cfg.OutputPath())
			return err
		}},
		{StageTablesPartitioned, func() error {
			r.output = cfg.FullPath(o.conn.Database, r.started)
			r.temp = TempPath(r.output, algorithm)
			r.partition = PartitionTables(infos, o.rules)
			return nil
		}},
		{StageDataDumped, func() error { return o.dumpData(ctx, r) }},
		{StageAnonymizedAppended, func() error { return o.appendAnonymized(ctx, r) }},
		{StageStructureAppended, func() error { return o.appendStructure(ctx, r) }},
		{StageViewsAppended, func() error { return o.appendViews(ctx, r) }},
		{StageFKWrapped, func() error {
			if !cfg.DisableForeignKeys {
				return nil
			}
			return o.fk.WrapFile(r.temp)
		}},
		{StageCompressed, func() error { return o.finishArtifact(r, algorithm) }},
	}

	for _, step := range steps {
		r.stage = step.stage
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, r, err)
		}
		if err := step.fn(); err != nil {
			return o.fail(ctx, r, err)
		}
		o.logger.WithContext(ctx).WithField("stage", string(step.stage)).Debug("Export stage completed")
	}

	r.stage = StageFinalized
	var size int64
	if info, err := os.Stat(r.output); err == nil {
		size = info.Size()
	}
	duration := o.now().Sub(r.started)

	result := NewSuccessResult(r.output, size, duration, tables.Names(infos), tables.Names(r.partition.Anonymized), algorithm != CompressionNone)
	result.RunID = r.id
	if sum, err := ArtifactChecksum(r.output); err == nil {
		result.Checksum = sum
	} else {
		o.logger.WithContext(ctx).WithField("error", err.Error()).Warn("Failed to checksum artifact")
	}
	o.logger.LogExportCompleted(ctx, r.output, size, len(infos), duration)
	return result, nil
}

func (o *Orchestrator) fail(ctx context.Context, r *run, cause error) (*ExportResult, error) {
	duration := o.now().Sub(r.started)
	if r.temp != "" {
		o.removeQuietly(r.temp)
		o.removeQuietly(r.temp + structureSuffix)
		o.removeQuietly(r.temp + ".fk_wrap")
	}

	err := apperrors.NewExportError(string(r.stage), duration, cause)
	o.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"stage": string(r.stage),
		"error": cause.Error(),
	}).Error("Export failed")

	result := NewFailureResult(err, duration)
	result.RunID = r.id
	return result, err
}

func (o *Orchestrator) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.LogArtifactCleanup(path, err)
	}
}

func (o *Orchestrator) dumpData(ctx context.Context, r *run) error {
	if len(r.partition.Native) == 0 {
		if err := os.WriteFile(r.temp, []byte(noDataMarker), 0o644); err != nil {
			return apperrors.NewResourceError("Cannot write dump", r.temp, err)
		}
		return nil
	}
	if o.dumper == nil {
		return apperrors.NewConfigurationError("no dumper configured", nil)
	}
	return o.dumper.Dump(ctx, DumpRequest{
		Connection: o.conn,
		Tables:     tables.Names(r.partition.Native),
	}, r.temp)
}

func (o *Orchestrator) appendAnonymized(ctx context.Context, r *run) error {
	if len(r.partition.Anonymized) == 0 {
		return nil
	}
	if o.writer == nil {
		return apperrors.NewConfigurationError("no anonymized table writer configured", nil)
	}
	return appendTo(r.temp, func(w io.Writer) error {
		for _, t := range r.partition.Anonymized {
			if _, err := o.writer.WriteTable(ctx, w, t, o.rules); err != nil {
				return err
			}
		}
		return nil
	})
}

func (o *Orchestrator) appendStructure(ctx context.Context, r *run) error {
	if len(r.partition.StructureOnly) == 0 {
		return nil
	}
	if o.dumper == nil {
		return apperrors.NewConfigurationError("no dumper configured", nil)
	}

	structurePath := r.temp + structureSuffix
	defer o.removeQuietly(structurePath)

	err := o.dumper.Dump(ctx, DumpRequest{
		Connection:    o.conn,
		Tables:        tables.Names(r.partition.StructureOnly),
		StructureOnly: true,
	}, structurePath)
	if err != nil {
		return err
	}

	return appendTo(r.temp, func(w io.Writer) error {
		src, err := os.Open(structurePath) //nolint:gosec // path is produced by the exporter
		if err != nil {
			return apperrors.NewResourceError("Cannot read structure dump", structurePath, err)
		}
		defer src.Close()
		if _, err := io.WriteString(w, structureMarker); err != nil {
			return err
		}
		_, err = io.CopyBuffer(w, src, make([]byte, chunkSize))
		return err
	})
}

func (o *Orchestrator) appendViews(ctx context.Context, r *run) error {
	if !r.cfg.IncludeViews || len(r.partition.Views) == 0 || o.views == nil {
		return nil
	}
	defs, err := o.views.Export(ctx, tables.Names(r.partition.Views))
	if err != nil {
		return err
	}
	script := tables.Script(defs)
	if script == "" {
		return nil
	}
	return appendTo(r.temp, func(w io.Writer) error {
		_, err := io.WriteString(w, viewsMarker+script+"\n")
		return err
	})
}

func (o *Orchestrator) finishArtifact(r *run, algorithm Compression) error {
	if algorithm == CompressionNone {
		if err := os.Rename(r.temp, r.output); err != nil {
			return apperrors.NewResourceError("Cannot move dump into place", r.output, err)
		}
		return nil
	}

	stats, err := NewCompressor(algorithm, r.cfg.CompressionLevel).Compress(r.temp, r.output)
	if err != nil {
		o.removeQuietly(r.output)
		return err
	}
	o.removeQuietly(r.temp)

	o.logger.WithFields(map[string]interface{}{
		"algorithm":       string(stats.Algorithm),
		"original_size":   stats.OriginalSize,
		"compressed_size": stats.CompressedSize,
		"ratio":           stats.Ratio(),
		"duration":        stats.Duration.String(),
	}).Debug("Artifact compressed")
	return nil
}

// appendTo opens path for appending and hands a buffered writer to fn
func appendTo(path string, fn func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // path is produced by the exporter
	if err != nil {
		return apperrors.NewResourceError("Cannot open dump for appending", path, err)
	}
	bw := bufio.NewWriterSize(f, chunkSize)
	if err := fn(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return apperrors.NewResourceError("Cannot write dump", path, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewResourceError("Cannot write dump", path, err)
	}
	return nil
}

// EnsureDirectory creates dir with mode 0755 when missing and checks that it
// is writable.
func EnsureDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewResourceError("Cannot create output directory", dir, err)
	}
	if !estimate.IsWritable(dir) {
		return apperrors.NewAppError(apperrors.ErrorTypePermission, "output directory is not writable", nil).
			WithContext("path", dir)
	}
	return nil
}

// TempPath returns the uncompressed working file for output: the
// compression suffix is dropped and ".tmp" appended.
func TempPath(output string, algorithm Compression) string {
	base := strings.TrimSuffix(output, algorithm.Extension())
	return base + tempSuffix
}
