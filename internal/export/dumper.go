package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mysql-db-export/internal/database"
	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/logging"
)

// DumpBinary is the mysqldump executable name
const DumpBinary = "mysqldump"

// CommandExecutor runs an external command with stdout redirected to a file.
type CommandExecutor interface {
	ExecuteWithEnv(ctx context.Context, env []string, outputPath string, name string, args ...string) error
}

// DefaultExecutor runs commands with os/exec.
type DefaultExecutor struct{}

// ExecuteWithEnv runs name and writes its stdout to outputPath. Stderr is
// captured into the returned error.
func (e *DefaultExecutor) ExecuteWithEnv(ctx context.Context, env []string, outputPath string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	output, err := os.Create(outputPath) //nolint:gosec // outputPath is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = output.Close() }()

	var stderr bytes.Buffer
	cmd.Stdout = output
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, msg)
		}
		return fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return nil
}

// MySQLOptions are the mysqldump switches taken from configuration
type MySQLOptions struct {
	DumpBinaryPath    string `mapstructure:"dump_binary_path" yaml:"dump_binary_path"`
	SingleTransaction bool   `mapstructure:"single_transaction" yaml:"single_transaction"`
	Quick             bool   `mapstructure:"quick" yaml:"quick"`
	SkipLockTables    bool   `mapstructure:"skip_lock_tables" yaml:"skip_lock_tables"`
	// SetGtidPurged is passed as --set-gtid-purged when not empty.
	SetGtidPurged string `mapstructure:"set_gtid_purged" yaml:"set_gtid_purged"`
	// ColumnStatistics adds --column-statistics=0 when explicitly false.
	ColumnStatistics *bool `mapstructure:"column_statistics" yaml:"column_statistics"`
	Routines         bool  `mapstructure:"routines" yaml:"routines"`
	Triggers         bool  `mapstructure:"triggers" yaml:"triggers"`
}

// DefaultMySQLOptions returns the zero-impact settings
func DefaultMySQLOptions() MySQLOptions {
	return MySQLOptions{
		SingleTransaction: true,
		Quick:             true,
		SkipLockTables:    true,
		Routines:          true,
		Triggers:          true,
	}
}

// DumpRequest names the tables to dump from one connection
type DumpRequest struct {
	Connection database.DatabaseConfig
	Tables     []string
	// StructureOnly dumps CREATE statements without rows.
	StructureOnly bool
}

// Dumper writes a native dump of the requested tables to outputPath
type Dumper interface {
	Dump(ctx context.Context, req DumpRequest, outputPath string) error
}

// MysqldumpDumper shells out to mysqldump
type MysqldumpDumper struct {
	executor CommandExecutor
	options  MySQLOptions
	logger   *logging.Logger
}

// NewMysqldumpDumper creates a dumper using the os/exec executor
func NewMysqldumpDumper(options MySQLOptions, logger *logging.Logger) *MysqldumpDumper {
	return NewMysqldumpDumperWithExecutor(options, logger, &DefaultExecutor{})
}

// NewMysqldumpDumperWithExecutor creates a dumper with a custom executor
func NewMysqldumpDumperWithExecutor(options MySQLOptions, logger *logging.Logger, executor CommandExecutor) *MysqldumpDumper {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &MysqldumpDumper{executor: executor, options: options, logger: logger}
}

// Binary returns the mysqldump path, honouring DumpBinaryPath
func (d *MysqldumpDumper) Binary() string {
	return BinaryPath(d.options.DumpBinaryPath)
}

// BinaryPath resolves mysqldump inside dir, or on PATH when dir is empty
func BinaryPath(dir string) string {
	if dir == "" {
		return DumpBinary
	}
	if filepath.Base(dir) == DumpBinary {
		return dir
	}
	return filepath.Join(dir, DumpBinary)
}

// Dump runs mysqldump. The password travels in MYSQL_PWD, never on the
// command line.
func (d *MysqldumpDumper) Dump(ctx context.Context, req DumpRequest, outputPath string) error {
	if len(req.Tables) == 0 {
		return apperrors.NewAppError(apperrors.ErrorTypeExport, "no tables to dump", nil)
	}

	args := d.BuildArgs(req)
	var env []string
	if req.Connection.Password != "" {
		env = append(env, "MYSQL_PWD="+req.Connection.Password)
	}

	done := d.logger.LogOperationStart("mysqldump", map[string]interface{}{
		"tables":         len(req.Tables),
		"structure_only": req.StructureOnly,
		"output":         outputPath,
	})
	d.logger.Debugf("Running %s %s", d.Binary(), logging.SanitizeArgs(strings.Join(args, " ")))

	start := time.Now()
	err := d.executor.ExecuteWithEnv(ctx, env, outputPath, d.Binary(), args...)
	if err != nil {
		err = apperrors.NewAppError(apperrors.ErrorTypeExport, "mysqldump failed", err).
			WithContext("duration", time.Since(start).String())
	}
	done(err)
	return err
}

// BuildArgs returns the mysqldump argument list for req
func (d *MysqldumpDumper) BuildArgs(req DumpRequest) []string {
	conn := req.Connection
	args := []string{"--user=" + conn.Username}
	if conn.Socket != "" {
		args = append(args, "--socket="+conn.Socket)
	} else {
		port := conn.Port
		if port == 0 {
			port = 3306
		}
		args = append(args, "--host="+conn.Host, "--port="+strconv.Itoa(port))
	}

	if d.options.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if d.options.Quick {
		args = append(args, "--quick")
	}
	if d.options.SkipLockTables {
		args = append(args, "--skip-lock-tables")
	}
	if d.options.SetGtidPurged != "" {
		args = append(args, "--set-gtid-purged="+d.options.SetGtidPurged)
	}
	if d.options.ColumnStatistics != nil && !*d.options.ColumnStatistics {
		args = append(args, "--column-statistics=0")
	}

	if req.StructureOnly {
		args = append(args, "--no-data", "--add-drop-table")
	} else {
		if d.options.Routines {
			args = append(args, "--routines")
		}
		if d.options.Triggers {
			args = append(args, "--triggers")
		}
	}

	args = append(args, conn.Database)
	return append(args, req.Tables...)
}
