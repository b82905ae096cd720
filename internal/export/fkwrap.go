package export

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	apperrors "mysql-db-export/internal/errors"
)

const fkHeader = "-- Set permissive SQL mode for import (allows zero dates)\n" +
	"SET @OLD_SQL_MODE=@@SQL_MODE;\n" +
	"SET SQL_MODE='NO_AUTO_VALUE_ON_ZERO';\n" +
	"-- Disable foreign key checks for import\n" +
	"SET FOREIGN_KEY_CHECKS = 0;\n\n"

const fkFooter = "\n-- Re-enable foreign key checks\n" +
	"SET FOREIGN_KEY_CHECKS = 1;\n" +
	"-- Restore original SQL mode\n" +
	"SET SQL_MODE=@OLD_SQL_MODE;\n"

var fkUnwrapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^--\s*Set permissive SQL mode.*\n`),
	regexp.MustCompile(`(?im)^SET @OLD_SQL_MODE\s*=\s*@@SQL_MODE;[ \t]*\n`),
	regexp.MustCompile(`(?im)^SET SQL_MODE\s*=\s*'NO_AUTO_VALUE_ON_ZERO';[ \t]*\n`),
	regexp.MustCompile(`(?im)^--\s*Disable foreign key checks.*\n`),
	regexp.MustCompile(`(?im)^SET FOREIGN_KEY_CHECKS\s*=\s*0;[ \t]*\n`),
	regexp.MustCompile(`(?im)^--\s*Re-enable foreign key checks.*\n`),
	regexp.MustCompile(`(?im)^SET FOREIGN_KEY_CHECKS\s*=\s*1;[ \t]*\n?`),
	regexp.MustCompile(`(?im)^--\s*Restore original SQL mode.*\n`),
	regexp.MustCompile(`(?im)^SET SQL_MODE\s*=\s*@OLD_SQL_MODE;[ \t]*\n?`),
}

// FKWrapper fences a dump with statements that disable foreign key checks
// and relax SQL mode for the duration of an import.
type FKWrapper struct{}

// NewFKWrapper creates a wrapper
func NewFKWrapper() *FKWrapper {
	return &FKWrapper{}
}

// Header returns the statements written before the dump
func (w *FKWrapper) Header() string { return fkHeader }

// Footer returns the statements written after the dump
func (w *FKWrapper) Footer() string { return fkFooter }

// Wrap returns sql between header and footer
func (w *FKWrapper) Wrap(sql string) string {
	return fkHeader + sql + fkFooter
}

// Unwrap strips the fencing statements. The result is trimmed and ends
// with a single newline.
func (w *FKWrapper) Unwrap(sql string) string {
	for _, re := range fkUnwrapPatterns {
		sql = re.ReplaceAllString(sql, "")
	}
	return strings.TrimSpace(sql) + "\n"
}

// HasWrapper reports whether sql disables foreign key checks
func (w *FKWrapper) HasWrapper(sql string) bool {
	return strings.Contains(sql, "SET FOREIGN_KEY_CHECKS = 0") ||
		strings.Contains(sql, "SET FOREIGN_KEY_CHECKS=0")
}

// WrapFile wraps the file at path in place. The content is streamed into
// path.fk_wrap, which then replaces the original.
func (w *FKWrapper) WrapFile(path string) error {
	tmpPath := path + ".fk_wrap"

	if err := w.writeWrapped(path, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return apperrors.NewResourceError("Cannot replace dump with wrapped file", path, err)
	}
	return nil
}

func (w *FKWrapper) writeWrapped(srcPath, dstPath string) error {
	src, err := os.Open(srcPath) //nolint:gosec // path is produced by the exporter
	if err != nil {
		return apperrors.NewResourceError("Cannot read dump", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath) //nolint:gosec // path is produced by the exporter
	if err != nil {
		return apperrors.NewResourceError("Cannot create wrapped dump", dstPath, err)
	}

	bw := bufio.NewWriterSize(dst, chunkSize)
	if _, err := bw.WriteString(fkHeader); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot write wrapped dump", dstPath, err)
	}
	if _, err := io.CopyBuffer(bw, src, make([]byte, chunkSize)); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot write wrapped dump", dstPath, err)
	}
	if _, err := bw.WriteString(fkFooter); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot write wrapped dump", dstPath, err)
	}
	if err := bw.Flush(); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot write wrapped dump", dstPath, err)
	}
	if err := dst.Close(); err != nil {
		return apperrors.NewResourceError("Cannot write wrapped dump", dstPath, err)
	}
	return nil
}
