package export

import (
	"os"
	"path/filepath"
	"sort"

	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/logging"
)

// ArtifactPattern matches dump artifacts and their temp files
const ArtifactPattern = "*.sql*"

// Cleaner prunes previous export artifacts from the output directory
type Cleaner struct {
	enabled    bool
	keepRecent int
	logger     *logging.Logger
}

// NewCleaner creates a cleaner. keepRecent 0 removes every artifact.
func NewCleaner(enabled bool, keepRecent int, logger *logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if keepRecent < 0 {
		keepRecent = 0
	}
	return &Cleaner{enabled: enabled, keepRecent: keepRecent, logger: logger}
}

// Artifacts lists artifacts in dir, newest first by modification time
func (c *Cleaner) Artifacts(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ArtifactPattern))
	if err != nil {
		return nil, apperrors.NewResourceError("Cannot list artifacts", dir, err)
	}

	type artifact struct {
		path  string
		mtime int64
	}
	files := make([]artifact, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, artifact{path: path, mtime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mtime > files[j].mtime })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Cleanup removes artifacts beyond the keep-recent count. Unlink failures
// are logged and skipped. It returns the number of files removed.
func (c *Cleaner) Cleanup(dir string) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	files, err := c.Artifacts(dir)
	if err != nil {
		return 0, err
	}
	if c.keepRecent > 0 && len(files) <= c.keepRecent {
		return 0, nil
	}

	return c.remove(files[c.keepRecent:]), nil
}

// Prune removes every artifact in dir regardless of configuration
func (c *Cleaner) Prune(dir string) (int, error) {
	files, err := c.Artifacts(dir)
	if err != nil {
		return 0, err
	}
	return c.remove(files), nil
}

func (c *Cleaner) remove(files []string) int {
	removed := 0
	for _, path := range files {
		err := os.Remove(path)
		c.logger.LogArtifactCleanup(path, err)
		if err == nil {
			removed++
		}
	}
	return removed
}
