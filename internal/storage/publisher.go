// Package storage publishes finished export artifacts to a local directory
// or an object store.
package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// Metadata is attached to the published object. Keys must be valid
// identifiers for every provider, so use lowercase and underscores.
type Metadata map[string]string

// Publisher copies a finished artifact to its destination and returns the
// location it was written to.
type Publisher interface {
	Publish(ctx context.Context, localPath string, metadata Metadata) (string, error)
}

// ObjectKey returns the remote key of localPath under prefix
func ObjectKey(prefix, localPath string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + filepath.Base(localPath)
}

// ContentType returns the MIME type of an artifact by its extension
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return "application/gzip"
	case ".zst":
		return "application/zstd"
	case ".lz4":
		return "application/x-lz4"
	case ".sql":
		return "application/sql"
	default:
		return "application/octet-stream"
	}
}
