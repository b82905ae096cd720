package storage

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	apperrors "mysql-db-export/internal/errors"
)

// LocalPublisher copies artifacts into a directory
type LocalPublisher struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalPublisher creates a publisher writing below config.BasePath
func NewLocalPublisher(config *LocalConfig) (*LocalPublisher, error) {
	if config == nil {
		return nil, apperrors.NewConfigurationError("local publish configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid local publish configuration", err)
	}
	perm := config.Permissions
	if perm == 0 {
		perm = 0o755
	}
	return &LocalPublisher{basePath: config.BasePath, permissions: perm}, nil
}

// Publish copies localPath into the base directory. Metadata is not stored.
func (p *LocalPublisher) Publish(ctx context.Context, localPath string, _ Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.basePath, p.permissions); err != nil {
		return "", apperrors.NewResourceError("Cannot create publish directory", p.basePath, err)
	}

	dst := filepath.Join(p.basePath, filepath.Base(localPath))
	if same, _ := samePath(localPath, dst); same {
		return dst, nil
	}

	if err := copyFile(localPath, dst); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath) //nolint:gosec // artifact path produced by the exporter
	if err != nil {
		return apperrors.NewResourceError("Cannot read artifact", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath) //nolint:gosec // destination under configured base path
	if err != nil {
		return apperrors.NewResourceError("Cannot create published artifact", dstPath, err)
	}
	bw := bufio.NewWriter(dst)
	if _, err := io.Copy(bw, src); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot copy artifact", dstPath, err)
	}
	if err := bw.Flush(); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot copy artifact", dstPath, err)
	}
	if err := dst.Close(); err != nil {
		return apperrors.NewResourceError("Cannot copy artifact", dstPath, err)
	}
	return nil
}
