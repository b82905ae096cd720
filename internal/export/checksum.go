package export

import (
	"fmt"
	"io"
	"os"

	apperrors "mysql-db-export/internal/errors"

	"github.com/zeebo/xxh3"
)

// ChecksumPrefix names the hash in a checksum string
const ChecksumPrefix = "xxh3:"

// ArtifactChecksum returns the xxh3 digest of the file at path, e.g.
// "xxh3:9a0f5c1e2b7d4388".
func ArtifactChecksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // artifact path produced by the exporter
	if err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", path, err)
	}
	return fmt.Sprintf("%s%016x", ChecksumPrefix, h.Sum64()), nil
}
