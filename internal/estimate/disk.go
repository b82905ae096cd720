// Package estimate projects the size of an export and checks it against
// the free space of the target filesystem.
package estimate

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	apperrors "mysql-db-export/internal/errors"

	"golang.org/x/sys/unix"
)

const mib = 1024 * 1024

// StatFunc returns the bytes available to unprivileged users at path
type StatFunc func(path string) (int64, error)

// DiskSpaceResult is the outcome of a free space preflight
type DiskSpaceResult struct {
	Sufficient     bool    `json:"sufficient" yaml:"sufficient"`
	AvailableBytes int64   `json:"available_bytes" yaml:"available_bytes"`
	RequiredBytes  int64   `json:"required_bytes" yaml:"required_bytes"`
	EstimatedSize  int64   `json:"estimated_size" yaml:"estimated_size"`
	SafetyMargin   float64 `json:"safety_margin" yaml:"safety_margin"`
	Warning        string  `json:"warning,omitempty" yaml:"warning,omitempty"`
	Path           string  `json:"path" yaml:"path"`
	// Cause is set when free space could not be read at all.
	Cause error `json:"-" yaml:"-"`
}

// AvailableMB returns the available space in MB rounded to 2 decimals
func (r DiskSpaceResult) AvailableMB() float64 {
	return toMB(r.AvailableBytes)
}

// RequiredMB returns the required space in MB rounded to 2 decimals
func (r DiskSpaceResult) RequiredMB() float64 {
	return toMB(r.RequiredBytes)
}

// Shortfall returns the missing bytes, zero when sufficient
func (r DiskSpaceResult) Shortfall() int64 {
	if r.RequiredBytes <= r.AvailableBytes {
		return 0
	}
	return r.RequiredBytes - r.AvailableBytes
}

// ShortfallMB returns the shortfall in MB rounded to 2 decimals
func (r DiskSpaceResult) ShortfallMB() float64 {
	return toMB(r.Shortfall())
}

// Err returns an InsufficientSpaceError when the check failed
func (r DiskSpaceResult) Err() error {
	if r.Sufficient {
		return nil
	}
	if r.Cause != nil {
		return r.Cause
	}
	return apperrors.NewInsufficientSpaceError(r.Path, r.AvailableBytes, r.RequiredBytes)
}

func toMB(bytes int64) float64 {
	return math.Round(float64(bytes)/mib*100) / 100
}

// DiskChecker validates free space against an estimated export size
type DiskChecker struct {
	Enabled       bool
	SafetyMargin  float64
	MinimumFreeMB int64
	Stat          StatFunc
}

// NewDiskChecker creates a checker reading free space with statfs(2)
func NewDiskChecker(enabled bool, safetyMargin float64, minimumFreeMB int64) *DiskChecker {
	return &DiskChecker{
		Enabled:       enabled,
		SafetyMargin:  safetyMargin,
		MinimumFreeMB: minimumFreeMB,
		Stat:          StatfsAvailable,
	}
}

// Check compares free space at the nearest existing ancestor of path with
// max(ceil(estimated * margin), minimum free).
func (c *DiskChecker) Check(path string, estimated int64) DiskSpaceResult {
	if !c.Enabled {
		return DiskSpaceResult{
			Sufficient:     true,
			AvailableBytes: math.MaxInt64,
			RequiredBytes:  estimated,
			EstimatedSize:  estimated,
			SafetyMargin:   c.SafetyMargin,
			Path:           path,
		}
	}

	available, statErr := c.AvailableSpace(path)
	required := int64(math.Ceil(float64(estimated) * c.SafetyMargin))
	if minimum := c.MinimumFreeMB * mib; minimum > required {
		required = minimum
	}

	result := DiskSpaceResult{
		Sufficient:     available >= required,
		AvailableBytes: available,
		RequiredBytes:  required,
		EstimatedSize:  estimated,
		SafetyMargin:   c.SafetyMargin,
		Path:           path,
	}
	if statErr != nil {
		result.Sufficient = false
		result.Cause = statErr
		result.Warning = fmt.Sprintf("Cannot determine free disk space for %s: %v", path, statErr)
		return result
	}
	if !result.Sufficient {
		result.Warning = fmt.Sprintf("Insufficient disk space. Need %.2f MB but only %.2f MB available (shortfall: %.2f MB)",
			result.RequiredMB(), result.AvailableMB(), result.ShortfallMB())
	}
	return result
}

// AvailableSpace returns free bytes at the nearest existing ancestor of path.
// Failures come back as ResourceErrors naming the directory.
func (c *DiskChecker) AvailableSpace(path string) (int64, error) {
	dir, err := ExistingAncestor(path)
	if err != nil {
		if _, ok := err.(*apperrors.AppError); ok {
			return 0, err
		}
		return 0, apperrors.NewResourceError("Cannot inspect output directory", path, err)
	}
	stat := c.Stat
	if stat == nil {
		stat = StatfsAvailable
	}
	available, err := stat(dir)
	if err != nil {
		if _, ok := err.(*apperrors.AppError); ok {
			return 0, err
		}
		return 0, apperrors.NewResourceError("Cannot read filesystem status", dir, err)
	}
	return available, nil
}

// StatfsAvailable reads the available block count of the filesystem at path
func StatfsAvailable(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, apperrors.NewResourceError("Cannot read filesystem status", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

// ExistingAncestor returns path itself when it is a directory, otherwise the
// closest parent directory that exists.
func ExistingAncestor(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil && info.IsDir() {
			return current, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", apperrors.NewResourceError("No existing directory", path, os.ErrNotExist)
		}
		current = parent
	}
}

// IsWritable reports whether files can be created in path, or in its parent
// when path does not exist yet.
func IsWritable(path string) bool {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false
		}
		return unix.Access(path, unix.W_OK) == nil
	}
	parent := filepath.Dir(filepath.Clean(path))
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return false
	}
	return unix.Access(parent, unix.W_OK) == nil
}
