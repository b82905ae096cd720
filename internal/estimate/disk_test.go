package estimate

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	apperrors "mysql-db-export/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedStat(available int64) StatFunc {
	return func(string) (int64, error) { return available, nil }
}

func TestDiskCheckerCheck(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name           string
		checker        DiskChecker
		estimated      int64
		wantSufficient bool
		wantRequired   int64
	}{
		{
			name:           "minimum free dominates",
			checker:        DiskChecker{Enabled: true, SafetyMargin: 1.5, MinimumFreeMB: 100, Stat: fixedStat(50 * mib)},
			estimated:      40 * mib,
			wantSufficient: false,
			wantRequired:   100 * mib,
		},
		{
			name:           "margin dominates",
			checker:        DiskChecker{Enabled: true, SafetyMargin: 1.5, MinimumFreeMB: 10, Stat: fixedStat(200 * mib)},
			estimated:      100 * mib,
			wantSufficient: true,
			wantRequired:   150 * mib,
		},
		{
			name:           "margin rounds up",
			checker:        DiskChecker{Enabled: true, SafetyMargin: 1.5, Stat: fixedStat(1)},
			estimated:      3,
			wantSufficient: false,
			wantRequired:   5,
		},
		{
			name:           "exactly enough",
			checker:        DiskChecker{Enabled: true, SafetyMargin: 1, Stat: fixedStat(1000)},
			estimated:      1000,
			wantSufficient: true,
			wantRequired:   1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checker.Check(dir, tt.estimated)
			assert.Equal(t, tt.wantSufficient, result.Sufficient)
			assert.Equal(t, tt.wantRequired, result.RequiredBytes)
			assert.Equal(t, tt.estimated, result.EstimatedSize)
			if tt.wantSufficient {
				assert.Empty(t, result.Warning)
				assert.NoError(t, result.Err())
			} else {
				assert.NotEmpty(t, result.Warning)
				assert.Error(t, result.Err())
			}
		})
	}
}

func TestDiskCheckerInsufficientWarning(t *testing.T) {
	checker := DiskChecker{Enabled: true, SafetyMargin: 1.5, MinimumFreeMB: 100, Stat: fixedStat(50 * mib)}

	result := checker.Check(t.TempDir(), 40*mib)

	assert.Equal(t, "Insufficient disk space. Need 100.00 MB but only 50.00 MB available (shortfall: 50.00 MB)", result.Warning)
	assert.Equal(t, int64(50*mib), result.Shortfall())
	assert.Equal(t, 50.0, result.ShortfallMB())
	assert.Equal(t, 100.0, result.RequiredMB())
	assert.Equal(t, 50.0, result.AvailableMB())

	var spaceErr *apperrors.InsufficientSpaceError
	require.True(t, errors.As(result.Err(), &spaceErr))
	assert.Equal(t, int64(50*mib), spaceErr.Shortfall())
}

func TestDiskCheckerDisabled(t *testing.T) {
	checker := DiskChecker{Enabled: false, Stat: fixedStat(0)}

	result := checker.Check("/does/not/matter", 5*1024*mib)

	assert.True(t, result.Sufficient)
	assert.Equal(t, int64(math.MaxInt64), result.AvailableBytes)
	assert.Equal(t, int64(5*1024*mib), result.RequiredBytes)
	assert.Zero(t, result.Shortfall())
}

func TestDiskCheckerMonotonicInEstimate(t *testing.T) {
	checker := DiskChecker{Enabled: true, SafetyMargin: 1.2, MinimumFreeMB: 1, Stat: fixedStat(10 * mib)}
	dir := t.TempDir()

	seenInsufficient := false
	for est := int64(0); est <= 20*mib; est += mib / 2 {
		result := checker.Check(dir, est)
		if seenInsufficient {
			assert.False(t, result.Sufficient, "larger estimate %d became sufficient again", est)
		}
		if !result.Sufficient {
			seenInsufficient = true
		}
	}
	assert.True(t, seenInsufficient)
}

func TestDiskCheckerStatFailureMeansNoSpace(t *testing.T) {
	checker := DiskChecker{
		Enabled:      true,
		SafetyMargin: 1,
		Stat:         func(string) (int64, error) { return 0, errors.New("statfs failed") },
	}

	dir := t.TempDir()
	result := checker.Check(dir, 1)

	assert.False(t, result.Sufficient)
	assert.Zero(t, result.AvailableBytes)
	assert.Contains(t, result.Warning, "Cannot determine free disk space")
	assert.Contains(t, result.Warning, "statfs failed")
	assert.NotContains(t, result.Warning, "only 0.00 MB available")

	err := result.Err()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeResource))
	assert.Contains(t, err.Error(), "statfs failed")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, dir, appErr.Context["path"])
}

func TestDiskCheckerUsesExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	var statted string
	checker := DiskChecker{
		Enabled:      true,
		SafetyMargin: 1,
		Stat: func(path string) (int64, error) {
			statted = path
			return mib, nil
		},
	}

	checker.Check(filepath.Join(dir, "not", "yet", "created"), 1)

	assert.Equal(t, dir, statted)
}

func TestExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "dump.sql")
	require.NoError(t, os.WriteFile(file, []byte("--"), 0o644))

	got, err := ExistingAncestor(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = ExistingAncestor(file)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestStatfsAvailable(t *testing.T) {
	available, err := StatfsAvailable(t.TempDir())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, available, int64(0))
}

func TestIsWritable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.True(t, IsWritable(dir))
	assert.True(t, IsWritable(filepath.Join(dir, "new-subdir")))
	assert.False(t, IsWritable(file))
	assert.False(t, IsWritable(filepath.Join(dir, "missing", "deeper")))
}
