package export

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"mysql-db-export/internal/estimate"
)

// ExportResult reports the outcome of one export run
type ExportResult struct {
	Success          bool          `json:"success" yaml:"success"`
	OutputPath       string        `json:"path" yaml:"path"`
	FileSize         int64         `json:"file_size" yaml:"file_size"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
	Tables           []string      `json:"tables" yaml:"tables"`
	AnonymizedTables []string      `json:"anonymized_tables" yaml:"anonymized_tables"`
	Compressed       bool          `json:"compressed" yaml:"compressed"`
	Error            string        `json:"error,omitempty" yaml:"error,omitempty"`
	RunID            string        `json:"run_id" yaml:"run_id"`
	Location         string        `json:"location,omitempty" yaml:"location,omitempty"`
	Checksum         string        `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// NewSuccessResult builds a successful result
func NewSuccessResult(path string, size int64, duration time.Duration, tables, anonymized []string, compressed bool) *ExportResult {
	return &ExportResult{
		Success:          true,
		OutputPath:       path,
		FileSize:         size,
		Duration:         duration,
		Tables:           tables,
		AnonymizedTables: anonymized,
		Compressed:       compressed,
	}
}

// NewFailureResult builds a failed result
func NewFailureResult(err error, duration time.Duration) *ExportResult {
	result := &ExportResult{Duration: duration}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// TableCount returns the number of exported tables and views
func (r *ExportResult) TableCount() int {
	return len(r.Tables)
}

// HumanFileSize returns the artifact size, e.g. "1.5 MB"
func (r *ExportResult) HumanFileSize() string {
	return estimate.FormatBytes(r.FileSize)
}

// HumanDuration renders milliseconds below a second, seconds below a
// minute and "Xm Ys" above.
func (r *ExportResult) HumanDuration() string {
	return FormatDuration(r.Duration)
}

// FormatDuration renders d the way HumanDuration does
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 1:
		return fmt.Sprintf("%dms", int64(math.Round(seconds*1000)))
	case seconds < 60:
		return strconv.FormatFloat(math.Round(seconds*100)/100, 'f', -1, 64) + "s"
	default:
		whole := int64(seconds)
		return fmt.Sprintf("%dm %ds", whole/60, whole%60)
	}
}
