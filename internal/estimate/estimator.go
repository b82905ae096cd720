package estimate

import (
	"math"

	"mysql-db-export/internal/tables"
)

const (
	// DefaultExportRatio is the share of data bytes a logical dump occupies
	DefaultExportRatio = 0.7
	// DefaultCompressionRatio is the compressed share of the logical dump
	DefaultCompressionRatio = 0.2
)

// SizeEstimate is the projected size of an export
type SizeEstimate struct {
	TotalBytes      int64              `json:"total_bytes" yaml:"total_bytes"`
	DataBytes       int64              `json:"data_bytes" yaml:"data_bytes"`
	IndexBytes      int64              `json:"index_bytes" yaml:"index_bytes"`
	TableCount      int                `json:"table_count" yaml:"table_count"`
	RowCount        int64              `json:"row_count" yaml:"row_count"`
	ExportBytes     int64              `json:"estimated_export_size" yaml:"estimated_export_size"`
	CompressedBytes int64              `json:"estimated_compressed_size" yaml:"estimated_compressed_size"`
	Compressed      bool               `json:"compressed" yaml:"compressed"`
	Tables          []tables.TableInfo `json:"tables" yaml:"tables"`
	DiskSpace       DiskSpaceResult    `json:"disk_space" yaml:"disk_space"`
}

// HumanTotal returns the database size of the exported tables
func (e SizeEstimate) HumanTotal() string {
	return FormatBytes(e.TotalBytes)
}

// HumanExport returns the uncompressed export size
func (e SizeEstimate) HumanExport() string {
	return FormatBytes(e.ExportBytes)
}

// HumanCompressed returns the final artifact size
func (e SizeEstimate) HumanCompressed() string {
	return FormatBytes(e.CompressedBytes)
}

// SavingsRatio returns 1 - compressed/export rounded to two decimals
func (e SizeEstimate) SavingsRatio() float64 {
	if e.ExportBytes == 0 {
		return 0
	}
	return math.Round((1-float64(e.CompressedBytes)/float64(e.ExportBytes))*100) / 100
}

// FinalBytes is the size the disk check is run against
func (e SizeEstimate) FinalBytes() int64 {
	if e.Compressed {
		return e.CompressedBytes
	}
	return e.ExportBytes
}

// Estimator projects export sizes from catalog metadata
type Estimator struct {
	Checker          *DiskChecker
	ExportRatio      float64
	CompressionRatio float64
	OutputPath       string
}

// NewEstimator creates an estimator with the default ratios
func NewEstimator(checker *DiskChecker, outputPath string) *Estimator {
	return &Estimator{
		Checker:          checker,
		ExportRatio:      DefaultExportRatio,
		CompressionRatio: DefaultCompressionRatio,
		OutputPath:       outputPath,
	}
}

// Estimate sums the data of every table that will carry rows. Structure-only
// tables and views count towards TableCount but contribute no bytes.
func (e *Estimator) Estimate(infos []tables.TableInfo, compressed bool) SizeEstimate {
	est := SizeEstimate{
		TableCount: len(infos),
		Compressed: compressed,
		Tables:     infos,
	}

	for _, t := range infos {
		if t.StructureOnly {
			continue
		}
		est.DataBytes += t.DataBytes
		est.IndexBytes += t.IndexBytes
		est.RowCount += t.Rows
	}

	est.TotalBytes = est.DataBytes + est.IndexBytes
	est.ExportBytes = e.ExportSize(est.DataBytes)
	est.CompressedBytes = est.ExportBytes
	if compressed {
		est.CompressedBytes = e.CompressedSize(est.ExportBytes)
	}

	checker := e.Checker
	if checker == nil {
		checker = &DiskChecker{}
	}
	est.DiskSpace = checker.Check(e.OutputPath, est.FinalBytes())
	return est
}

// ExportSize projects the logical dump size of dataBytes
func (e *Estimator) ExportSize(dataBytes int64) int64 {
	return int64(math.Round(float64(dataBytes) * e.ratio(e.ExportRatio, DefaultExportRatio)))
}

// CompressedSize projects the compressed size of exportBytes
func (e *Estimator) CompressedSize(exportBytes int64) int64 {
	return int64(math.Round(float64(exportBytes) * e.ratio(e.CompressionRatio, DefaultCompressionRatio)))
}

// TableSize projects the dump contribution of one table
func (e *Estimator) TableSize(table tables.TableInfo) int64 {
	if table.StructureOnly {
		return 0
	}
	return e.ExportSize(table.DataBytes)
}

func (e *Estimator) ratio(configured, fallback float64) float64 {
	if configured <= 0 {
		return fallback
	}
	return configured
}
