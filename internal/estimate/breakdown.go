package estimate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mysql-db-export/internal/tables"
)

const topTablesLimit = 10

// Size category thresholds
const (
	largeTableBytes  = 100 * mib
	mediumTableBytes = 10 * mib
	smallTableBytes  = 1 * mib
)

// Summary is the headline section of a breakdown
type Summary struct {
	TotalTables         int    `json:"total_tables" yaml:"total_tables"`
	TotalRows           int64  `json:"total_rows" yaml:"total_rows"`
	DatabaseSize        string `json:"database_size" yaml:"database_size"`
	EstimatedExport     string `json:"estimated_export_size" yaml:"estimated_export_size"`
	EstimatedCompressed string `json:"estimated_compressed_size" yaml:"estimated_compressed_size"`
	CompressionSavings  string `json:"compression_savings" yaml:"compression_savings"`
}

// TableLine is one table entry of a breakdown listing
type TableLine struct {
	Name          string `json:"name" yaml:"name"`
	Rows          int64  `json:"rows" yaml:"rows"`
	Size          string `json:"size" yaml:"size"`
	SizeBytes     int64  `json:"size_bytes" yaml:"size_bytes"`
	StructureOnly bool   `json:"structure_only" yaml:"structure_only"`
	IsView        bool   `json:"is_view" yaml:"is_view"`
}

// Category groups tables of a size range
type Category struct {
	Key    string   `json:"key" yaml:"key"`
	Label  string   `json:"label" yaml:"label"`
	Tables []string `json:"tables" yaml:"tables"`
}

// Count returns the number of tables in the category
func (c Category) Count() int {
	return len(c.Tables)
}

// SkippedTable describes rows left out by a structure-only table
type SkippedTable struct {
	Name        string `json:"name" yaml:"name"`
	RowsSkipped int64  `json:"rows_skipped" yaml:"rows_skipped"`
	SizeSaved   string `json:"size_saved" yaml:"size_saved"`
}

// Recommendation is an actionable note. Type is error, warning or info.
type Recommendation struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

// Breakdown is the detailed report of an estimate
type Breakdown struct {
	Summary         Summary          `json:"summary" yaml:"summary"`
	DiskSpace       DiskSpaceResult  `json:"disk_space" yaml:"disk_space"`
	TopTables       []TableLine      `json:"top_tables" yaml:"top_tables"`
	Categories      []Category       `json:"by_category" yaml:"by_category"`
	StructureOnly   []SkippedTable   `json:"structure_only" yaml:"structure_only"`
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
}

// GenerateBreakdown builds the detailed report of est
func GenerateBreakdown(est SizeEstimate) Breakdown {
	sorted := append([]tables.TableInfo(nil), est.Tables...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalBytes() > sorted[j].TotalBytes()
	})

	top := sorted
	if len(top) > topTablesLimit {
		top = top[:topTablesLimit]
	}

	b := Breakdown{
		Summary: Summary{
			TotalTables:         est.TableCount,
			TotalRows:           est.RowCount,
			DatabaseSize:        est.HumanTotal(),
			EstimatedExport:     est.HumanExport(),
			EstimatedCompressed: est.HumanCompressed(),
			CompressionSavings:  formatPercentage(est.SavingsRatio()),
		},
		DiskSpace:     est.DiskSpace,
		TopTables:     make([]TableLine, 0, len(top)),
		Categories:    categorize(sorted),
		StructureOnly: []SkippedTable{},
	}

	for _, t := range top {
		b.TopTables = append(b.TopTables, TableLine{
			Name:          t.Name,
			Rows:          t.Rows,
			Size:          FormatBytes(t.TotalBytes()),
			SizeBytes:     t.TotalBytes(),
			StructureOnly: t.StructureOnly,
			IsView:        t.IsView,
		})
	}

	for _, t := range sorted {
		if t.StructureOnly {
			b.StructureOnly = append(b.StructureOnly, SkippedTable{
				Name:        t.Name,
				RowsSkipped: t.Rows,
				SizeSaved:   FormatBytes(t.TotalBytes()),
			})
		}
	}

	b.Recommendations = recommendations(est)
	return b
}

func categorize(sorted []tables.TableInfo) []Category {
	categories := []Category{
		{Key: "large", Label: "> 100 MB", Tables: []string{}},
		{Key: "medium", Label: "10 - 100 MB", Tables: []string{}},
		{Key: "small", Label: "1 - 10 MB", Tables: []string{}},
		{Key: "tiny", Label: "< 1 MB", Tables: []string{}},
	}

	for _, t := range sorted {
		size := t.TotalBytes()
		idx := 3
		switch {
		case size >= largeTableBytes:
			idx = 0
		case size >= mediumTableBytes:
			idx = 1
		case size >= smallTableBytes:
			idx = 2
		}
		categories[idx].Tables = append(categories[idx].Tables, t.Name)
	}
	return categories
}

func recommendations(est SizeEstimate) []Recommendation {
	recs := []Recommendation{}

	if !est.DiskSpace.Sufficient {
		recs = append(recs, Recommendation{
			Type:    "error",
			Message: "Insufficient disk space. Consider using compression or excluding large tables.",
		})
	}

	var large []string
	for _, t := range est.Tables {
		if t.TotalBytes() > largeTableBytes && !t.StructureOnly {
			large = append(large, t.Name)
		}
	}
	if len(large) > 0 {
		recs = append(recs, Recommendation{
			Type:    "warning",
			Message: "Large tables detected: " + strings.Join(large, ", ") + ". Consider using structure_only for these tables.",
		})
	}

	if est.SavingsRatio() > 0.7 {
		recs = append(recs, Recommendation{
			Type:    "info",
			Message: "High compression ratio expected. Compression is recommended.",
		})
	}
	return recs
}

func formatPercentage(ratio float64) string {
	return strconv.FormatFloat(math.Round(ratio*100), 'f', -1, 64) + "%"
}

func formatMB(mb float64) string {
	if mb >= float64(math.MaxInt64)/mib {
		return "unlimited"
	}
	return strconv.FormatFloat(mb, 'f', -1, 64)
}

// FormatReport renders the breakdown as plain text
func (b Breakdown) FormatReport() string {
	var lines []string

	lines = append(lines,
		"=== Database Export Size Estimate ===",
		"",
		"Summary:",
		fmt.Sprintf("  Tables: %d", b.Summary.TotalTables),
		"  Rows: "+FormatCount(b.Summary.TotalRows),
		"  Database Size: "+b.Summary.DatabaseSize,
		"  Estimated Export: "+b.Summary.EstimatedExport,
		fmt.Sprintf("  Compressed: %s (%s savings)", b.Summary.EstimatedCompressed, b.Summary.CompressionSavings),
		"",
		"Disk Space:",
	)

	status := "OK"
	if !b.DiskSpace.Sufficient {
		status = "INSUFFICIENT"
	}
	lines = append(lines,
		"  Status: "+status,
		"  Available: "+formatMB(b.DiskSpace.AvailableMB())+" MB",
		"  Required: "+formatMB(b.DiskSpace.RequiredMB())+" MB",
	)
	if b.DiskSpace.Warning != "" {
		lines = append(lines, "  Warning: "+b.DiskSpace.Warning)
	}

	lines = append(lines, "", "Top 10 Largest Tables:")
	for _, t := range b.TopTables {
		suffix := ""
		if t.StructureOnly {
			suffix = " (structure only)"
		}
		lines = append(lines, fmt.Sprintf("  - %s: %s (%s rows)%s", t.Name, t.Size, FormatCount(t.Rows), suffix))
	}

	if len(b.Recommendations) > 0 {
		lines = append(lines, "", "Recommendations:")
		for _, r := range b.Recommendations {
			lines = append(lines, fmt.Sprintf("  [%s] %s", r.Type, r.Message))
		}
	}

	return strings.Join(lines, "\n")
}
