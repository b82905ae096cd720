// Package tables turns catalog metadata and profile patterns into the
// authoritative table set of an export.
package tables

import (
	"context"
	"time"

	"mysql-db-export/internal/database"
	"mysql-db-export/internal/logging"
	"mysql-db-export/internal/wildcard"
)

// Catalog is the metadata and row source an export reads from.
// database.Catalog implements it.
type Catalog interface {
	BaseTables(ctx context.Context) ([]string, error)
	Views(ctx context.Context) ([]string, error)
	TableStatus(ctx context.Context, table string) (database.TableStatus, bool, error)
	Columns(ctx context.Context, table string) ([]database.Column, error)
	ShowCreateTable(ctx context.Context, table string) (string, error)
	ShowCreateView(ctx context.Context, view string) (string, bool, error)
	CountRows(ctx context.Context, table string) (int64, error)
	FetchRows(ctx context.Context, table string, columns []string, limit, offset int) ([]string, [][]interface{}, error)
}

// TableInfo describes one table or view selected for export
type TableInfo struct {
	Name            string   `json:"name" yaml:"name"`
	Rows            int64    `json:"rows" yaml:"rows"`
	DataBytes       int64    `json:"data_bytes" yaml:"data_bytes"`
	IndexBytes      int64    `json:"index_bytes" yaml:"index_bytes"`
	IsView          bool     `json:"is_view" yaml:"is_view"`
	StructureOnly   bool     `json:"structure_only" yaml:"structure_only"`
	ExcludedColumns []string `json:"excluded_columns,omitempty" yaml:"excluded_columns,omitempty"`
}

// TotalBytes returns data plus index bytes
func (t TableInfo) TotalBytes() int64 {
	return t.DataBytes + t.IndexBytes
}

// ResolveOptions carries the filtering inputs of one resolution
type ResolveOptions struct {
	// IncludeOnly restricts the universe before exclusion. Nil means all tables.
	IncludeOnly   []string
	Exclude       []string
	StructureOnly []string
	IncludeData   []string
	IncludeViews  bool
	// ExcludeColumns maps table names to columns left out of anonymized reads.
	ExcludeColumns map[string][]string
}

// Resolver applies include/exclude/structure-only patterns to the catalog
type Resolver struct {
	catalog Catalog
	logger  *logging.Logger
}

// NewResolver creates a resolver over catalog
func NewResolver(catalog Catalog, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns base tables first, in catalog order, followed by views.
func (r *Resolver) Resolve(ctx context.Context, opts ResolveOptions) ([]TableInfo, error) {
	startTime := time.Now()

	allTables, err := r.catalog.BaseTables(ctx)
	if err != nil {
		return nil, err
	}
	var allViews []string
	if opts.IncludeViews {
		if allViews, err = r.catalog.Views(ctx); err != nil {
			return nil, err
		}
	}

	tables := Filter(allTables, opts.IncludeOnly, opts.Exclude)
	views := Filter(allViews, opts.IncludeOnly, opts.Exclude)

	universe := append(append([]string{}, tables...), views...)
	structureOnly := wildcard.Subtract(
		wildcard.Expand(opts.StructureOnly, universe),
		wildcard.Expand(opts.IncludeData, universe),
	)
	isStructureOnly := make(map[string]bool, len(structureOnly))
	for _, name := range structureOnly {
		isStructureOnly[name] = true
	}

	infos := make([]TableInfo, 0, len(tables)+len(views))
	structureCount := 0
	for _, name := range tables {
		info := TableInfo{
			Name:            name,
			StructureOnly:   isStructureOnly[name],
			ExcludedColumns: opts.ExcludeColumns[name],
		}

		status, found, err := r.catalog.TableStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			info.Rows = status.Rows
			info.DataBytes = status.DataLength
			info.IndexBytes = status.IndexLength
		}
		if info.StructureOnly {
			structureCount++
		}
		infos = append(infos, info)
	}

	for _, name := range views {
		infos = append(infos, TableInfo{Name: name, IsView: true, StructureOnly: true})
	}

	r.logger.LogTableResolution(databaseName(r.catalog), len(tables), len(views), structureCount, time.Since(startTime))
	return infos, nil
}

// Filter applies includeOnly (when non-nil) and then exclude to names.
func Filter(names, includeOnly, exclude []string) []string {
	if includeOnly != nil {
		names = wildcard.Expand(includeOnly, names)
	}
	return wildcard.Subtract(names, wildcard.Expand(exclude, names))
}

func databaseName(catalog Catalog) string {
	if named, ok := catalog.(interface{ Schema() string }); ok {
		return named.Schema()
	}
	return ""
}

// Names returns the names of infos in order
func Names(infos []TableInfo) []string {
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}
