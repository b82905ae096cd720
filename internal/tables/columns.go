package tables

import (
	"context"
	"strings"

	"mysql-db-export/internal/database"
)

// DefaultLargeTypes are the column types dropped when large columns are skipped
var DefaultLargeTypes = []string{"blob", "mediumblob", "longblob", "tinyblob"}

// ColumnFilter selects the columns read for an anonymized table
type ColumnFilter struct {
	catalog    Catalog
	largeTypes map[string]struct{}
	skipLarge  bool
}

// NewColumnFilter creates a filter. When skipLarge is set, columns of the
// given types (DefaultLargeTypes when empty) are dropped as well.
func NewColumnFilter(catalog Catalog, skipLarge bool, largeTypes ...string) *ColumnFilter {
	if len(largeTypes) == 0 {
		largeTypes = DefaultLargeTypes
	}
	types := make(map[string]struct{}, len(largeTypes))
	for _, t := range largeTypes {
		types[strings.ToLower(t)] = struct{}{}
	}
	return &ColumnFilter{catalog: catalog, largeTypes: types, skipLarge: skipLarge}
}

// Columns returns the names of the columns of table minus excluded ones,
// in ordinal order.
func (f *ColumnFilter) Columns(ctx context.Context, table string, exclude []string) ([]string, error) {
	columns, err := f.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	drop := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		drop[name] = struct{}{}
	}

	names := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, ok := drop[col.Name]; ok {
			continue
		}
		if f.skipLarge && f.isLarge(col) {
			continue
		}
		names = append(names, col.Name)
	}
	return names, nil
}

// LargeColumns returns the columns of table whose type counts as large
func (f *ColumnFilter) LargeColumns(ctx context.Context, table string) ([]string, error) {
	columns, err := f.catalog.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, col := range columns {
		if f.isLarge(col) {
			names = append(names, col.Name)
		}
	}
	return names, nil
}

func (f *ColumnFilter) isLarge(col database.Column) bool {
	_, ok := f.largeTypes[strings.ToLower(col.DataType)]
	return ok
}
