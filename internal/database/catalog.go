package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mysql-db-export/internal/errors"
	"mysql-db-export/internal/logging"
)

// TableStatus is the information_schema size metadata of one table
type TableStatus struct {
	Name        string
	Rows        int64
	DataLength  int64
	IndexLength int64
	IsView      bool
}

// Column is a column name with its lowercase data type
type Column struct {
	Name     string
	DataType string
}

// Catalog answers metadata and row queries against one schema
type Catalog struct {
	db     *sql.DB
	schema string
	logger *logging.Logger
}

// NewCatalog creates a catalog for the given schema
func NewCatalog(db *sql.DB, schema string, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Catalog{db: db, schema: schema, logger: logger}
}

// Schema returns the schema name the catalog reads from
func (c *Catalog) Schema() string {
	return c.schema
}

// BaseTables lists the base tables of the schema
func (c *Catalog) BaseTables(ctx context.Context) ([]string, error) {
	return c.listTables(ctx, "BASE TABLE")
}

// Views lists the views of the schema
func (c *Catalog) Views(ctx context.Context) ([]string, error) {
	return c.listTables(ctx, "VIEW")
}

func (c *Catalog) listTables(ctx context.Context, tableType string) ([]string, error) {
	query := `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = ? ORDER BY TABLE_NAME`

	startTime := time.Now()
	rows, err := c.db.QueryContext(ctx, query, c.schema, tableType)
	if err != nil {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, err)
		return nil, errors.WrapError(err, "failed to list tables")
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.WrapError(err, "failed to scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "error iterating table rows")
	}

	c.logger.LogSQLExecution(query, time.Since(startTime), int64(len(names)), nil)
	return names, nil
}

// TableStatus returns the size metadata of a table. The boolean is false
// when the table is absent, e.g. dropped while the export was planning.
func (c *Catalog) TableStatus(ctx context.Context, table string) (TableStatus, bool, error) {
	query := `SELECT TABLE_NAME, TABLE_ROWS, DATA_LENGTH, INDEX_LENGTH, TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`

	var (
		name                string
		rowCount, data, idx sql.NullInt64
		tableType           sql.NullString
	)

	startTime := time.Now()
	err := c.db.QueryRowContext(ctx, query, c.schema, table).Scan(&name, &rowCount, &data, &idx, &tableType)
	if err == sql.ErrNoRows {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, nil)
		return TableStatus{Name: table}, false, nil
	}
	c.logger.LogSQLExecution(query, time.Since(startTime), 1, err)
	if err != nil {
		return TableStatus{}, false, errors.WrapError(err, fmt.Sprintf("failed to read status of table %s", table))
	}

	return TableStatus{
		Name:        name,
		Rows:        rowCount.Int64,
		DataLength:  data.Int64,
		IndexLength: idx.Int64,
		IsView:      tableType.String == "VIEW",
	}, true, nil
}

// Columns lists the columns of a table in ordinal order
func (c *Catalog) Columns(ctx context.Context, table string) ([]Column, error) {
	query := `SELECT COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	startTime := time.Now()
	rows, err := c.db.QueryContext(ctx, query, c.schema, table)
	if err != nil {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, err)
		return nil, errors.WrapError(err, fmt.Sprintf("failed to list columns of %s", table))
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, errors.WrapError(err, "failed to scan column")
		}
		col.DataType = strings.ToLower(col.DataType)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, "error iterating column rows")
	}

	c.logger.LogSQLExecution(query, time.Since(startTime), int64(len(columns)), nil)
	return columns, nil
}

// ShowCreateTable returns the CREATE TABLE statement of a table
func (c *Catalog) ShowCreateTable(ctx context.Context, table string) (string, error) {
	stmt, _, err := c.showCreate(ctx, fmt.Sprintf("SHOW CREATE TABLE %s", quoteIdentifier(table)), "Create Table")
	return stmt, err
}

// ShowCreateView returns the CREATE VIEW statement of a view. The boolean is
// false when the server returned no definition.
func (c *Catalog) ShowCreateView(ctx context.Context, view string) (string, bool, error) {
	return c.showCreate(ctx, fmt.Sprintf("SHOW CREATE VIEW %s", quoteIdentifier(view)), "Create View")
}

func (c *Catalog) showCreate(ctx context.Context, query, column string) (string, bool, error) {
	startTime := time.Now()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, err)
		return "", false, errors.WrapError(err, "failed to read definition")
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return "", false, errors.WrapError(err, "failed to read definition columns")
	}
	if !rows.Next() {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, rows.Err())
		return "", false, rows.Err()
	}

	values := make([]sql.NullString, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return "", false, errors.WrapError(err, "failed to scan definition")
	}
	c.logger.LogSQLExecution(query, time.Since(startTime), 1, nil)

	for i, name := range names {
		if strings.EqualFold(name, column) && values[i].Valid {
			return values[i].String, true, nil
		}
	}
	return "", false, nil
}

// CountRows returns the exact number of rows in a table
func (c *Catalog) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(table))

	var count int64
	startTime := time.Now()
	err := c.db.QueryRowContext(ctx, query).Scan(&count)
	c.logger.LogSQLExecution(query, time.Since(startTime), 1, err)
	if err != nil {
		return 0, errors.WrapError(err, fmt.Sprintf("failed to count rows of %s", table))
	}
	return count, nil
}

// FetchRows reads one page of a table. An empty column list selects every
// column. Byte slices are copied into strings.
func (c *Catalog) FetchRows(ctx context.Context, table string, columns []string, limit, offset int) ([]string, [][]interface{}, error) {
	query := fmt.Sprintf("%s LIMIT %d OFFSET %d", SelectStatement(table, columns), limit, offset)

	startTime := time.Now()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		c.logger.LogSQLExecution(query, time.Since(startTime), 0, err)
		return nil, nil, errors.WrapError(err, fmt.Sprintf("failed to read rows of %s", table))
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.WrapError(err, "failed to read result columns")
	}

	var result [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.WrapError(err, fmt.Sprintf("failed to scan row of %s", table))
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.WrapError(err, "error iterating rows")
	}

	c.logger.LogSQLExecution(query, time.Since(startTime), int64(len(result)), nil)
	return names, result, nil
}

// SelectStatement builds a SELECT over an explicit column list, or * when empty
func SelectStatement(table string, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("SELECT * FROM %s", quoteIdentifier(table))
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdentifier(table))
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
