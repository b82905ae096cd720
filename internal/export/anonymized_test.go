package export

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"mysql-db-export/internal/anonymize"
	"mysql-db-export/internal/database"
	"mysql-db-export/internal/logging"
	"mysql-db-export/internal/tables"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersDDL = "CREATE TABLE `users` (\n  `id` int NOT NULL,\n  `email` varchar(255) DEFAULT NULL,\n  `avatar` blob\n)"

func fixedEmailRules(t *testing.T) *anonymize.Config {
	t.Helper()
	rules, err := anonymize.LoadConfig(anonymize.RawRules{
		"users": {"email": {"strategy": "fixed", "value": "anon@example.com"}},
	}, nil, nil)
	require.NoError(t, err)
	return rules
}

func newSQLMockWriter(t *testing.T, batchSize int) (*AnonymizedTableWriter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.NewNopLogger()
	catalog := database.NewCatalog(db, "shop", logger)
	engine := anonymize.NewEngine(anonymize.NewRegistry(anonymize.NewGofakeitGenerator(1)), logger)
	return NewAnonymizedTableWriter(catalog, tables.NewColumnFilter(catalog, false), engine, batchSize, logger), mock
}

func expectTableHead(mock sqlmock.Sqlmock, count int) {
	mock.ExpectQuery(regexp.QuoteMeta("SHOW CREATE TABLE `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Create Table"}).AddRow("users", usersDDL))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(count))
	mock.ExpectQuery("SELECT COLUMN_NAME, DATA_TYPE").
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE"}).
			AddRow("id", "int").
			AddRow("email", "varchar").
			AddRow("avatar", "blob"))
}

func TestAnonymizedTableWriterPages(t *testing.T) {
	writer, mock := newSQLMockWriter(t, 2)
	expectTableHead(mock, 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email` FROM `users` LIMIT 2 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(1, "alice@shop.test").
			AddRow(2, "bob@shop.test"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email` FROM `users` LIMIT 2 OFFSET 2")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(3, "carol@shop.test"))

	var out bytes.Buffer
	written, err := writer.WriteTable(context.Background(), &out,
		tables.TableInfo{Name: "users", ExcludedColumns: []string{"avatar"}}, fixedEmailRules(t))

	require.NoError(t, err)
	assert.Equal(t, int64(3), written)
	expected := "\n-- Anonymized data for table `users`\n" +
		"DROP TABLE IF EXISTS `users`;\n" + usersDDL + ";\n" +
		"TRUNCATE TABLE `users`;\n" +
		"INSERT INTO `users` (`id`, `email`) VALUES\n(1, 'anon@example.com'),\n(2, 'anon@example.com');\n" +
		"INSERT INTO `users` (`id`, `email`) VALUES\n(3, 'anon@example.com');\n" +
		"\n"
	assert.Equal(t, expected, out.String())
	assert.NotContains(t, out.String(), "shop.test")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnonymizedTableWriterEmptyTable(t *testing.T) {
	writer, mock := newSQLMockWriter(t, 1000)
	expectTableHead(mock, 0)

	var out bytes.Buffer
	written, err := writer.WriteTable(context.Background(), &out, tables.TableInfo{Name: "users"}, fixedEmailRules(t))

	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Contains(t, out.String(), "DROP TABLE IF EXISTS `users`;\n")
	assert.Contains(t, out.String(), "TRUNCATE TABLE `users`;\n")
	assert.NotContains(t, out.String(), "INSERT INTO")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnonymizedTableWriterStopsOnShortRead(t *testing.T) {
	writer, mock := newSQLMockWriter(t, 2)
	expectTableHead(mock, 4)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email` FROM `users` LIMIT 2 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	var out bytes.Buffer
	written, err := writer.WriteTable(context.Background(), &out,
		tables.TableInfo{Name: "users", ExcludedColumns: []string{"avatar"}}, fixedEmailRules(t))

	require.NoError(t, err)
	assert.Zero(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnonymizedTableWriterUnknownStrategy(t *testing.T) {
	writer, mock := newSQLMockWriter(t, 10)
	expectTableHead(mock, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email` FROM `users` LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "alice@shop.test"))

	rules := anonymize.NewConfig(map[string]map[string]anonymize.Rule{
		"users": {"email": {Strategy: "scramble"}},
	}, nil, nil)

	var out bytes.Buffer
	_, err := writer.WriteTable(context.Background(), &out,
		tables.TableInfo{Name: "users", ExcludedColumns: []string{"avatar"}}, rules)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scramble")
	assert.NotContains(t, out.String(), "alice@shop.test")
}
