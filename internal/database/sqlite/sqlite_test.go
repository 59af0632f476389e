package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Dialect: "sqlite",
		Path:    ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTestSchema(t *testing.T, db *database.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			department TEXT NOT NULL,
			salary REAL NOT NULL
		)`,
		`CREATE TABLE sales (
			id INTEGER PRIMARY KEY,
			employee_id INTEGER,
			amount REAL NOT NULL,
			FOREIGN KEY (employee_id) REFERENCES employees (id)
		)`,
		`CREATE INDEX idx_sales_employee ON sales (employee_id)`,
		`INSERT INTO employees VALUES (1, 'Alice', 'Engineering', 80000)`,
		`INSERT INTO employees VALUES (2, 'Bob', 'Sales', 60000)`,
		`INSERT INTO employees VALUES (3, 'Carol', 'Sales', 62000)`,
	}
	for _, stmt := range stmts {
		_, err := db.Pool.ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}
}

func TestListTablesExcludesInternal(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	tables, err := db.Handler.ListTables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"employees", "sales"}, tables)
}

func TestListColumns(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	columns, err := db.Handler.ListColumns(context.Background(), db, "employees")
	require.NoError(t, err)
	require.Len(t, columns, 4)
	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "INTEGER", columns[0].DataType)
	assert.Equal(t, "salary", columns[3].Name)
	assert.Equal(t, "REAL", columns[3].DataType)
}

func TestListForeignKeys(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	fks, err := db.Handler.ListForeignKeys(context.Background(), db, "sales")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "employees", fks[0].RefTable)
	assert.Equal(t, []string{"employee_id"}, fks[0].Columns)
	assert.Equal(t, []string{"id"}, fks[0].RefColumns)
}

func TestListIndexes(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	indexes, err := db.Handler.ListIndexes(context.Background(), db, "sales")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "idx_sales_employee", indexes[0].Name)
	assert.Equal(t, []string{"employee_id"}, indexes[0].Columns)
	assert.False(t, indexes[0].Unique)
}

func TestSnapshotEndToEnd(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	descriptor, err := db.Snapshot(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, descriptor.Tables, 2)

	sales := descriptor.Table("sales")
	require.NotNil(t, sales)
	require.Len(t, sales.ForeignKeys, 1)
	assert.Equal(t, "employees", sales.ForeignKeys[0].RefTable)
}

func TestSampleRows(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	result, err := db.SampleRows(context.Background(), "employees", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t, []string{"id", "name", "department", "salary"}, result.Columns)
}

func TestSelectAgainstRealFile(t *testing.T) {
	db := openTestDB(t)
	seedTestSchema(t, db)

	result, err := db.Select(context.Background(), "SELECT COUNT(*) FROM employees", 1000)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount())
	assert.EqualValues(t, 3, result.Rows[0][0])
}

func TestCloudSQLPoolUnsupported(t *testing.T) {
	_, err := sqliteHandler{}.CreateCloudSQLPool(config.DatabaseConfig{})
	assert.Error(t, err)
}
