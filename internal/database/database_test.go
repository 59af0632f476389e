package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
)

// Mock DialectHandler implementation
type mockDialectHandler struct {
	mu                   sync.Mutex
	createCloudSQLPoolFn func(cfg config.DatabaseConfig) (*sql.DB, error)
	createStandardPoolFn func(cfg config.DatabaseConfig) (*sql.DB, error)
	listTablesFn         func(ctx context.Context, db *DB) ([]string, error)
	listColumnsFn        func(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error)
	listForeignKeysFn    func(ctx context.Context, db *DB, tableName string) ([]ForeignKeyInfo, error)
	listIndexesFn        func(ctx context.Context, db *DB, tableName string) ([]IndexInfo, error)

	// Call counters
	listTablesCalls      int
	listColumnsCalls     int
	listForeignKeysCalls int
	listIndexesCalls     int
}

func (m *mockDialectHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createCloudSQLPoolFn != nil {
		return m.createCloudSQLPoolFn(cfg)
	}
	mockDb, _, _ := sqlmock.New()
	return mockDb, nil
}

func (m *mockDialectHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createStandardPoolFn != nil {
		return m.createStandardPoolFn(cfg)
	}
	mockDb, _, _ := sqlmock.New()
	return mockDb, nil
}

func (m *mockDialectHandler) QuoteIdentifier(name string) string { return fmt.Sprintf(`"%s"`, name) }

func (m *mockDialectHandler) SampleQuery(quotedTable string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", quotedTable, limit)
}

func (m *mockDialectHandler) ListTables(ctx context.Context, db *DB) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTablesCalls++
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, db)
	}
	return []string{"table1"}, nil
}

func (m *mockDialectHandler) ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listColumnsCalls++
	if m.listColumnsFn != nil {
		return m.listColumnsFn(ctx, db, tableName)
	}
	return []ColumnInfo{{Name: "col1", DataType: "int"}}, nil
}

func (m *mockDialectHandler) ListForeignKeys(ctx context.Context, db *DB, tableName string) ([]ForeignKeyInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listForeignKeysCalls++
	if m.listForeignKeysFn != nil {
		return m.listForeignKeysFn(ctx, db, tableName)
	}
	return nil, nil
}

func (m *mockDialectHandler) ListIndexes(ctx context.Context, db *DB, tableName string) ([]IndexInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listIndexesCalls++
	if m.listIndexesFn != nil {
		return m.listIndexesFn(ctx, db, tableName)
	}
	return nil, nil
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return &DB{Pool: pool, Handler: &mockDialectHandler{}}, mock
}

func TestGetDialectHandlerUnknown(t *testing.T) {
	_, err := GetDialectHandler("no-such-dialect")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database dialect")
}

func TestRegisterAndGetDialectHandler(t *testing.T) {
	handler := &mockDialectHandler{}
	RegisterDialectHandler("mockdialect", handler)

	got, err := GetDialectHandler("mockdialect")
	require.NoError(t, err)
	assert.Same(t, handler, got)
}

func TestOpenPingFailureTearsDownPool(t *testing.T) {
	pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	RegisterDialectHandler("mockping", &mockDialectHandler{
		createStandardPoolFn: func(cfg config.DatabaseConfig) (*sql.DB, error) {
			return pool, nil
		},
	})

	_, err = Open(context.Background(), config.DatabaseConfig{Dialect: "mockping"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectRowCapTruncates(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "name"})
	for i := 0; i < 5000; i++ {
		rows.AddRow(i, fmt.Sprintf("row-%d", i))
	}
	mock.ExpectQuery("SELECT (.+) FROM big").WillReturnRows(rows)

	result, err := db.Select(context.Background(), "SELECT id, name FROM big", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, result.RowCount())
	assert.True(t, result.Truncated)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
}

func TestSelectSmallResultNotTruncated(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3)
	mock.ExpectQuery("SELECT id FROM small").WillReturnRows(rows)

	result, err := db.Select(context.Background(), "SELECT id FROM small", 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount())
	assert.False(t, result.Truncated)
}

func TestSelectConvertsBytesToString(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"name"}).AddRow([]byte("alice"))
	mock.ExpectQuery("SELECT name FROM t").WillReturnRows(rows)

	result, err := db.Select(context.Background(), "SELECT name FROM t", 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.RowCount())
	assert.Equal(t, "alice", result.Rows[0][0])
}

func TestSelectQueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT nope").WillReturnError(errors.New("no such table"))

	_, err := db.Select(context.Background(), "SELECT nope", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestSnapshotSkipsFailingTable(t *testing.T) {
	handler := &mockDialectHandler{
		listTablesFn: func(ctx context.Context, db *DB) ([]string, error) {
			return []string{"good", "broken", "alsogood"}, nil
		},
		listColumnsFn: func(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error) {
			if tableName == "broken" {
				return nil, errors.New("introspection failed")
			}
			return []ColumnInfo{{Name: "id", DataType: "INTEGER"}}, nil
		},
	}
	db := &DB{Handler: handler}

	descriptor, err := db.Snapshot(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, descriptor.Tables, 2)
	assert.Equal(t, "good", descriptor.Tables[0].Name)
	assert.Equal(t, "alsogood", descriptor.Tables[1].Name)
	assert.Nil(t, descriptor.Table("broken"))
}

func TestSnapshotTableCap(t *testing.T) {
	handler := &mockDialectHandler{
		listTablesFn: func(ctx context.Context, db *DB) ([]string, error) {
			names := make([]string, 25)
			for i := range names {
				names[i] = fmt.Sprintf("t%02d", i)
			}
			return names, nil
		},
	}
	db := &DB{Handler: handler}

	descriptor, err := db.Snapshot(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, descriptor.Tables, 10)
	assert.Equal(t, 10, handler.listColumnsCalls)
}

func TestSampleRowsUsesHandlerQuery(t *testing.T) {
	handler := &mockDialectHandler{}
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	db := &DB{Pool: pool, Handler: handler}

	rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2)
	mock.ExpectQuery(`SELECT \* FROM "employees" LIMIT 2`).WillReturnRows(rows)

	result, err := db.SampleRows(context.Background(), "employees", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount())
}
