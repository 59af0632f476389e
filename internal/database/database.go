package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
)

// Introspector defines the interface for database operations needed by the
// assistant pipeline.
type Introspector interface {
	Snapshot(ctx context.Context, tableCap int) (*SchemaDescriptor, error)
	SampleRows(ctx context.Context, tableName string, limit int) (*Result, error)
	Select(ctx context.Context, query string, rowCap int) (*Result, error)
	Dialect() string
	Ping(ctx context.Context) error
	Close() error
}

var _ Introspector = (*DB)(nil)

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// ColumnInfo holds basic information about a database column.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// ForeignKeyInfo describes a foreign key constraint on a table.
type ForeignKeyInfo struct {
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns"`
}

// IndexInfo describes an index on a table.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableInfo describes one user table.
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
}

// SchemaDescriptor is a point-in-time snapshot of the connected database's
// schema. It is rebuilt, never mutated in place, whenever the connection
// changes.
type SchemaDescriptor struct {
	Tables []TableInfo `json:"tables"`
}

// Table returns the named table, or nil when absent.
func (d *SchemaDescriptor) Table(name string) *TableInfo {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

// Result is a column-aligned tabular query result. Truncated is set when the
// underlying result set exceeded the row cap.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// RowCount returns the number of rows retained in the result.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// DialectHandler implements the dialect-specific parts of connection
// management and schema introspection.
type DialectHandler interface {
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	SampleQuery(quotedTable string, limit int) string
	ListTables(ctx context.Context, db *DB) ([]string, error)
	ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error)
	ListForeignKeys(ctx context.Context, db *DB, tableName string) ([]ForeignKeyInfo, error)
	ListIndexes(ctx context.Context, db *DB, tableName string) ([]IndexInfo, error)
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.S().Warnf("dialect handler for %q is being overwritten", dialect)
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

// Open creates a connection pool for the configured dialect and verifies it
// with a ping. On ping failure the pool is torn down before the error is
// returned, so a failed Open never leaks a handle.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

// Dialect returns the connected dialect name.
func (db *DB) Dialect() string {
	return db.Config.Dialect
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	zap.S().Warn("attempted to close a nil database connection pool")
	return nil
}

// Snapshot builds a SchemaDescriptor for the first tableCap user tables.
// A per-table introspection failure skips that table with a warning instead
// of aborting the whole build.
func (db *DB) Snapshot(ctx context.Context, tableCap int) (*SchemaDescriptor, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}

	tables, err := db.Handler.ListTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if tableCap > 0 && len(tables) > tableCap {
		zap.S().Infof("schema snapshot limited to the first %d of %d tables", tableCap, len(tables))
		tables = tables[:tableCap]
	}

	descriptor := &SchemaDescriptor{Tables: make([]TableInfo, 0, len(tables))}
	for _, tableName := range tables {
		columns, err := db.Handler.ListColumns(ctx, db, tableName)
		if err != nil {
			zap.S().Warnf("skipping table %s: failed to list columns: %v", tableName, err)
			continue
		}

		info := TableInfo{Name: tableName, Columns: columns}

		fks, err := db.Handler.ListForeignKeys(ctx, db, tableName)
		if err != nil {
			zap.S().Warnf("table %s: failed to list foreign keys: %v", tableName, err)
		} else {
			info.ForeignKeys = fks
		}

		indexes, err := db.Handler.ListIndexes(ctx, db, tableName)
		if err != nil {
			zap.S().Warnf("table %s: failed to list indexes: %v", tableName, err)
		} else {
			info.Indexes = indexes
		}

		descriptor.Tables = append(descriptor.Tables, info)
	}

	return descriptor, nil
}

// SampleRows fetches up to limit rows from a table for prompt grounding.
func (db *DB) SampleRows(ctx context.Context, tableName string, limit int) (*Result, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	query := db.Handler.SampleQuery(db.Handler.QuoteIdentifier(tableName), limit)
	return db.Select(ctx, query, limit)
}

// Select executes a read-only statement and converts the result set to a
// column-aligned Result. Returned rows are capped at rowCap; when the cap is
// hit the Truncated flag is set and a warning is logged, but execution still
// succeeds with the partial result. The rows handle is released on every
// exit path.
func (db *DB) Select(ctx context.Context, query string, rowCap int) (*Result, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database connection pool is not initialized")
	}

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		if rowCap > 0 && len(result.Rows) >= rowCap {
			result.Truncated = true
			zap.S().Warnf("result set exceeded row cap of %d; truncating", rowCap)
			break
		}

		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return result, nil
}
