/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/GoogleCloudPlatform/sql-assistant/internal/config"
	"github.com/GoogleCloudPlatform/sql-assistant/internal/database"
)

// sqliteHandler struct implements database.DialectHandler for SQLite.
type sqliteHandler struct{}

var _ database.DialectHandler = (*sqliteHandler)(nil)

// CreateStandardPool opens the SQLite file (or :memory:) from cfg.Path.
func (h sqliteHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite requires a database file path")
	}
	dbPool, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open (sqlite): %w", err)
	}
	// The file-based driver serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent access.
	dbPool.SetMaxOpenConns(1)
	return dbPool, nil
}

// CreateCloudSQLPool for SQLite. Cloud SQL has no SQLite offering.
func (h sqliteHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	return nil, fmt.Errorf("cloud sql connections are not supported for sqlite")
}

// QuoteIdentifier for SQLite
func (h sqliteHandler) QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s"`, name)
}

// SampleQuery for SQLite
func (h sqliteHandler) SampleQuery(quotedTable string, limit int) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", quotedTable, limit)
}

// ListTables for SQLite. Internal sqlite_* tables are excluded.
func (h sqliteHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name;`

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("error scanning table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}

	return tables, nil
}

// ListColumns for SQLite via PRAGMA table_info.
func (h sqliteHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]database.ColumnInfo, error) {
	// PRAGMA arguments cannot be bound; the identifier is quoted instead.
	query := fmt.Sprintf("PRAGMA table_info(%s)", h.QuoteIdentifier(tableName))

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var columns []database.ColumnInfo
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("error scanning column info: %w", err)
		}
		if dataType == "" {
			dataType = "ANY"
		}
		columns = append(columns, database.ColumnInfo{Name: name, DataType: dataType})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}

	return columns, nil
}

// ListForeignKeys for SQLite via PRAGMA foreign_key_list. Rows sharing an id
// belong to one composite constraint.
func (h sqliteHandler) ListForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]database.ForeignKeyInfo, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", h.QuoteIdentifier(tableName))

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var (
		fks    []database.ForeignKeyInfo
		lastID = -1
	)
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("error scanning foreign key info: %w", err)
		}
		if id != lastID {
			fks = append(fks, database.ForeignKeyInfo{RefTable: refTable})
			lastID = id
		}
		fk := &fks[len(fks)-1]
		fk.Columns = append(fk.Columns, from)
		if to.Valid {
			fk.RefColumns = append(fk.RefColumns, to.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key rows: %w", err)
	}

	return fks, nil
}

// ListIndexes for SQLite via PRAGMA index_list + index_info. Implicit
// sqlite_autoindex entries are skipped.
func (h sqliteHandler) ListIndexes(ctx context.Context, db *database.DB, tableName string) ([]database.IndexInfo, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", h.QuoteIdentifier(tableName))

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes for table %s: %w", tableName, err)
	}

	var indexes []database.IndexInfo
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning index info: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		indexes = append(indexes, database.IndexInfo{Name: name, Unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	rows.Close()

	for i := range indexes {
		columns, err := h.indexColumns(ctx, db, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = columns
	}

	return indexes, nil
}

func (h sqliteHandler) indexColumns(ctx context.Context, db *database.DB, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", h.QuoteIdentifier(indexName))

	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying index %s: %w", indexName, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("error scanning index column: %w", err)
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index columns: %w", err)
	}

	return columns, nil
}

func init() {
	database.RegisterDialectHandler("sqlite", sqliteHandler{})
}
