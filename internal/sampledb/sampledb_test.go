package sampledb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSeedCreatesAllTables(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Seed(context.Background(), db))

	assert.Equal(t, 8, countRows(t, db, "customers"))
	assert.Equal(t, 10, countRows(t, db, "products"))
	assert.Equal(t, 10, countRows(t, db, "employees"))
	assert.Equal(t, 100, countRows(t, db, "orders"))
	assert.Greater(t, countRows(t, db, "order_details"), 0)
}

func TestSeedIsIdempotentForFixedRows(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Seed(context.Background(), db))
	require.NoError(t, Seed(context.Background(), db))

	assert.Equal(t, 8, countRows(t, db, "customers"))
	assert.Equal(t, 10, countRows(t, db, "products"))
	assert.Equal(t, 10, countRows(t, db, "employees"))
	assert.Equal(t, 100, countRows(t, db, "orders"))
}

func TestSeedOrdersReferenceSalesEmployees(t *testing.T) {
	db := openMemoryDB(t)
	require.NoError(t, Seed(context.Background(), db))

	rows, err := db.Query("SELECT DISTINCT employee_id FROM orders ORDER BY employee_id")
	require.NoError(t, err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Subset(t, []int{3, 6, 9}, ids)
}

func TestSeedDeterministicOrders(t *testing.T) {
	first := openMemoryDB(t)
	second := openMemoryDB(t)
	require.NoError(t, Seed(context.Background(), first))
	require.NoError(t, Seed(context.Background(), second))

	query := "SELECT customer_id, employee_id, freight FROM orders ORDER BY order_id"
	read := func(db *sql.DB) [][3]any {
		rows, err := db.Query(query)
		require.NoError(t, err)
		defer rows.Close()
		var out [][3]any
		for rows.Next() {
			var cust, emp int
			var freight float64
			require.NoError(t, rows.Scan(&cust, &emp, &freight))
			out = append(out, [3]any{cust, emp, freight})
		}
		return out
	}

	assert.Equal(t, read(first), read(second))
}
