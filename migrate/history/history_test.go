package history

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svco/svmigrate/migrate/sqlgen"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	m, err := NewManager(sqlgen.SQLite, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, m.Table())

	require.NoError(t, m.EnsureTable(ctx, db))
	// idempotent
	require.NoError(t, m.EnsureTable(ctx, db))

	records, err := m.All(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, records)

	applied := time.Date(2016, 5, 16, 10, 32, 20, 0, time.UTC)
	require.NoError(t, m.Insert(ctx, db, Record{Version: "20140324100852", Name: "create_batches", Checksum: "abc", ExecutionMS: 12, AppliedAt: applied}))
	require.NoError(t, m.Insert(ctx, db, Record{Version: "9", Name: "baseline", Checksum: "def"}))

	records, err = m.All(ctx, db)
	require.NoError(t, err)
	require.Len(t, records, 2)
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	assert.Equal(t, "9", records[0].Version)
	assert.Equal(t, "create_batches", records[1].Name)
	assert.Equal(t, int64(12), records[1].ExecutionMS)
	assert.True(t, applied.Equal(records[1].AppliedAt))

	assert.Error(t, m.Insert(ctx, db, Record{Version: "9", Name: "again", Checksum: "x"}), "version is unique")

	require.NoError(t, m.Remove(ctx, db, "9"))
	assert.Error(t, m.Remove(ctx, db, "9"))

	records, err = m.All(ctx, db)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestManagerInTransaction(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	m, err := NewManager(sqlgen.SQLite, "ledger")
	require.NoError(t, err)
	require.NoError(t, m.EnsureTable(ctx, db))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, m.Insert(ctx, tx, Record{Version: "1", Name: "a", Checksum: "c"}))
	require.NoError(t, tx.Rollback())

	records, err := m.All(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewManagerRejectsBadTable(t *testing.T) {
	_, err := NewManager(sqlgen.SQLite, "schema migrations; drop")
	assert.Error(t, err)

	_, err = NewManager(sqlgen.Dialect("oracle"), "ledger")
	assert.Error(t, err)
}

func TestCreateTableSQL(t *testing.T) {
	pg, err := NewManager(sqlgen.PostgreSQL, "")
	require.NoError(t, err)
	assert.Contains(t, pg.createTableSQL(), `CREATE TABLE IF NOT EXISTS "schema_migrations"`)
	assert.Equal(t, "DELETE FROM x WHERE version = $1", pg.rebind("DELETE FROM x WHERE version = ?"))

	my, err := NewManager(sqlgen.MySQL, "")
	require.NoError(t, err)
	assert.Contains(t, my.createTableSQL(), "CREATE TABLE IF NOT EXISTS `schema_migrations`")
}

func TestCalculateChecksum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", CalculateChecksum(""))
	assert.NotEqual(t, CalculateChecksum("a"), CalculateChecksum("b"))
}
