package executor

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

func openSQLite(t *testing.T, mode TransactionMode) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		URL:             "file:" + filepath.Join(t.TempDir(), "store.db"),
		TransactionMode: mode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tableExists(t *testing.T, s *Store, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, s.DB().Get(&n, "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name))
	return n > 0
}

func TestOpenSQLite(t *testing.T) {
	s := openSQLite(t, "")
	assert.Equal(t, sqlgen.SQLite, s.Dialect())
	assert.Equal(t, history.DefaultTable, s.LedgerTable())
	assert.True(t, s.Transactional())

	require.NoError(t, s.EnsureLedger(context.Background()))
	assert.True(t, tableExists(t, s, history.DefaultTable))
}

func TestTransactionalUnitRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, TxAuto)
	require.NoError(t, s.EnsureLedger(ctx))

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, u.Atomic())
	require.NoError(t, u.ExecDDL(ctx, `CREATE TABLE "startups" ("id" INTEGER PRIMARY KEY)`))
	require.NoError(t, u.RecordApplied(ctx, history.Record{Version: "1", Name: "startups", Checksum: "c"}))
	require.NoError(t, u.Rollback())

	assert.False(t, tableExists(t, s, "startups"))
	records, err := s.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTransactionalUnitCommits(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, TxAuto)
	require.NoError(t, s.EnsureLedger(ctx))

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.ExecDDL(ctx, `CREATE TABLE "startups" ("id" INTEGER PRIMARY KEY)`))
	require.NoError(t, u.RecordApplied(ctx, history.Record{Version: "1", Name: "startups", Checksum: "c"}))
	require.NoError(t, u.Commit())
	// Rollback after Commit is a no-op.
	require.NoError(t, u.Rollback())

	assert.True(t, tableExists(t, s, "startups"))
	records, err := s.Ledger(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	u, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.RecordReverted(ctx, "1"))
	require.NoError(t, u.Commit())

	records, err = s.Ledger(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDirectUnitIsNotAtomic(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, TxNever)
	assert.False(t, s.Transactional())
	require.NoError(t, s.EnsureLedger(ctx))

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	assert.False(t, u.Atomic())
	require.NoError(t, u.ExecDDL(ctx, `CREATE TABLE "startups" ("id" INTEGER PRIMARY KEY)`))
	require.NoError(t, u.Rollback())

	assert.True(t, tableExists(t, s, "startups"))
}

func TestExecDDLFailureIsNotUnavailable(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t, TxAuto)

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()

	err = u.ExecDDL(ctx, `ALTER TABLE "missing" ADD COLUMN "x" INTEGER`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Provider: "sqlite",
		URL:      filepath.Join(t.TempDir(), "missing", "dir", "store.db"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(context.Background(), Config{Provider: "oracle", URL: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)

	_, err = Open(context.Background(), Config{Provider: "sqlite"})
	assert.Error(t, err)
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"net", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"postgres connection failure", &pq.Error{Code: "08006"}, true},
		{"postgres syntax error", &pq.Error{Code: "42601"}, false},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"mysql access denied", &mysql.MySQLError{Number: 1045}, true},
		{"mysql duplicate column", &mysql.MySQLError{Number: 1060}, false},
		{"sqlite cannot open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, true},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain", errors.New("duplicate column"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
			if tt.want {
				assert.ErrorIs(t, classify(tt.err), ErrUnavailable)
				assert.ErrorIs(t, classify(tt.err), tt.err)
			} else {
				assert.Equal(t, tt.err, classify(tt.err))
			}
		})
	}
}

func TestParseTransactionMode(t *testing.T) {
	for in, want := range map[string]TransactionMode{"": TxAuto, "auto": TxAuto, "ALWAYS": TxAlways, "never": TxNever} {
		got, err := ParseTransactionMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTransactionMode("sometimes")
	assert.Error(t, err)
}

func TestDataSourceName(t *testing.T) {
	dsn, err := dataSourceName(sqlgen.MySQL, "mysql://root:pw@tcp(localhost:3306)/app")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tcp(localhost:3306)/app")

	dsn, err = dataSourceName(sqlgen.SQLite, "sqlite://dev.db")
	require.NoError(t, err)
	assert.Equal(t, "dev.db", dsn)

	dsn, err = dataSourceName(sqlgen.PostgreSQL, "postgres://localhost/app?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app?sslmode=disable", dsn)

	_, err = dataSourceName(sqlgen.MySQL, "not a dsn")
	assert.Error(t, err)
}
