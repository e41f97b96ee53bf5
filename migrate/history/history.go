// Package history manages the ledger table that records applied migrations.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/svco/svmigrate/migrate/operation"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

// DefaultTable is the ledger table name used when none is configured.
const DefaultTable = "schema_migrations"

// Record represents one applied migration in the ledger.
type Record struct {
	Version     string    `db:"version"`
	Name        string    `db:"name"`
	Checksum    string    `db:"checksum"`
	ExecutionMS int64     `db:"execution_ms"`
	AppliedAt   time.Time `db:"applied_at"`
}

// Manager reads and writes the ledger table. It holds no connection; every
// call takes the handle it should run on so that ledger writes can share a
// transaction with the migration's DDL.
type Manager struct {
	dialect sqlgen.Dialect
	table   string
	quoted  string
}

// NewManager creates a ledger manager for the given dialect and table.
func NewManager(dialect sqlgen.Dialect, table string) (*Manager, error) {
	if table == "" {
		table = DefaultTable
	}
	if !operation.IsIdentifier(table) {
		return nil, fmt.Errorf("invalid ledger table name %q", table)
	}
	gen, err := sqlgen.NewGenerator(dialect)
	if err != nil {
		return nil, err
	}
	return &Manager{dialect: dialect, table: table, quoted: gen.Quote(table)}, nil
}

// Table returns the ledger table name.
func (m *Manager) Table() string {
	return m.table
}

// EnsureTable creates the ledger table if it does not exist.
func (m *Manager) EnsureTable(ctx context.Context, db sqlx.ExecerContext) error {
	if _, err := db.ExecContext(ctx, m.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// All returns every ledger record. Order is unspecified; callers sort by
// version.
func (m *Manager) All(ctx context.Context, db sqlx.QueryerContext) ([]Record, error) {
	var records []Record
	query := fmt.Sprintf("SELECT version, name, checksum, execution_ms, applied_at FROM %s", m.quoted)
	if err := sqlx.SelectContext(ctx, db, &records, query); err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	return records, nil
}

// Insert records a migration as applied.
func (m *Manager) Insert(ctx context.Context, db sqlx.ExecerContext, r Record) error {
	query := m.rebind(fmt.Sprintf(
		"INSERT INTO %s (version, name, checksum, execution_ms, applied_at) VALUES (?, ?, ?, ?, ?)", m.quoted))
	if r.AppliedAt.IsZero() {
		r.AppliedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, query, r.Version, r.Name, r.Checksum, r.ExecutionMS, r.AppliedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", r.Version, err)
	}
	return nil
}

// Remove deletes the ledger record for version.
func (m *Manager) Remove(ctx context.Context, db sqlx.ExecerContext, version string) error {
	query := m.rebind(fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.quoted))
	res, err := db.ExecContext(ctx, query, version)
	if err != nil {
		return fmt.Errorf("failed to remove migration %s: %w", version, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("migration %s is not recorded", version)
	}
	return nil
}

// CalculateChecksum returns the hex sha256 of content.
func CalculateChecksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func (m *Manager) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(m.dialect.DriverName()), query)
}

func (m *Manager) createTableSQL() string {
	switch m.dialect {
	case sqlgen.PostgreSQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	checksum VARCHAR(64) NOT NULL,
	execution_ms BIGINT NOT NULL DEFAULT 0,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, m.quoted)
	case sqlgen.MySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version VARCHAR(64) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	checksum VARCHAR(64) NOT NULL,
	execution_ms BIGINT NOT NULL DEFAULT 0,
	applied_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`, m.quoted)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	version TEXT NOT NULL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL,
	execution_ms INTEGER NOT NULL DEFAULT 0,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, m.quoted)
	}
}
