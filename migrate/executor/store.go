// Package executor owns the connection to the store migrations are applied to.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/svco/svmigrate/internal/debug"
	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

// TransactionMode controls whether a migration runs inside a transaction.
type TransactionMode string

const (
	// TxAuto uses a transaction when the dialect supports transactional DDL.
	TxAuto TransactionMode = "auto"
	// TxAlways always opens a transaction, even where DDL commits implicitly.
	TxAlways TransactionMode = "always"
	// TxNever executes statements directly on the connection.
	TxNever TransactionMode = "never"
)

// ParseTransactionMode parses a mode name. The empty string means TxAuto.
func ParseTransactionMode(s string) (TransactionMode, error) {
	switch TransactionMode(strings.ToLower(s)) {
	case "", TxAuto:
		return TxAuto, nil
	case TxAlways:
		return TxAlways, nil
	case TxNever:
		return TxNever, nil
	default:
		return "", fmt.Errorf("unknown transaction mode %q (want auto, always or never)", s)
	}
}

// Config describes how to reach the store.
type Config struct {
	// Provider is the dialect name. Detected from URL when empty.
	Provider        string
	URL             string
	LedgerTable     string
	TransactionMode TransactionMode
}

// Store is an open connection plus the ledger living in it.
type Store struct {
	db      *sqlx.DB
	dialect sqlgen.Dialect
	ledger  *history.Manager
	mode    TransactionMode
}

// Open connects to the store and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect := sqlgen.DetectDialect(cfg.URL)
	if cfg.Provider != "" {
		d, err := sqlgen.ParseDialect(cfg.Provider)
		if err != nil {
			return nil, err
		}
		dialect = d
	}

	dsn, err := dataSourceName(dialect, cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s database: %w", ErrUnavailable, dialect, err)
	}
	if dialect == sqlgen.SQLite {
		// One writer; a second connection would block on the transaction lock.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to %s database: %w", ErrUnavailable, dialect, err)
	}

	s, err := New(db, dialect, cfg.LedgerTable, cfg.TransactionMode)
	if err != nil {
		db.Close()
		return nil, err
	}
	debug.Debug("Connected to store", "dialect", dialect, "ledger", s.ledger.Table(), "transactional", s.Transactional())
	return s, nil
}

// New wraps an already open database.
func New(db *sqlx.DB, dialect sqlgen.Dialect, ledgerTable string, mode TransactionMode) (*Store, error) {
	mode, err := ParseTransactionMode(string(mode))
	if err != nil {
		return nil, err
	}
	ledger, err := history.NewManager(dialect, ledgerTable)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: dialect, ledger: ledger, mode: mode}, nil
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() sqlgen.Dialect {
	return s.dialect
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// LedgerTable returns the name of the ledger table.
func (s *Store) LedgerTable() string {
	return s.ledger.Table()
}

// Transactional reports whether units of work are database transactions that
// also roll back DDL.
func (s *Store) Transactional() bool {
	switch s.mode {
	case TxAlways:
		return true
	case TxNever:
		return false
	default:
		return s.dialect.TransactionalDDL()
	}
}

// EnsureLedger creates the ledger table if needed.
func (s *Store) EnsureLedger(ctx context.Context) error {
	return classify(s.ledger.EnsureTable(ctx, s.db))
}

// Ledger returns every record in the ledger.
func (s *Store) Ledger(ctx context.Context) ([]history.Record, error) {
	records, err := s.ledger.All(ctx, s.db)
	return records, classify(err)
}

// Begin opens a unit of work scoping one migration.
func (s *Store) Begin(ctx context.Context) (Unit, error) {
	if !s.Transactional() {
		return &directUnit{db: s.db, ledger: s.ledger}, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	return &txUnit{tx: tx, ledger: s.ledger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func dataSourceName(dialect sqlgen.Dialect, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("database url is required")
	}
	switch dialect {
	case sqlgen.MySQL:
		cfg, err := mysql.ParseDSN(strings.TrimPrefix(url, "mysql://"))
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case sqlgen.SQLite:
		for _, prefix := range []string{"sqlite3://", "sqlite://"} {
			url = strings.TrimPrefix(url, prefix)
		}
		return url, nil
	default:
		return url, nil
	}
}
