package sqlgen

import (
	"fmt"
	"strings"
)

// Dialect is the SQL flavour of a store.
type Dialect string

const (
	// PostgreSQL dialect.
	PostgreSQL Dialect = "postgres"
	// MySQL dialect.
	MySQL Dialect = "mysql"
	// SQLite dialect.
	SQLite Dialect = "sqlite"
)

// ParseDialect normalizes a provider name.
func ParseDialect(provider string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// DetectDialect guesses the dialect from a connection URL.
func DetectDialect(url string) Dialect {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return PostgreSQL
	case strings.HasPrefix(url, "mysql://"), strings.Contains(url, "@tcp("):
		return MySQL
	case strings.HasPrefix(url, "file:"), strings.HasSuffix(url, ".db"),
		strings.HasSuffix(url, ".sqlite"), strings.HasSuffix(url, ".sqlite3"):
		return SQLite
	default:
		return PostgreSQL
	}
}

// DriverName returns the database/sql driver name for the dialect.
// PostgreSQL driver uses "postgres", SQLite driver uses "sqlite3".
func (d Dialect) DriverName() string {
	switch d {
	case SQLite:
		return "sqlite3"
	default:
		return string(d)
	}
}

// TransactionalDDL reports whether schema changes can be rolled back inside a
// transaction. MySQL commits implicitly around every DDL statement.
func (d Dialect) TransactionalDDL() bool {
	return d == PostgreSQL || d == SQLite
}
