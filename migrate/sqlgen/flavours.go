package sqlgen

import (
	"fmt"
	"strings"

	"github.com/svco/svmigrate/migrate/operation"
)

type postgresFlavour struct{}

func (postgresFlavour) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (postgresFlavour) columnType(c operation.Column) string {
	switch c.Type {
	case operation.String:
		return fmt.Sprintf("VARCHAR(%d)", varcharLength(c))
	case operation.Text:
		return "TEXT"
	case operation.Integer:
		return "INTEGER"
	case operation.Date:
		return "DATE"
	case operation.DateTime:
		return "TIMESTAMP"
	case operation.Boolean:
		return "BOOLEAN"
	default:
		return strings.ToUpper(string(c.Type))
	}
}

func (postgresFlavour) referenceType() string { return "BIGINT" }

func (postgresFlavour) primaryKey() string { return `"id" BIGSERIAL PRIMARY KEY` }

func (postgresFlavour) boolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (f postgresFlavour) dropIndex(_, name string) string {
	return "DROP INDEX " + f.quote(name)
}

type mysqlFlavour struct{}

func (mysqlFlavour) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlFlavour) columnType(c operation.Column) string {
	switch c.Type {
	case operation.String:
		return fmt.Sprintf("VARCHAR(%d)", varcharLength(c))
	case operation.Text:
		return "TEXT"
	case operation.Integer:
		return "INT"
	case operation.Date:
		return "DATE"
	case operation.DateTime:
		return "DATETIME"
	case operation.Boolean:
		return "TINYINT(1)"
	default:
		return strings.ToUpper(string(c.Type))
	}
}

func (mysqlFlavour) referenceType() string { return "BIGINT" }

func (mysqlFlavour) primaryKey() string { return "`id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY" }

func (mysqlFlavour) boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (f mysqlFlavour) dropIndex(table, name string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", f.quote(name), f.quote(table))
}

// sqliteFlavour relies on ALTER TABLE ... DROP COLUMN and RENAME COLUMN,
// available since SQLite 3.35.
type sqliteFlavour struct{}

func (sqliteFlavour) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteFlavour) columnType(c operation.Column) string {
	switch c.Type {
	case operation.String:
		return fmt.Sprintf("VARCHAR(%d)", varcharLength(c))
	case operation.Text:
		return "TEXT"
	case operation.Integer:
		return "INTEGER"
	case operation.Date:
		return "DATE"
	case operation.DateTime:
		return "DATETIME"
	case operation.Boolean:
		return "BOOLEAN"
	default:
		return strings.ToUpper(string(c.Type))
	}
}

func (sqliteFlavour) referenceType() string { return "INTEGER" }

func (sqliteFlavour) primaryKey() string { return `"id" INTEGER PRIMARY KEY AUTOINCREMENT` }

func (sqliteFlavour) boolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (f sqliteFlavour) dropIndex(_, name string) string {
	return "DROP INDEX " + f.quote(name)
}
