// Package sqlgen renders migration operations as DDL statements.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/svco/svmigrate/migrate/operation"
)

// Generator renders operations for one dialect.
type Generator interface {
	// Dialect returns the dialect statements are rendered for.
	Dialect() Dialect
	// Statements returns the DDL that performs op, in execution order.
	Statements(op operation.Operation) ([]string, error)
	// Quote quotes an identifier.
	Quote(ident string) string
}

// flavour holds what differs between dialects.
type flavour interface {
	quote(ident string) string
	columnType(c operation.Column) string
	referenceType() string
	primaryKey() string
	boolLiteral(b bool) string
	dropIndex(table, name string) string
}

// NewGenerator creates a generator for the given dialect.
func NewGenerator(d Dialect) (Generator, error) {
	switch d {
	case PostgreSQL:
		return &generator{dialect: d, f: postgresFlavour{}}, nil
	case MySQL:
		return &generator{dialect: d, f: mysqlFlavour{}}, nil
	case SQLite:
		return &generator{dialect: d, f: sqliteFlavour{}}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", d)
	}
}

type generator struct {
	dialect Dialect
	f       flavour
}

func (g *generator) Dialect() Dialect { return g.dialect }

func (g *generator) Quote(ident string) string { return g.f.quote(ident) }

func (g *generator) Statements(op operation.Operation) ([]string, error) {
	switch o := op.(type) {
	case operation.CreateTable:
		return g.createTable(o)
	case operation.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s", g.f.quote(o.Name))}, nil
	case operation.AddColumn:
		def, err := g.columnDef(o.Column)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.f.quote(o.Table), def)}, nil
	case operation.RemoveColumn:
		return []string{g.dropColumn(o.Table, o.Name)}, nil
	case operation.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			g.f.quote(o.Table), g.f.quote(o.From), g.f.quote(o.To))}, nil
	case operation.AddIndex:
		return []string{g.createIndex(o.Table, o.IndexName(), o.Columns, o.Unique)}, nil
	case operation.RemoveIndex:
		return []string{g.f.dropIndex(o.Table, o.IndexName())}, nil
	case operation.AddReference:
		col := o.Column()
		def, err := g.columnDefWithType(col, g.f.referenceType())
		if err != nil {
			return nil, err
		}
		stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.f.quote(o.Table), def)}
		if o.Index {
			stmts = append(stmts, g.createIndex(o.Table, o.IndexName(), []string{col.Name}, false))
		}
		return stmts, nil
	case operation.RemoveReference:
		var stmts []string
		if o.Index {
			stmts = append(stmts, g.f.dropIndex(o.Table, o.IndexName()))
		}
		return append(stmts, g.dropColumn(o.Table, o.Column())), nil
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}

func (g *generator) createTable(op operation.CreateTable) ([]string, error) {
	var defs []string
	if !op.WithoutID {
		defs = append(defs, g.f.primaryKey())
	}
	for _, c := range op.AllColumns() {
		def, err := g.columnDef(c)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", op.Name, err)
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("table %s has no columns", op.Name)
	}
	return []string{fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", g.f.quote(op.Name), strings.Join(defs, ",\n  "))}, nil
}

func (g *generator) dropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.f.quote(table), g.f.quote(column))
}

func (g *generator) createIndex(table, name string, columns []string, unique bool) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = g.f.quote(c)
	}
	kw := "CREATE INDEX"
	if unique {
		kw = "CREATE UNIQUE INDEX"
	}
	return fmt.Sprintf("%s %s ON %s (%s)", kw, g.f.quote(name), g.f.quote(table), strings.Join(quoted, ", "))
}

func (g *generator) columnDef(c operation.Column) (string, error) {
	return g.columnDefWithType(c, g.f.columnType(c))
}

func (g *generator) columnDefWithType(c operation.Column, sqlType string) (string, error) {
	var b strings.Builder
	b.WriteString(g.f.quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(sqlType)
	if c.Options.NotNull() {
		b.WriteString(" NOT NULL")
	}
	if c.Options.Default != nil {
		lit, err := g.defaultLiteral(c.Type, *c.Options.Default)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", c.Name, err)
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	return b.String(), nil
}

func (g *generator) defaultLiteral(t operation.ColumnType, value string) (string, error) {
	switch t {
	case operation.Integer:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", fmt.Errorf("default %q is not an integer", value)
		}
		return value, nil
	case operation.Boolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("default %q is not a boolean", value)
		}
		return g.f.boolLiteral(b), nil
	default:
		return quoteLiteral(value), nil
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func varcharLength(c operation.Column) int {
	if c.Options.Limit > 0 {
		return c.Options.Limit
	}
	return 255
}
