// Package introspect reads the live schema of a database.
package introspect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/svco/svmigrate/migrate/sqlgen"
)

// ErrUnsupportedProvider is returned for dialects without an introspector.
var ErrUnsupportedProvider = errors.New("unsupported database provider")

// Introspector reads the database schema.
type Introspector interface {
	Introspect(ctx context.Context) (*DatabaseSchema, error)
}

// DatabaseSchema represents the introspected database schema
type DatabaseSchema struct {
	Tables []Table
}

// Table returns the named table, or nil.
func (s *DatabaseSchema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames lists the tables in name order.
func (s *DatabaseSchema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Table represents a database table
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames lists the columns in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the named index, or nil.
func (t *Table) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// Column represents a table column
type Column struct {
	Name       string  `db:"name"`
	Type       string  `db:"type"`
	Nullable   bool    `db:"nullable"`
	Default    *string `db:"dflt"`
	PrimaryKey bool    `db:"pk"`
}

// Index represents a database index. Primary key indexes are not listed.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// NewIntrospector creates an introspector for the dialect. Tables named in
// exclude, such as the ledger, are left out of the result.
func NewIntrospector(db *sqlx.DB, dialect sqlgen.Dialect, exclude ...string) (Introspector, error) {
	q, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, dialect)
	}
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	return &introspector{db: db, queries: q, bind: sqlx.BindType(dialect.DriverName()), exclude: skip}, nil
}

type introspector struct {
	db      *sqlx.DB
	queries queries
	bind    int
	exclude map[string]bool
}

type indexRow struct {
	Name    string `db:"name"`
	Unique  bool   `db:"uniq"`
	Columns string `db:"columns"`
}

// Introspect reads every table with its columns and indexes.
func (i *introspector) Introspect(ctx context.Context) (*DatabaseSchema, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, i.db, &names, i.queries.tables); err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	schema := &DatabaseSchema{Tables: []Table{}}
	for _, name := range names {
		if i.exclude[name] {
			continue
		}
		table := Table{Name: name}

		if err := sqlx.SelectContext(ctx, i.db, &table.Columns, sqlx.Rebind(i.bind, i.queries.columns), name); err != nil {
			return nil, fmt.Errorf("failed to introspect columns for %s: %w", name, err)
		}

		var rows []indexRow
		if err := sqlx.SelectContext(ctx, i.db, &rows, sqlx.Rebind(i.bind, i.queries.indexes), name); err != nil {
			return nil, fmt.Errorf("failed to introspect indexes for %s: %w", name, err)
		}
		for _, r := range rows {
			table.Indexes = append(table.Indexes, Index{
				Name:    r.Name,
				Unique:  r.Unique,
				Columns: strings.Split(r.Columns, ","),
			})
		}

		schema.Tables = append(schema.Tables, table)
	}
	return schema, nil
}
