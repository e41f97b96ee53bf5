// Package operation defines the closed set of schema changes a migration can
// contain, along with their inverses.
package operation

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type of a column, independent of any dialect.
type ColumnType string

const (
	// String is a bounded character column.
	String ColumnType = "string"
	// Text is an unbounded character column.
	Text ColumnType = "text"
	// Integer is a whole number column.
	Integer ColumnType = "integer"
	// Date is a calendar date column.
	Date ColumnType = "date"
	// DateTime is a date and time column.
	DateTime ColumnType = "datetime"
	// Boolean is a true/false column.
	Boolean ColumnType = "boolean"
)

// ColumnTypes lists every supported column type.
var ColumnTypes = []ColumnType{String, Text, Integer, Date, DateTime, Boolean}

// ParseColumnType converts a type name to a ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	t := ColumnType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range ColumnTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown column type %q", name)
}

// Options holds nullability and default settings of a column.
type Options struct {
	// Null is nil when nullability is left to the database default (nullable).
	Null *bool `yaml:"null,omitempty"`
	// Default is the literal default value, rendered according to the column type.
	Default *string `yaml:"default,omitempty"`
	// Limit is the length of a string column. Zero means 255.
	Limit int `yaml:"limit,omitempty" validate:"gte=0"`
}

// NotNull reports whether the column is declared NOT NULL.
func (o Options) NotNull() bool {
	return o.Null != nil && !*o.Null
}

func (o Options) describe() string {
	var parts []string
	if o.Null != nil {
		parts = append(parts, fmt.Sprintf("null=%t", *o.Null))
	}
	if o.Default != nil {
		parts = append(parts, fmt.Sprintf("default=%q", *o.Default))
	}
	if o.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", o.Limit))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// Column is a column definition.
type Column struct {
	Name    string     `validate:"required,sqlident"`
	Type    ColumnType `validate:"required,columntype"`
	Options Options
}

func (c Column) describe() string {
	return fmt.Sprintf("%s %s%s", c.Name, c.Type, c.Options.describe())
}

// Bool returns a pointer to b, for use in Options.Null.
func Bool(b bool) *bool {
	return &b
}

// Str returns a pointer to s, for use in Options.Default.
func Str(s string) *string {
	return &s
}

// TypePtr returns a pointer to t, for use in RemoveColumn.Type.
func TypePtr(t ColumnType) *ColumnType {
	return &t
}

// IndexName returns the conventional name of an index over columns of table.
func IndexName(table string, columns []string) string {
	return fmt.Sprintf("index_%s_on_%s", table, strings.Join(columns, "_and_"))
}

// ReferenceColumn returns the name of the column holding a reference to target.
func ReferenceColumn(target string) string {
	return target + "_id"
}
