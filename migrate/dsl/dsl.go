// Package dsl parses the .mig migration definition language.
//
// A file holds one statement per operation:
//
//	create_table batches {
//	  string name null: false
//	  date start_date
//	  timestamps null: false
//	}
//	add_column startups pre_funds string default: "0"
//	rename_column timeline_events next_event_id improved_timeline_event_id
//	add_index resources [share_status, shared_with_batch] unique: true
//	add_reference batch_applicants college index: true
//	remove_column users phone string   # type makes it reversible
package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/svco/svmigrate/migrate/operation"
)

// Parse parses a definition file into operations.
func Parse(filename string, r io.Reader) ([]operation.Operation, error) {
	file, err := parser.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	ops := make([]operation.Operation, 0, len(file.Statements))
	for _, stmt := range file.Statements {
		op, err := stmt.operation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// ParseString parses definition source held in a string.
func ParseString(filename, src string) ([]operation.Operation, error) {
	return Parse(filename, strings.NewReader(src))
}

func (s *Statement) operation() (operation.Operation, error) {
	switch {
	case s.CreateTable != nil:
		return s.CreateTable.operation()
	case s.DropTable != nil:
		return s.DropTable.operation()
	case s.AddColumn != nil:
		return s.AddColumn.operation()
	case s.RemoveColumn != nil:
		return s.RemoveColumn.operation()
	case s.RenameColumn != nil:
		r := s.RenameColumn
		return operation.RenameColumn{Table: r.Table, From: r.From, To: r.To}, nil
	case s.AddIndex != nil:
		return s.AddIndex.operation()
	case s.RemoveIndex != nil:
		return s.RemoveIndex.operation()
	case s.AddReference != nil:
		return s.AddReference.operation()
	case s.RemoveReference != nil:
		return s.RemoveReference.operation()
	default:
		return nil, errorf(s.Pos, "empty statement")
	}
}

func (s *CreateTableStmt) operation() (operation.Operation, error) {
	opts, err := collect(s.Options, "id")
	if err != nil {
		return nil, err
	}
	op := operation.CreateTable{Name: s.Name}
	if v, ok := opts["id"]; ok {
		id, err := v.asBool()
		if err != nil {
			return nil, err
		}
		op.WithoutID = !id
	}
	if err := fillTable(&op, s.Items); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *DropTableStmt) operation() (operation.Operation, error) {
	opts, err := collect(s.Options, "id")
	if err != nil {
		return nil, err
	}
	op := operation.DropTable{Name: s.Name}
	if !s.Body {
		if len(opts) > 0 {
			return nil, errorf(s.Pos, "drop_table %s: options need a table body", s.Name)
		}
		return op, nil
	}
	def := operation.CreateTable{Name: s.Name}
	if v, ok := opts["id"]; ok {
		id, err := v.asBool()
		if err != nil {
			return nil, err
		}
		def.WithoutID = !id
	}
	if err := fillTable(&def, s.Items); err != nil {
		return nil, err
	}
	op.Definition = &def
	return op, nil
}

func fillTable(op *operation.CreateTable, items []*TableItem) error {
	for _, item := range items {
		switch {
		case item.Timestamps != nil:
			if op.Timestamps {
				return errorf(item.Pos, "table %s: timestamps declared twice", op.Name)
			}
			opts, err := columnOptions(item.Timestamps.Options, false)
			if err != nil {
				return err
			}
			op.Timestamps = true
			op.TimestampOptions = opts
		case item.Column != nil:
			col, err := column(item.Column.Pos, item.Column.Name, item.Column.Type, item.Column.Options)
			if err != nil {
				return err
			}
			op.Columns = append(op.Columns, col)
		}
	}
	return nil
}

func (s *AddColumnStmt) operation() (operation.Operation, error) {
	col, err := column(s.Pos, s.Name, s.Type, s.Options)
	if err != nil {
		return nil, err
	}
	return operation.AddColumn{Table: s.Table, Column: col}, nil
}

func (s *RemoveColumnStmt) operation() (operation.Operation, error) {
	op := operation.RemoveColumn{Table: s.Table, Name: s.Name}
	if s.Type == "" {
		return op, nil
	}
	col, err := column(s.Pos, s.Name, s.Type, s.Options)
	if err != nil {
		return nil, err
	}
	op.Type = operation.TypePtr(col.Type)
	op.Options = col.Options
	return op, nil
}

func (s *AddIndexStmt) operation() (operation.Operation, error) {
	unique, name, err := indexOptions(s.Options)
	if err != nil {
		return nil, err
	}
	return operation.AddIndex{Table: s.Table, Columns: s.Columns.Columns(), Unique: unique, Name: name}, nil
}

func (s *RemoveIndexStmt) operation() (operation.Operation, error) {
	unique, name, err := indexOptions(s.Options)
	if err != nil {
		return nil, err
	}
	if s.Columns == nil && name == "" {
		return nil, errorf(s.Pos, "remove_index %s: columns or name: required", s.Table)
	}
	return operation.RemoveIndex{Table: s.Table, Columns: s.Columns.Columns(), Unique: unique, Name: name}, nil
}

func (s *AddReferenceStmt) operation() (operation.Operation, error) {
	index, opts, err := referenceOptions(s.Options)
	if err != nil {
		return nil, err
	}
	return operation.AddReference{Table: s.Table, Target: s.Target, Index: index, Options: opts}, nil
}

func (s *RemoveReferenceStmt) operation() (operation.Operation, error) {
	index, opts, err := referenceOptions(s.Options)
	if err != nil {
		return nil, err
	}
	return operation.RemoveReference{Table: s.Table, Target: s.Target, Index: index, Options: opts}, nil
}

func column(pos lexer.Position, name, typ string, options []*Option) (operation.Column, error) {
	t, err := operation.ParseColumnType(typ)
	if err != nil {
		return operation.Column{}, errorf(pos, "column %s: %v", name, err)
	}
	opts, err := columnOptions(options, true)
	if err != nil {
		return operation.Column{}, err
	}
	return operation.Column{Name: name, Type: t, Options: opts}, nil
}

func columnOptions(options []*Option, withLimit bool) (operation.Options, error) {
	allowed := []string{"null", "default"}
	if withLimit {
		allowed = append(allowed, "limit")
	}
	opts, err := collect(options, allowed...)
	if err != nil {
		return operation.Options{}, err
	}

	var out operation.Options
	if v, ok := opts["null"]; ok {
		b, err := v.asBool()
		if err != nil {
			return out, err
		}
		out.Null = operation.Bool(b)
	}
	if v, ok := opts["default"]; ok && !v.Null {
		s := v.literal()
		out.Default = &s
	}
	if v, ok := opts["limit"]; ok {
		n, err := v.asInt()
		if err != nil {
			return out, err
		}
		if n <= 0 {
			return out, errorf(v.Pos, "limit must be positive")
		}
		out.Limit = n
	}
	return out, nil
}

func indexOptions(options []*Option) (unique bool, name string, err error) {
	opts, err := collect(options, "unique", "name")
	if err != nil {
		return false, "", err
	}
	if v, ok := opts["unique"]; ok {
		if unique, err = v.asBool(); err != nil {
			return false, "", err
		}
	}
	if v, ok := opts["name"]; ok {
		if name, err = v.asString(); err != nil {
			return false, "", err
		}
	}
	return unique, name, nil
}

func referenceOptions(options []*Option) (bool, operation.Options, error) {
	var index bool
	var rest []*Option
	for _, o := range options {
		if o.Key == "index" {
			b, err := o.Value.asBool()
			if err != nil {
				return false, operation.Options{}, err
			}
			index = b
			continue
		}
		rest = append(rest, o)
	}
	opts, err := columnOptions(rest, false)
	return index, opts, err
}

// collect indexes options by key, rejecting unknown and repeated keys.
func collect(options []*Option, allowed ...string) (map[string]*Value, error) {
	out := make(map[string]*Value, len(options))
	for _, o := range options {
		known := false
		for _, a := range allowed {
			if o.Key == a {
				known = true
				break
			}
		}
		if !known {
			return nil, errorf(o.Pos, "unknown option %q", o.Key)
		}
		if _, dup := out[o.Key]; dup {
			return nil, errorf(o.Pos, "option %q given twice", o.Key)
		}
		out[o.Key] = o.Value
	}
	return out, nil
}

func (v *Value) asBool() (bool, error) {
	if v.Bool == nil {
		return false, errorf(v.Pos, "expected true or false")
	}
	return *v.Bool == "true", nil
}

func (v *Value) asInt() (int, error) {
	if v.Number == nil {
		return 0, errorf(v.Pos, "expected a number")
	}
	n, err := strconv.Atoi(*v.Number)
	if err != nil {
		return 0, errorf(v.Pos, "%v", err)
	}
	return n, nil
}

func (v *Value) asString() (string, error) {
	if v.String == nil {
		return "", errorf(v.Pos, "expected a string")
	}
	return *v.String, nil
}

// literal renders any non-null value as default text.
func (v *Value) literal() string {
	switch {
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return *v.Bool
	default:
		return ""
	}
}

func errorf(pos lexer.Position, format string, args ...any) error {
	return fmt.Errorf("%s: %s", pos, fmt.Sprintf(format, args...))
}
