package operation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies an operation variant.
type Kind string

const (
	KindCreateTable     Kind = "create_table"
	KindDropTable       Kind = "drop_table"
	KindAddColumn       Kind = "add_column"
	KindRemoveColumn    Kind = "remove_column"
	KindRenameColumn    Kind = "rename_column"
	KindAddIndex        Kind = "add_index"
	KindRemoveIndex     Kind = "remove_index"
	KindAddReference    Kind = "add_reference"
	KindRemoveReference Kind = "remove_reference"
)

// ErrIrreversible is returned by Invert for operations that carry too little
// information to be undone.
var ErrIrreversible = errors.New("operation is irreversible")

// Operation is a single structural change. The set of implementations is
// closed: only the types declared in this package satisfy it.
type Operation interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Reversible reports whether Invert can produce an inverse.
	Reversible() bool
	// String renders the operation canonically. Checksums are built from it.
	String() string

	operation()
}

// CreateTable creates a table with an optional surrogate id primary key.
type CreateTable struct {
	Name             string   `validate:"required,sqlident"`
	Columns          []Column `validate:"dive"`
	Timestamps       bool
	TimestampOptions Options
	// WithoutID skips the generated "id" primary key column.
	WithoutID bool
}

// DropTable drops a table. Definition, when captured, makes it reversible.
type DropTable struct {
	Name       string `validate:"required,sqlident"`
	Definition *CreateTable
}

// AddColumn adds a column to an existing table.
type AddColumn struct {
	Table  string `validate:"required,sqlident"`
	Column Column
}

// RemoveColumn drops a column. Type, when captured, makes it reversible.
type RemoveColumn struct {
	Table   string      `validate:"required,sqlident"`
	Name    string      `validate:"required,sqlident"`
	Type    *ColumnType `validate:"omitempty,columntype"`
	Options Options
}

// RenameColumn renames a column.
type RenameColumn struct {
	Table string `validate:"required,sqlident"`
	From  string `validate:"required,sqlident"`
	To    string `validate:"required,sqlident,nefield=From"`
}

// AddIndex creates an index over one or more columns.
type AddIndex struct {
	Table   string   `validate:"required,sqlident"`
	Columns []string `validate:"min=1,dive,sqlident"`
	Unique  bool
	// Name overrides the conventional index name.
	Name string `validate:"omitempty,sqlident"`
}

// RemoveIndex drops an index. Columns, when captured, make it reversible.
type RemoveIndex struct {
	Table   string   `validate:"required,sqlident"`
	Columns []string `validate:"required_without=Name,dive,sqlident"`
	Unique  bool
	Name    string `validate:"omitempty,sqlident"`
}

// AddReference adds a <target>_id column, optionally indexed.
type AddReference struct {
	Table   string `validate:"required,sqlident"`
	Target  string `validate:"required,sqlident"`
	Index   bool
	Options Options
}

// RemoveReference drops a <target>_id column and its index if Index is set.
type RemoveReference struct {
	Table   string `validate:"required,sqlident"`
	Target  string `validate:"required,sqlident"`
	Index   bool
	Options Options
}

func (CreateTable) Kind() Kind     { return KindCreateTable }
func (DropTable) Kind() Kind       { return KindDropTable }
func (AddColumn) Kind() Kind       { return KindAddColumn }
func (RemoveColumn) Kind() Kind    { return KindRemoveColumn }
func (RenameColumn) Kind() Kind    { return KindRenameColumn }
func (AddIndex) Kind() Kind        { return KindAddIndex }
func (RemoveIndex) Kind() Kind     { return KindRemoveIndex }
func (AddReference) Kind() Kind    { return KindAddReference }
func (RemoveReference) Kind() Kind { return KindRemoveReference }

func (CreateTable) Reversible() bool     { return true }
func (op DropTable) Reversible() bool    { return op.Definition != nil }
func (AddColumn) Reversible() bool       { return true }
func (op RemoveColumn) Reversible() bool { return op.Type != nil }
func (RenameColumn) Reversible() bool    { return true }
func (AddIndex) Reversible() bool        { return true }
func (op RemoveIndex) Reversible() bool  { return len(op.Columns) > 0 }
func (AddReference) Reversible() bool    { return true }
func (RemoveReference) Reversible() bool { return true }

func (CreateTable) operation()     {}
func (DropTable) operation()       {}
func (AddColumn) operation()       {}
func (RemoveColumn) operation()    {}
func (RenameColumn) operation()    {}
func (AddIndex) operation()        {}
func (RemoveIndex) operation()     {}
func (AddReference) operation()    {}
func (RemoveReference) operation() {}

// AllColumns returns the declared columns followed by the timestamp columns,
// if any. The id column is not included.
func (op CreateTable) AllColumns() []Column {
	cols := make([]Column, 0, len(op.Columns)+2)
	cols = append(cols, op.Columns...)
	if op.Timestamps {
		cols = append(cols,
			Column{Name: "created_at", Type: DateTime, Options: op.TimestampOptions},
			Column{Name: "updated_at", Type: DateTime, Options: op.TimestampOptions},
		)
	}
	return cols
}

func (op CreateTable) String() string {
	cols := make([]string, 0, len(op.Columns))
	for _, c := range op.Columns {
		cols = append(cols, c.describe())
	}
	s := fmt.Sprintf("create_table %s [%s]", op.Name, strings.Join(cols, "; "))
	if op.Timestamps {
		s += " timestamps" + op.TimestampOptions.describe()
	}
	if op.WithoutID {
		s += " id=false"
	}
	return s
}

func (op DropTable) String() string {
	return "drop_table " + op.Name
}

func (op AddColumn) String() string {
	return fmt.Sprintf("add_column %s %s", op.Table, op.Column.describe())
}

func (op RemoveColumn) String() string {
	if op.Type == nil {
		return fmt.Sprintf("remove_column %s %s", op.Table, op.Name)
	}
	return fmt.Sprintf("remove_column %s %s %s%s", op.Table, op.Name, *op.Type, op.Options.describe())
}

func (op RenameColumn) String() string {
	return fmt.Sprintf("rename_column %s %s -> %s", op.Table, op.From, op.To)
}

// IndexName returns the explicit name or the conventional one.
func (op AddIndex) IndexName() string {
	if op.Name != "" {
		return op.Name
	}
	return IndexName(op.Table, op.Columns)
}

func (op AddIndex) String() string {
	s := fmt.Sprintf("add_index %s [%s]", op.Table, strings.Join(op.Columns, ", "))
	if op.Unique {
		s += " unique"
	}
	if op.Name != "" {
		s += " name=" + op.Name
	}
	return s
}

// IndexName returns the explicit name or the conventional one.
func (op RemoveIndex) IndexName() string {
	if op.Name != "" {
		return op.Name
	}
	return IndexName(op.Table, op.Columns)
}

func (op RemoveIndex) String() string {
	s := fmt.Sprintf("remove_index %s %s", op.Table, op.IndexName())
	if len(op.Columns) > 0 {
		s += " [" + strings.Join(op.Columns, ", ") + "]"
	}
	if op.Unique {
		s += " unique"
	}
	return s
}

// Column returns the reference column definition.
func (op AddReference) Column() Column {
	return Column{Name: ReferenceColumn(op.Target), Type: Integer, Options: op.Options}
}

// IndexName returns the name of the index on the reference column.
func (op AddReference) IndexName() string {
	return IndexName(op.Table, []string{ReferenceColumn(op.Target)})
}

func (op AddReference) String() string {
	s := fmt.Sprintf("add_reference %s %s%s", op.Table, op.Target, op.Options.describe())
	if op.Index {
		s += " indexed"
	}
	return s
}

// Column returns the reference column name.
func (op RemoveReference) Column() string {
	return ReferenceColumn(op.Target)
}

// IndexName returns the name of the index on the reference column.
func (op RemoveReference) IndexName() string {
	return IndexName(op.Table, []string{ReferenceColumn(op.Target)})
}

func (op RemoveReference) String() string {
	s := fmt.Sprintf("remove_reference %s %s", op.Table, op.Target)
	if op.Index {
		s += " indexed"
	}
	return s
}

// Invert returns the operation that undoes op. It fails with ErrIrreversible
// when op lacks the information needed to restore the prior state.
func Invert(op Operation) (Operation, error) {
	if !op.Reversible() {
		return nil, fmt.Errorf("%s: %w", op, ErrIrreversible)
	}

	switch o := op.(type) {
	case CreateTable:
		def := o
		return DropTable{Name: o.Name, Definition: &def}, nil
	case DropTable:
		return *o.Definition, nil
	case AddColumn:
		t := o.Column.Type
		return RemoveColumn{Table: o.Table, Name: o.Column.Name, Type: &t, Options: o.Column.Options}, nil
	case RemoveColumn:
		return AddColumn{Table: o.Table, Column: Column{Name: o.Name, Type: *o.Type, Options: o.Options}}, nil
	case RenameColumn:
		return RenameColumn{Table: o.Table, From: o.To, To: o.From}, nil
	case AddIndex:
		return RemoveIndex{Table: o.Table, Columns: o.Columns, Unique: o.Unique, Name: o.Name}, nil
	case RemoveIndex:
		return AddIndex{Table: o.Table, Columns: o.Columns, Unique: o.Unique, Name: o.Name}, nil
	case AddReference:
		return RemoveReference{Table: o.Table, Target: o.Target, Index: o.Index, Options: o.Options}, nil
	case RemoveReference:
		return AddReference{Table: o.Table, Target: o.Target, Index: o.Index, Options: o.Options}, nil
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}
