package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/svco/svmigrate/migrate/operation"
)

// yamlFile is the YAML form of a definition file:
//
//	operations:
//	  - op: add_column
//	    table: startups
//	    column: {name: pre_funds, type: string}
type yamlFile struct {
	Operations []yamlOperation `yaml:"operations" validate:"required,min=1,dive"`
}

type yamlOperation struct {
	Op    string `yaml:"op" validate:"required,oneof=create_table drop_table add_column remove_column rename_column add_index remove_index add_reference remove_reference"`
	Table string `yaml:"table" validate:"required,sqlident"`

	// create_table, drop_table
	Columns          []yamlColumn `yaml:"columns" validate:"dive"`
	Timestamps       bool         `yaml:"timestamps"`
	TimestampOptions yamlOptions  `yaml:"timestamp_options"`
	ID               *bool        `yaml:"id"`

	// add_column, remove_column
	Column *yamlColumn `yaml:"column"`

	// rename_column
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// add_index, remove_index
	On     []string `yaml:"on"`
	Unique bool     `yaml:"unique"`
	Name   string   `yaml:"name"`

	// add_reference, remove_reference
	Target  string      `yaml:"target"`
	Index   bool        `yaml:"index"`
	Options yamlOptions `yaml:"options"`
}

type yamlColumn struct {
	Name    string            `yaml:"name" validate:"required"`
	Type    string            `yaml:"type"`
	Options operation.Options `yaml:"-"`
}

// yamlOptions decodes column options. yaml.v3 resolves a plain `null` key
// to the null scalar, so options are matched on the key's source text.
type yamlOptions operation.Options

func (o *yamlOptions) UnmarshalYAML(node *yaml.Node) error {
	return decodeOptions(node, (*operation.Options)(o), nil)
}

func (c *yamlColumn) UnmarshalYAML(node *yaml.Node) error {
	return decodeOptions(node, &c.Options, map[string]*string{
		"name": &c.Name,
		"type": &c.Type,
	})
}

// decodeOptions reads null, default and limit from a mapping node, plus the
// string fields named in extra. Any other key is an error.
func decodeOptions(node *yaml.Node, opts *operation.Options, extra map[string]*string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var err error
		switch key.Value {
		case "null":
			var b bool
			if err = value.Decode(&b); err == nil {
				opts.Null = &b
			}
		case "default":
			if value.Tag == "!!null" {
				continue
			}
			var s string
			if err = value.Decode(&s); err == nil {
				opts.Default = &s
			}
		case "limit":
			err = value.Decode(&opts.Limit)
		default:
			target, ok := extra[key.Value]
			if !ok {
				return fmt.Errorf("line %d: field %s not found", key.Line, key.Value)
			}
			err = value.Decode(target)
		}
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", key.Line, key.Value, err)
		}
	}
	return nil
}

func parseYAML(file string, r io.Reader) ([]operation.Operation, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", file)
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := operation.Validator().Struct(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, describe(err))
	}

	ops := make([]operation.Operation, 0, len(doc.Operations))
	for i, y := range doc.Operations {
		op, err := y.operation()
		if err != nil {
			return nil, fmt.Errorf("%s: operation %d: %w", file, i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (y yamlOperation) operation() (operation.Operation, error) {
	switch operation.Kind(y.Op) {
	case operation.KindCreateTable:
		return y.table()
	case operation.KindDropTable:
		op := operation.DropTable{Name: y.Table}
		if len(y.Columns) > 0 || y.Timestamps {
			def, err := y.table()
			if err != nil {
				return nil, err
			}
			op.Definition = &def
		}
		return op, nil
	case operation.KindAddColumn:
		if y.Column == nil {
			return nil, fmt.Errorf("add_column needs a column")
		}
		col, err := y.Column.column()
		if err != nil {
			return nil, err
		}
		return operation.AddColumn{Table: y.Table, Column: col}, nil
	case operation.KindRemoveColumn:
		if y.Column == nil {
			return nil, fmt.Errorf("remove_column needs a column")
		}
		op := operation.RemoveColumn{Table: y.Table, Name: y.Column.Name, Options: y.Column.Options}
		if y.Column.Type != "" {
			t, err := operation.ParseColumnType(y.Column.Type)
			if err != nil {
				return nil, err
			}
			op.Type = &t
		}
		return op, nil
	case operation.KindRenameColumn:
		return operation.RenameColumn{Table: y.Table, From: y.From, To: y.To}, nil
	case operation.KindAddIndex:
		return operation.AddIndex{Table: y.Table, Columns: y.On, Unique: y.Unique, Name: y.Name}, nil
	case operation.KindRemoveIndex:
		return operation.RemoveIndex{Table: y.Table, Columns: y.On, Unique: y.Unique, Name: y.Name}, nil
	case operation.KindAddReference:
		return operation.AddReference{Table: y.Table, Target: y.Target, Index: y.Index, Options: operation.Options(y.Options)}, nil
	case operation.KindRemoveReference:
		return operation.RemoveReference{Table: y.Table, Target: y.Target, Index: y.Index, Options: operation.Options(y.Options)}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", y.Op)
	}
}

func (y yamlOperation) table() (operation.CreateTable, error) {
	op := operation.CreateTable{
		Name:             y.Table,
		Timestamps:       y.Timestamps,
		TimestampOptions: operation.Options(y.TimestampOptions),
		WithoutID:        y.ID != nil && !*y.ID,
	}
	for _, c := range y.Columns {
		col, err := c.column()
		if err != nil {
			return op, err
		}
		op.Columns = append(op.Columns, col)
	}
	return op, nil
}

func (c yamlColumn) column() (operation.Column, error) {
	t, err := operation.ParseColumnType(c.Type)
	if err != nil {
		return operation.Column{}, fmt.Errorf("column %s: %w", c.Name, err)
	}
	return operation.Column{Name: c.Name, Type: t, Options: c.Options}, nil
}

// describe flattens validation errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Errorf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(msgs...)
}
