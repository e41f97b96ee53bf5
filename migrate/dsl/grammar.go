package dsl

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer defines the tokens of the migration language.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},

	// Keywords (must come before OptKey and Ident)
	{Name: "Keyword", Pattern: `\b(create_table|drop_table|add_column|remove_column|rename_column|add_index|remove_index|add_reference|remove_reference|timestamps)\b`},

	// Option key with its trailing colon, e.g. "null:"
	{Name: "OptKey", Pattern: `[A-Za-z_][A-Za-z0-9_]*:`},

	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[\[\]{},]`},
})

// File is the parse tree of one definition file.
type File struct {
	Pos        lexer.Position
	Statements []*Statement `@@*`
}

// Statement is a union of every operation statement.
type Statement struct {
	Pos             lexer.Position
	CreateTable     *CreateTableStmt     `  @@`
	DropTable       *DropTableStmt       `| @@`
	AddColumn       *AddColumnStmt       `| @@`
	RemoveColumn    *RemoveColumnStmt    `| @@`
	RenameColumn    *RenameColumnStmt    `| @@`
	AddIndex        *AddIndexStmt        `| @@`
	RemoveIndex     *RemoveIndexStmt     `| @@`
	AddReference    *AddReferenceStmt    `| @@`
	RemoveReference *RemoveReferenceStmt `| @@`
}

// CreateTableStmt: create_table NAME [opts] { items }
type CreateTableStmt struct {
	Pos     lexer.Position
	Name    string       `"create_table" @Ident`
	Options []*Option    `@@*`
	Items   []*TableItem `"{" @@* "}"`
}

// DropTableStmt: drop_table NAME [{ items }]. The optional body records the
// dropped table so the statement can be reversed.
type DropTableStmt struct {
	Pos     lexer.Position
	Name    string       `"drop_table" @Ident`
	Options []*Option    `@@*`
	Body    bool         `( @"{"`
	Items   []*TableItem `  @@* "}" )?`
}

// TableItem is one line of a table body.
type TableItem struct {
	Pos        lexer.Position
	Timestamps *TimestampsDef `  @@`
	Column     *ColumnDef     `| @@`
}

// TimestampsDef: timestamps [opts]
type TimestampsDef struct {
	Pos     lexer.Position
	Keyword string    `@"timestamps"`
	Options []*Option `@@*`
}

// ColumnDef: TYPE NAME [opts]
type ColumnDef struct {
	Pos     lexer.Position
	Type    string    `@Ident`
	Name    string    `@Ident`
	Options []*Option `@@*`
}

// AddColumnStmt: add_column TABLE COLUMN TYPE [opts]
type AddColumnStmt struct {
	Pos     lexer.Position
	Table   string    `"add_column" @Ident`
	Name    string    `@Ident`
	Type    string    `@Ident`
	Options []*Option `@@*`
}

// RemoveColumnStmt: remove_column TABLE COLUMN [TYPE [opts]]
type RemoveColumnStmt struct {
	Pos     lexer.Position
	Table   string    `"remove_column" @Ident`
	Name    string    `@Ident`
	Type    string    `( @Ident`
	Options []*Option `  @@* )?`
}

// RenameColumnStmt: rename_column TABLE FROM TO
type RenameColumnStmt struct {
	Pos   lexer.Position
	Table string `"rename_column" @Ident`
	From  string `@Ident`
	To    string `@Ident`
}

// AddIndexStmt: add_index TABLE COLUMNS [opts]
type AddIndexStmt struct {
	Pos     lexer.Position
	Table   string      `"add_index" @Ident`
	Columns *ColumnList `@@`
	Options []*Option   `@@*`
}

// RemoveIndexStmt: remove_index TABLE [COLUMNS] [opts]
type RemoveIndexStmt struct {
	Pos     lexer.Position
	Table   string      `"remove_index" @Ident`
	Columns *ColumnList `@@?`
	Options []*Option   `@@*`
}

// AddReferenceStmt: add_reference TABLE TARGET [opts]
type AddReferenceStmt struct {
	Pos     lexer.Position
	Table   string    `"add_reference" @Ident`
	Target  string    `@Ident`
	Options []*Option `@@*`
}

// RemoveReferenceStmt: remove_reference TABLE TARGET [opts]
type RemoveReferenceStmt struct {
	Pos     lexer.Position
	Table   string    `"remove_reference" @Ident`
	Target  string    `@Ident`
	Options []*Option `@@*`
}

// ColumnList is either a single column or a bracketed list.
type ColumnList struct {
	Pos   lexer.Position
	Names []string `  "[" @Ident ( "," @Ident )* "]"`
	Name  string   `| @Ident`
}

// Columns returns the listed column names.
func (c *ColumnList) Columns() []string {
	if c == nil {
		return nil
	}
	if c.Name != "" {
		return []string{c.Name}
	}
	return c.Names
}

// Option is a "key: value" pair.
type Option struct {
	Pos   lexer.Position
	Key   string `@OptKey`
	Value *Value `@@`
}

// Value is an option value.
type Value struct {
	Pos    lexer.Position
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @( "true" | "false" )`
	Null   bool    `| @"null"`
}

// parser is the Participle parser instance.
var parser = participle.MustBuild[File](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.Map(func(t lexer.Token) (lexer.Token, error) {
		t.Value = strings.TrimSuffix(t.Value, ":")
		return t, nil
	}, "OptKey"),
	participle.UseLookahead(4),
)
