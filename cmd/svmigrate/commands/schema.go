package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/migrate/introspect"
)

func newSchemaCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the current database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var exclude []string
			if !all {
				exclude = append(exclude, store.LedgerTable())
			}
			in, err := introspect.NewIntrospector(store.DB(), store.Dialect(), exclude...)
			if err != nil {
				return err
			}
			schema, err := in.Introspect(ctx)
			if err != nil {
				return err
			}
			if len(schema.Tables) == 0 {
				ui.PrintInfo("No tables")
				return nil
			}

			for _, name := range schema.TableNames() {
				if err := printTable(schema.Table(name)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include the ledger table")
	return cmd
}

func printTable(t *introspect.Table) error {
	ui.PrintSection(t.Name)

	rows := make([][]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := "-"
		if c.Default != nil {
			def = *c.Default
		}
		rows = append(rows, []string{c.Name, c.Type, yesNo(c.Nullable), def, yesNo(c.PrimaryKey)})
	}
	if err := ui.PrintTable([]string{"Column", "Type", "Null", "Default", "PK"}, rows); err != nil {
		return err
	}

	if len(t.Indexes) == 0 {
		return nil
	}
	rows = rows[:0]
	for _, idx := range t.Indexes {
		rows = append(rows, []string{idx.Name, strings.Join(idx.Columns, ", "), yesNo(idx.Unique)})
	}
	return ui.PrintTable([]string{"Index", "Columns", "Unique"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
