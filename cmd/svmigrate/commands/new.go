package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/svco/svmigrate/internal/config"
	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/migrate"
	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/source"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

func newNewCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "new NAME",
		Short: "Create an empty migration definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ext string
			switch format {
			case "mig", "dsl":
				ext = source.ExtDSL
			case "yaml", "yml":
				ext = source.ExtYAML
			default:
				return fmt.Errorf("unknown format %q (want mig or yaml)", format)
			}

			file, err := source.Create(config.AppFs, a.cfg.MigrationsDir, args[0], ext, time.Now())
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created %s", file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mig", "definition format: mig or yaml")
	return cmd
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check definitions without touching the database",
		Long: `Parse every definition, check versions for collisions and render the SQL
for the configured provider. No connection is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrations, err := a.definitions()
			if err != nil {
				return err
			}

			dialect, err := a.dialect()
			if err != nil {
				return err
			}
			gen, err := sqlgen.NewGenerator(dialect)
			if err != nil {
				return err
			}

			var errs error
			for _, c := range definition.FindCollisions(migrations) {
				errs = multierr.Append(errs, &migrate.DuplicateVersionError{Version: c.Version, IDs: c.IDs})
			}
			for _, m := range migrations {
				if err := m.Validate(); err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				for i, op := range m.Operations {
					if _, err := gen.Statements(op); err != nil {
						errs = multierr.Append(errs, fmt.Errorf("migration %s: operation %d (%s): %w", m.ID(), i, op, err))
					}
				}
			}
			if errs != nil {
				return errs
			}

			ui.PrintSuccess("%d migration(s) are valid for %s", len(migrations), dialect)
			return nil
		},
	}
}

// dialect resolves the provider without connecting. PostgreSQL is assumed
// when nothing is configured.
func (a *app) dialect() (sqlgen.Dialect, error) {
	switch {
	case a.cfg.Provider != "":
		return sqlgen.ParseDialect(a.cfg.Provider)
	case a.cfg.DatabaseURL != "":
		return sqlgen.DetectDialect(a.cfg.DatabaseURL), nil
	default:
		return sqlgen.PostgreSQL, nil
	}
}
