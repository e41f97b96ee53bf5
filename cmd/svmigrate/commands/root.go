// Package commands implements the svmigrate command line.
package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/svco/svmigrate/internal/config"
	"github.com/svco/svmigrate/internal/debug"
	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/internal/version"
	"github.com/svco/svmigrate/migrate"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// app carries the resolved configuration between the root command and its
// subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
}

// flag name for each config key
var flagKeys = map[string]string{
	config.KeyDatabaseURL:     "database-url",
	config.KeyProvider:        "provider",
	config.KeyDir:             "dir",
	config.KeyTable:           "table",
	config.KeyTransactionMode: "tx-mode",
	config.KeyDebug:           "debug",
}

// NewRootCommand builds the svmigrate command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "svmigrate",
		Short: "Versioned schema migrations",
		Long: `svmigrate applies and rolls back schema migrations kept as versioned
definition files, recording what ran in a ledger table.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Root().PersistentFlags())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: .svmigrate.yaml in ., $HOME or ~/.config/svmigrate)")
	flags.String("database-url", "", "database connection URL (default: $DATABASE_URL)")
	flags.String("provider", "", "database provider: postgres, mysql or sqlite (default: detected from the URL)")
	flags.String("dir", "", "migrations directory (default: db/migrate)")
	flags.String("table", "", "ledger table (default: schema_migrations)")
	flags.String("tx-mode", "", "transaction mode: auto, always or never (default: auto)")
	flags.Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		newUpCommand(a),
		newDownCommand(a),
		newRedoCommand(a),
		newStatusCommand(a),
		newNewCommand(a),
		newValidateCommand(a),
		newSchemaCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func (a *app) load(flags *pflag.FlagSet) error {
	v, err := config.New()
	if err != nil {
		return err
	}
	for key, name := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig(v, a.cfgFile)
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug)
	if cfg.File != "" {
		debug.Debug("Loaded config", "file", cfg.File)
	}
	a.cfg = cfg
	return nil
}

func reportError(err error) {
	ui.PrintError("%v", err)

	var failed *migrate.MigrationFailedError
	var irreversible *migrate.IrreversibleMigrationError
	switch {
	case errors.As(err, &failed) && failed.Partial:
		ui.PrintWarning("Migration %s was partially applied and may need manual repair", failed.Version)
	case errors.As(err, &irreversible):
		ui.PrintInfo("Nothing was rolled back")
	case errors.Is(err, context.Canceled):
		ui.PrintInfo("Interrupted")
	}
}
