package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"github.com/svco/svmigrate/internal/config"
	"github.com/svco/svmigrate/internal/debug"
	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/migrate"
	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/executor"
	"github.com/svco/svmigrate/migrate/source"
)

// confirm asks a yes/no question on the terminal.
var confirm = func(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message}, &ok)
	return ok, err
}

func (a *app) openStore(ctx context.Context) (*executor.Store, error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	mode, err := executor.ParseTransactionMode(a.cfg.TransactionMode)
	if err != nil {
		return nil, err
	}
	return executor.Open(ctx, executor.Config{
		Provider:        a.cfg.Provider,
		URL:             a.cfg.DatabaseURL,
		LedgerTable:     a.cfg.LedgerTable,
		TransactionMode: mode,
	})
}

func (a *app) definitions() ([]definition.Migration, error) {
	migrations, err := source.Load(source.NewDir(config.AppFs, a.cfg.MigrationsDir))
	if err != nil {
		return nil, err
	}
	debug.Debug("Loaded definitions", "dir", a.cfg.MigrationsDir, "count", len(migrations))
	return migrations, nil
}

// engine reloads the definitions so every run sees the files as they are now.
func (a *app) engine(store migrate.Store) (*migrate.Engine, error) {
	migrations, err := a.definitions()
	if err != nil {
		return nil, err
	}
	return migrate.NewEngine(store, migrations,
		migrate.WithObserver(report),
		migrate.WithLogger(debug.Logger()),
	), nil
}

func report(ev migrate.Event) {
	id := ev.Version
	if ev.Name != "" {
		id += "_" + ev.Name
	}
	switch ev.Type {
	case migrate.EventStarted:
		verb := "Applying"
		if ev.Direction == migrate.Down {
			verb = "Rolling back"
		}
		ui.PrintStep(ev.Position, ev.Total, verb+" "+id)
	case migrate.EventFinished:
		ui.PrintSuccess("%s (%s)", id, ev.Duration.Round(time.Millisecond))
	case migrate.EventFailed:
		ui.PrintError("%s failed after %s", id, ev.Duration.Round(time.Millisecond))
	}
}

func showPlan(ctx context.Context, engine *migrate.Engine, dir migrate.Direction, target string) error {
	plan, err := engine.Plan(ctx, dir, target)
	if err != nil {
		return err
	}
	if plan.Empty() {
		ui.PrintInfo("Nothing to do")
		return nil
	}
	return ui.PrintMarkdown(planMarkdown(plan))
}

func planMarkdown(plan *migrate.Plan) string {
	var b strings.Builder
	verb := "Apply"
	if plan.Direction == migrate.Down {
		verb = "Roll back"
	}
	fmt.Fprintf(&b, "# %s %d migration(s)\n\n", verb, len(plan.Migrations))
	for _, m := range plan.Migrations {
		fmt.Fprintf(&b, "## %s %s\n\n```sql\n", m.Version, m.Name)
		for _, step := range m.Steps {
			fmt.Fprintf(&b, "-- %s\n", step.Operation)
			for _, stmt := range step.SQL {
				b.WriteString(stmt)
				b.WriteString(";\n")
			}
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

func confirmRollback(plan *migrate.Plan, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := confirm(fmt.Sprintf("Roll back %d migration(s) (%s)?",
		len(plan.Migrations), strings.Join(plan.Versions(), ", ")))
	if err != nil {
		return false, fmt.Errorf("confirmation failed, pass --yes to skip it: %w", err)
	}
	if !ok {
		ui.PrintWarning("Aborted")
	}
	return ok, nil
}
