package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/internal/watch"
	"github.com/svco/svmigrate/migrate"
	"github.com/svco/svmigrate/migrate/executor"
	"github.com/svco/svmigrate/migrate/source"
)

func newUpCommand(a *app) *cobra.Command {
	var to string
	var dryRun, watchDir bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply every pending migration in version order, each in its own unit of
work. With --to, stop after the given version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if watchDir {
				return a.watchUp(ctx, store, to)
			}
			return a.up(ctx, store, to, dryRun)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "apply migrations up to and including this version")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the SQL without executing it")
	cmd.Flags().BoolVarP(&watchDir, "watch", "w", false, "re-run whenever a definition file changes")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "watch")
	return cmd
}

func (a *app) up(ctx context.Context, store *executor.Store, to string, dryRun bool) error {
	engine, err := a.engine(store)
	if err != nil {
		return err
	}
	if dryRun {
		return showPlan(ctx, engine, migrate.Up, to)
	}

	res, err := engine.Up(ctx, to)
	if err != nil {
		return err
	}
	if len(res.Versions) == 0 {
		ui.PrintInfo("Database is up to date")
		return nil
	}
	ui.PrintSuccess("Applied %d migration(s) in %s", len(res.Versions), res.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) watchUp(ctx context.Context, store *executor.Store, to string) error {
	exts := []string{source.ExtDSL, source.ExtYAML, source.ExtYML}
	w, err := watch.NewWatcher(a.cfg.MigrationsDir, exts, func() error {
		return a.up(ctx, store, to, false)
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	ui.PrintInfo("Watching %s for changes (Ctrl+C to stop)", a.cfg.MigrationsDir)
	<-ctx.Done()
	return w.Stop()
}

func newDownCommand(a *app) *cobra.Command {
	var to string
	var dryRun, yes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Long: `Roll back the latest applied migration. With --to, roll back every applied
migration newer than the given version; --to 0 rolls back everything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := a.engine(store)
			if err != nil {
				return err
			}
			if dryRun {
				return showPlan(ctx, engine, migrate.Down, to)
			}

			plan, err := engine.Plan(ctx, migrate.Down, to)
			if err != nil {
				return err
			}
			if plan.Empty() {
				ui.PrintInfo("Nothing to roll back")
				return nil
			}
			if ok, err := confirmRollback(plan, yes); !ok {
				return err
			}

			res, err := engine.Down(ctx, to)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Rolled back %d migration(s) in %s", len(res.Versions), res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "roll back migrations newer than this version (0 for all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the SQL without executing it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newRedoCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Roll back the latest migration and apply it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := a.engine(store)
			if err != nil {
				return err
			}
			plan, err := engine.Plan(ctx, migrate.Down, "")
			if err != nil {
				return err
			}
			if plan.Empty() {
				ui.PrintInfo("Nothing to redo")
				return nil
			}
			if ok, err := confirmRollback(plan, yes); !ok {
				return err
			}

			down, err := engine.Down(ctx, "")
			if err != nil {
				return err
			}
			if _, err := engine.Apply(ctx, down.Versions[0]); err != nil {
				return err
			}
			ui.PrintSuccess("Redid %s", down.Versions[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := a.engine(store)
			if err != nil {
				return err
			}
			statuses, err := engine.Status(ctx)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				ui.PrintInfo("No migrations found in %s", a.cfg.MigrationsDir)
				return nil
			}

			counts := map[migrate.State]int{}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				counts[s.State]++
				appliedAt := "-"
				if !s.AppliedAt.IsZero() {
					appliedAt = s.AppliedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{s.Version, s.Name, ui.State(string(s.State)), appliedAt})
			}
			if err := ui.PrintTable([]string{"Version", "Name", "State", "Applied At"}, rows); err != nil {
				return err
			}

			ui.PrintInfo("%d applied, %d pending", len(statuses)-counts[migrate.StatePending], counts[migrate.StatePending])
			if n := counts[migrate.StateModified]; n > 0 {
				ui.PrintWarning("%d migration(s) changed after they were applied", n)
			}
			if n := counts[migrate.StateMissing]; n > 0 {
				ui.PrintWarning("%d applied migration(s) have no definition in %s", n, a.cfg.MigrationsDir)
			}
			return nil
		},
	}
}
