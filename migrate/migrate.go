// Package migrate applies versioned schema migrations to a relational store
// and rolls them back. It keeps a ledger of applied versions in the store
// itself and runs each migration inside its own unit of work.
package migrate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/svco/svmigrate/internal/debug"
	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/executor"
	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

// Store is the persistent store migrations are applied to.
type Store interface {
	Dialect() sqlgen.Dialect
	EnsureLedger(ctx context.Context) error
	Ledger(ctx context.Context) ([]history.Record, error)
	Begin(ctx context.Context) (executor.Unit, error)
}

// Engine is the migration runner. Runs on one Engine are serialized.
type Engine struct {
	mu         sync.Mutex
	store      Store
	migrations []definition.Migration
	observer   func(Event)
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers a callback receiving progress events.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithLogger sets the logger. Defaults to the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a migration engine for the given definitions. The
// definitions may be in any order.
func NewEngine(store Store, migrations []definition.Migration, opts ...Option) *Engine {
	sorted := make([]definition.Migration, len(migrations))
	copy(sorted, migrations)
	definition.Sort(sorted)

	e := &Engine{
		store:      store,
		migrations: sorted,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = debug.Logger()
	}
	return e
}

// Migrations returns the definitions in version order.
func (e *Engine) Migrations() []definition.Migration {
	out := make([]definition.Migration, len(e.migrations))
	copy(out, e.migrations)
	return out
}

// Result summarizes a run.
type Result struct {
	Direction Direction
	// Versions lists the migrations that completed, in execution order.
	Versions []string
	Duration time.Duration
}

// Up applies every pending migration with a version up to target, in
// ascending order. An empty target applies all pending migrations. The run
// stops at the first failure; migrations completed before it stay applied.
func (e *Engine) Up(ctx context.Context, target string) (*Result, error) {
	return e.run(ctx, Up, target)
}

// Down rolls back applied migrations with a version greater than target,
// newest first. An empty target rolls back only the most recent migration;
// "0" rolls back everything. Nothing runs if any selected operation is
// irreversible.
func (e *Engine) Down(ctx context.Context, target string) (*Result, error) {
	return e.run(ctx, Down, target)
}

// Apply applies exactly the pending migration with the given version, even
// when migrations with lower versions are pending too. It does nothing if
// that version is already applied.
func (e *Engine) Apply(ctx context.Context, version string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	plan, err := e.plan(ctx, Up, version)
	if err != nil {
		return nil, err
	}
	if version == "" || !e.defines(version) {
		return nil, &MissingDefinitionError{Version: version}
	}

	exact := &Plan{Direction: Up}
	for _, pm := range plan.Migrations {
		if definition.CompareVersions(pm.Version, version) == 0 {
			exact.Migrations = append(exact.Migrations, pm)
		}
	}
	return e.runPlan(ctx, start, exact)
}

func (e *Engine) defines(version string) bool {
	for _, m := range e.migrations {
		if definition.CompareVersions(m.Version, version) == 0 {
			return true
		}
	}
	return false
}

func (e *Engine) run(ctx context.Context, dir Direction, target string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	plan, err := e.plan(ctx, dir, target)
	if err != nil {
		return nil, err
	}
	return e.runPlan(ctx, start, plan)
}

// runPlan executes plan one migration at a time and stops at the first
// failure.
func (e *Engine) runPlan(ctx context.Context, start time.Time, plan *Plan) (*Result, error) {
	dir := plan.Direction
	result := &Result{Direction: dir}
	if plan.Empty() {
		e.logger.Debug("Nothing to migrate", "direction", dir)
		result.Duration = e.now().Sub(start)
		return result, nil
	}

	for i, pm := range plan.Migrations {
		ev := Event{Direction: dir, Version: pm.Version, Name: pm.Name, Position: i + 1, Total: len(plan.Migrations)}
		e.emit(ev.with(EventStarted, 0, nil))

		began := e.now()
		err := e.execute(ctx, dir, pm)
		elapsed := e.now().Sub(began)
		if err != nil {
			e.emit(ev.with(EventFailed, elapsed, err))
			result.Duration = e.now().Sub(start)
			return result, err
		}

		e.emit(ev.with(EventFinished, elapsed, nil))
		result.Versions = append(result.Versions, pm.Version)
	}

	result.Duration = e.now().Sub(start)
	return result, nil
}

// execute runs one migration inside its own unit of work. The unit is
// released on every path out, including panics.
func (e *Engine) execute(ctx context.Context, dir Direction, pm PlannedMigration) (err error) {
	log := e.logger.With("version", pm.Version, "name", pm.Name, "direction", dir)

	unit, err := e.store.Begin(ctx)
	if err != nil {
		return storeError(pm.Version, "failed to begin migration "+label(pm.Version, pm.Name), err)
	}

	done := false
	defer func() {
		if p := recover(); p != nil {
			_ = unit.Rollback()
			panic(p)
		}
		if !done {
			if rerr := unit.Rollback(); rerr != nil {
				log.Warn("Rollback failed", "error", rerr)
			}
		}
	}()

	executed := 0
	fail := func(step Step, cause error) error {
		if executor.IsUnavailable(cause) {
			cause = &StoreUnavailableError{Version: pm.Version, Err: cause}
		}
		partial := !unit.Atomic() && executed > 0
		if partial {
			log.Warn("Store has no transactional DDL; executed statements were not rolled back", "statements", executed)
		}
		return &MigrationFailedError{
			Version:        pm.Version,
			Name:           pm.Name,
			Direction:      dir,
			OperationIndex: step.OperationIndex,
			Operation:      step.Operation,
			Partial:        partial,
			Err:            cause,
		}
	}

	began := e.now()
	for _, step := range pm.Steps {
		for _, stmt := range step.SQL {
			log.Debug("Executing statement", "operation", step.OperationIndex, "sql", stmt)
			if err := unit.ExecDDL(ctx, stmt); err != nil {
				return fail(step, err)
			}
			executed++
		}
	}

	ledgerStep := Step{OperationIndex: LedgerStep}
	switch dir {
	case Up:
		err = unit.RecordApplied(ctx, history.Record{
			Version:     pm.Version,
			Name:        pm.Name,
			Checksum:    pm.Checksum,
			ExecutionMS: e.now().Sub(began).Milliseconds(),
			AppliedAt:   e.now(),
		})
	case Down:
		err = unit.RecordReverted(ctx, pm.Version)
	}
	if err != nil {
		return fail(ledgerStep, err)
	}
	if err := unit.Commit(); err != nil {
		return fail(ledgerStep, err)
	}
	done = true

	log.Info("Migration complete", "statements", executed)
	return nil
}

func (e *Engine) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}
