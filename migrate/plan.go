package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/operation"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

// Direction is the way a migration is run.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Plan is the ordered work a run would perform.
type Plan struct {
	Direction  Direction
	Migrations []PlannedMigration
}

// Versions returns the versions in execution order.
func (p *Plan) Versions() []string {
	versions := make([]string, len(p.Migrations))
	for i, m := range p.Migrations {
		versions[i] = m.Version
	}
	return versions
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Migrations) == 0
}

// PlannedMigration is one migration with the statements it will run.
type PlannedMigration struct {
	Version  string
	Name     string
	Checksum string
	Steps    []Step
}

// Step is a single operation rendered as SQL. On rollback Operation is the
// inverse and OperationIndex still refers to the forward operation.
type Step struct {
	OperationIndex int
	Operation      operation.Operation
	SQL            []string
}

// Plan computes what Up or Down would do for target without executing
// anything.
func (e *Engine) Plan(ctx context.Context, dir Direction, target string) (*Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.plan(ctx, dir, target)
}

func (e *Engine) plan(ctx context.Context, dir Direction, target string) (*Plan, error) {
	gen, err := e.prepare(target)
	if err != nil {
		return nil, err
	}

	applied, err := e.loadLedger(ctx)
	if err != nil {
		return nil, err
	}

	switch dir {
	case Up:
		return e.planUp(gen, applied, target)
	case Down:
		return e.planDown(gen, applied, target)
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
}

// prepare validates the definition set and the target.
func (e *Engine) prepare(target string) (sqlgen.Generator, error) {
	for _, m := range e.migrations {
		if _, err := definition.ParseVersion(m.Version); err != nil {
			return nil, &InvalidVersionError{Token: m.Version, Err: err}
		}
	}
	if collisions := definition.FindCollisions(e.migrations); len(collisions) > 0 {
		c := collisions[0]
		return nil, &DuplicateVersionError{Version: c.Version, IDs: c.IDs}
	}
	for _, m := range e.migrations {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("invalid migration: %w", err)
		}
	}
	if target != "" {
		if _, err := definition.ParseVersion(target); err != nil {
			return nil, &InvalidVersionError{Token: target, Err: err}
		}
	}
	return sqlgen.NewGenerator(e.store.Dialect())
}

func (e *Engine) planUp(gen sqlgen.Generator, applied map[string]history.Record, target string) (*Plan, error) {
	plan := &Plan{Direction: Up}
	for _, m := range e.migrations {
		if _, ok := applied[definition.CanonicalVersion(m.Version)]; ok {
			continue
		}
		if target != "" && definition.CompareVersions(m.Version, target) > 0 {
			break
		}

		pm := PlannedMigration{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}
		for i, op := range m.Operations {
			stmts, err := gen.Statements(op)
			if err != nil {
				return nil, &MigrationFailedError{
					Version: m.Version, Name: m.Name, Direction: Up,
					OperationIndex: i, Operation: op, Err: err,
				}
			}
			pm.Steps = append(pm.Steps, Step{OperationIndex: i, Operation: op, SQL: stmts})
		}
		plan.Migrations = append(plan.Migrations, pm)
	}
	return plan, nil
}

// planDown selects applied migrations newer than target, newest first. An
// empty target selects only the newest. Every inverse is computed here so
// that an irreversible operation stops the run before anything executes.
func (e *Engine) planDown(gen sqlgen.Generator, applied map[string]history.Record, target string) (*Plan, error) {
	records := make([]history.Record, 0, len(applied))
	for _, r := range applied {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return definition.CompareVersions(records[i].Version, records[j].Version) > 0
	})

	var selected []history.Record
	for _, r := range records {
		if target != "" && definition.CompareVersions(r.Version, target) <= 0 {
			break
		}
		selected = append(selected, r)
		if target == "" {
			break
		}
	}

	defs := make(map[string]definition.Migration, len(e.migrations))
	for _, m := range e.migrations {
		defs[definition.CanonicalVersion(m.Version)] = m
	}

	plan := &Plan{Direction: Down}
	for _, r := range selected {
		m, ok := defs[definition.CanonicalVersion(r.Version)]
		if !ok {
			return nil, &MissingDefinitionError{Version: r.Version}
		}

		// The ledger spelling of the version is what must be removed.
		pm := PlannedMigration{Version: r.Version, Name: m.Name, Checksum: m.Checksum()}
		for i := len(m.Operations) - 1; i >= 0; i-- {
			op := m.Operations[i]
			inv, err := operation.Invert(op)
			if err != nil {
				return nil, &IrreversibleMigrationError{
					Version: r.Version, Name: m.Name, OperationIndex: i, Operation: op,
				}
			}
			stmts, err := gen.Statements(inv)
			if err != nil {
				return nil, &MigrationFailedError{
					Version: r.Version, Name: m.Name, Direction: Down,
					OperationIndex: i, Operation: inv, Err: err,
				}
			}
			pm.Steps = append(pm.Steps, Step{OperationIndex: i, Operation: inv, SQL: stmts})
		}
		plan.Migrations = append(plan.Migrations, pm)
	}
	return plan, nil
}

// loadLedger creates the ledger if needed and returns its records keyed by
// canonical version.
func (e *Engine) loadLedger(ctx context.Context) (map[string]history.Record, error) {
	if err := e.store.EnsureLedger(ctx); err != nil {
		return nil, storeError("", "failed to create ledger", err)
	}
	records, err := e.store.Ledger(ctx)
	if err != nil {
		return nil, storeError("", "failed to read ledger", err)
	}
	return indexLedger(records)
}

// indexLedger keys records by canonical version and rejects ledgers that
// record one version twice.
func indexLedger(records []history.Record) (map[string]history.Record, error) {
	applied := make(map[string]history.Record, len(records))
	for _, r := range records {
		key := definition.CanonicalVersion(r.Version)
		if prev, ok := applied[key]; ok {
			return nil, &DuplicateVersionError{
				Version:  r.Version,
				IDs:      []string{prev.Version, r.Version},
				InLedger: true,
			}
		}
		applied[key] = r
	}
	return applied, nil
}
