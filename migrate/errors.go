package migrate

import (
	"fmt"
	"strings"

	"github.com/svco/svmigrate/migrate/executor"
	"github.com/svco/svmigrate/migrate/operation"
)

// LedgerStep is the OperationIndex reported when a migration's statements
// succeeded but recording it in the ledger or committing failed.
const LedgerStep = -1

// MigrationFailedError reports an operation that failed while a migration was
// being applied or rolled back. The ledger does not contain the migration's
// new state and later migrations were not processed.
type MigrationFailedError struct {
	Version        string
	Name           string
	Direction      Direction
	OperationIndex int
	Operation      operation.Operation
	// Partial is set when statements already executed could not be rolled
	// back because the store does not support transactional DDL.
	Partial bool
	Err     error
}

func (e *MigrationFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %s", label(e.Version, e.Name))
	if e.Direction == Down {
		b.WriteString(" rollback")
	}
	if e.OperationIndex == LedgerStep || e.Operation == nil {
		b.WriteString(" failed while updating the ledger")
	} else {
		fmt.Fprintf(&b, " failed at operation %d (%s)", e.OperationIndex, e.Operation)
	}
	if e.Partial {
		b.WriteString(" [partially applied]")
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *MigrationFailedError) Unwrap() error { return e.Err }

// IrreversibleMigrationError reports a rollback that was refused because an
// operation has no declared inverse. Nothing was executed.
type IrreversibleMigrationError struct {
	Version        string
	Name           string
	OperationIndex int
	Operation      operation.Operation
}

func (e *IrreversibleMigrationError) Error() string {
	return fmt.Sprintf("migration %s cannot be rolled back: operation %d (%s) is irreversible",
		label(e.Version, e.Name), e.OperationIndex, e.Operation)
}

func (e *IrreversibleMigrationError) Unwrap() error { return operation.ErrIrreversible }

// DuplicateVersionError reports two migrations, or two ledger records, that
// name the same version.
type DuplicateVersionError struct {
	Version string
	IDs     []string
	// InLedger is set when the collision was found among ledger records.
	InLedger bool
}

func (e *DuplicateVersionError) Error() string {
	where := "definitions"
	if e.InLedger {
		where = "ledger"
	}
	return fmt.Sprintf("duplicate migration version %s in %s: %s", e.Version, where, strings.Join(e.IDs, ", "))
}

// StoreUnavailableError reports lost or failed connectivity to the store.
// Runs are never retried after it.
type StoreUnavailableError struct {
	// Version is the migration being processed, empty if none was.
	Version string
	Err     error
}

func (e *StoreUnavailableError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("store unavailable: %v", e.Err)
	}
	return fmt.Sprintf("store unavailable during migration %s: %v", e.Version, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// MissingDefinitionError reports a ledger version with no matching definition.
type MissingDefinitionError struct {
	Version string
}

func (e *MissingDefinitionError) Error() string {
	return fmt.Sprintf("migration %s is recorded as applied but has no definition", e.Version)
}

// InvalidVersionError reports a malformed version token.
type InvalidVersionError struct {
	Token string
	Err   error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Token, e.Err)
}

func (e *InvalidVersionError) Unwrap() error { return e.Err }

// storeError reports err as a StoreUnavailableError when it stems from lost
// connectivity, and wraps it with msg otherwise.
func storeError(version, msg string, err error) error {
	if executor.IsUnavailable(err) {
		return &StoreUnavailableError{Version: version, Err: err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func label(version, name string) string {
	if name == "" {
		return version
	}
	return version + " (" + name + ")"
}
