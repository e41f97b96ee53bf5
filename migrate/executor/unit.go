package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/svco/svmigrate/migrate/history"
)

// Unit is the scope of one migration. Every Unit must end with exactly one
// Commit or Rollback.
type Unit interface {
	// ExecDDL runs one statement.
	ExecDDL(ctx context.Context, stmt string) error
	// RecordApplied adds a ledger record.
	RecordApplied(ctx context.Context, r history.Record) error
	// RecordReverted removes the ledger record for version.
	RecordReverted(ctx context.Context, version string) error
	Commit() error
	Rollback() error
	// Atomic reports whether Rollback undoes executed statements.
	Atomic() bool
}

type txUnit struct {
	tx     *sqlx.Tx
	ledger *history.Manager
}

func (u *txUnit) ExecDDL(ctx context.Context, stmt string) error {
	_, err := u.tx.ExecContext(ctx, stmt)
	return classify(err)
}

func (u *txUnit) RecordApplied(ctx context.Context, r history.Record) error {
	return classify(u.ledger.Insert(ctx, u.tx, r))
}

func (u *txUnit) RecordReverted(ctx context.Context, version string) error {
	return classify(u.ledger.Remove(ctx, u.tx, version))
}

func (u *txUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit migration: %w", err))
	}
	return nil
}

func (u *txUnit) Rollback() error {
	err := u.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return classify(err)
}

func (u *txUnit) Atomic() bool { return true }

// directUnit executes on the pool without a transaction. Statements take
// effect immediately and Rollback cannot undo them.
type directUnit struct {
	db     *sqlx.DB
	ledger *history.Manager
}

func (u *directUnit) ExecDDL(ctx context.Context, stmt string) error {
	_, err := u.db.ExecContext(ctx, stmt)
	return classify(err)
}

func (u *directUnit) RecordApplied(ctx context.Context, r history.Record) error {
	return classify(u.ledger.Insert(ctx, u.db, r))
}

func (u *directUnit) RecordReverted(ctx context.Context, version string) error {
	return classify(u.ledger.Remove(ctx, u.db, version))
}

func (u *directUnit) Commit() error { return nil }

func (u *directUnit) Rollback() error { return nil }

func (u *directUnit) Atomic() bool { return false }
