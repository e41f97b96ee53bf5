package migrate_test

import (
	"context"

	"github.com/svco/svmigrate/migrate"
	"github.com/svco/svmigrate/migrate/executor"
	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/sqlgen"
)

// countingStore counts units of work opened on a real store.
type countingStore struct {
	migrate.Store
	begun int
}

func (s *countingStore) Begin(ctx context.Context) (executor.Unit, error) {
	s.begun++
	return s.Store.Begin(ctx)
}

// fakeStore is an in-memory store with injectable failures.
type fakeStore struct {
	ledgerErr   error
	beginErr    error
	execErr     error
	panicOnExec bool

	applied   []history.Record
	executed  []string
	rollbacks int
}

func (s *fakeStore) Dialect() sqlgen.Dialect { return sqlgen.PostgreSQL }

func (s *fakeStore) EnsureLedger(context.Context) error { return nil }

func (s *fakeStore) Ledger(context.Context) ([]history.Record, error) {
	if s.ledgerErr != nil {
		return nil, s.ledgerErr
	}
	return append([]history.Record(nil), s.applied...), nil
}

func (s *fakeStore) Begin(context.Context) (executor.Unit, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeUnit{store: s}, nil
}

type fakeUnit struct {
	store    *fakeStore
	executed []string
	applied  []history.Record
	done     bool
}

func (u *fakeUnit) ExecDDL(_ context.Context, stmt string) error {
	if u.store.panicOnExec {
		panic("driver exploded")
	}
	if u.store.execErr != nil {
		return u.store.execErr
	}
	u.executed = append(u.executed, stmt)
	return nil
}

func (u *fakeUnit) RecordApplied(_ context.Context, r history.Record) error {
	u.applied = append(u.applied, r)
	return nil
}

func (u *fakeUnit) RecordReverted(context.Context, string) error { return nil }

func (u *fakeUnit) Commit() error {
	u.done = true
	u.store.executed = append(u.store.executed, u.executed...)
	u.store.applied = append(u.store.applied, u.applied...)
	return nil
}

func (u *fakeUnit) Rollback() error {
	if !u.done {
		u.done = true
		u.store.rollbacks++
	}
	return nil
}

func (u *fakeUnit) Atomic() bool { return true }
