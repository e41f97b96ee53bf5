package migrate

import (
	"context"
	"sort"
	"time"

	"github.com/svco/svmigrate/migrate/definition"
)

// State is the condition of one migration relative to the ledger.
type State string

const (
	// StateApplied means the migration is recorded and unchanged.
	StateApplied State = "applied"
	// StatePending means the migration is not recorded yet.
	StatePending State = "pending"
	// StateModified means the migration is recorded but its operations
	// changed after it was applied.
	StateModified State = "modified"
	// StateMissing means the ledger records a version with no definition.
	StateMissing State = "missing"
)

// MigrationStatus describes one migration.
type MigrationStatus struct {
	Version   string
	Name      string
	State     State
	AppliedAt time.Time
	// Checksum is the definition's checksum, empty when missing.
	Checksum string
	// RecordedChecksum is the checksum stored in the ledger, empty when
	// pending.
	RecordedChecksum string
}

// Applied reports whether the ledger records the migration.
func (s MigrationStatus) Applied() bool {
	return s.State != StatePending
}

// Status compares the definitions with the ledger. The result is ordered by
// version.
func (e *Engine) Status(ctx context.Context) ([]MigrationStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.prepare(""); err != nil {
		return nil, err
	}
	applied, err := e.loadLedger(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(e.migrations)+len(applied))
	for _, m := range e.migrations {
		s := MigrationStatus{Version: m.Version, Name: m.Name, State: StatePending, Checksum: m.Checksum()}
		key := definition.CanonicalVersion(m.Version)
		if r, ok := applied[key]; ok {
			s.State = StateApplied
			s.AppliedAt = r.AppliedAt
			s.RecordedChecksum = r.Checksum
			if r.Checksum != s.Checksum {
				s.State = StateModified
			}
			delete(applied, key)
		}
		out = append(out, s)
	}
	for _, r := range applied {
		out = append(out, MigrationStatus{
			Version:          r.Version,
			Name:             r.Name,
			State:            StateMissing,
			AppliedAt:        r.AppliedAt,
			RecordedChecksum: r.Checksum,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return definition.CompareVersions(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}
