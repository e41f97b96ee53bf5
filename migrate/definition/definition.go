// Package definition holds authored migrations and the rules for ordering them.
package definition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/svco/svmigrate/migrate/history"
	"github.com/svco/svmigrate/migrate/operation"
)

// Migration is a versioned, ordered list of operations. It is immutable once
// released.
type Migration struct {
	Version    string
	Name       string
	Operations []operation.Operation
	// Source is the file the migration was loaded from, if any.
	Source string
}

// ID returns "<version>_<name>".
func (m Migration) ID() string {
	if m.Name == "" {
		return m.Version
	}
	return m.Version + "_" + m.Name
}

// Checksum fingerprints the operations so that edits after release can be
// detected.
func (m Migration) Checksum() string {
	var b strings.Builder
	for _, op := range m.Operations {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return history.CalculateChecksum(b.String())
}

// Validate checks the version token and every operation.
func (m Migration) Validate() error {
	if _, err := ParseVersion(m.Version); err != nil {
		return err
	}
	if len(m.Operations) == 0 {
		return fmt.Errorf("migration %s has no operations", m.ID())
	}
	for i, op := range m.Operations {
		if err := operation.Validate(op); err != nil {
			return fmt.Errorf("migration %s, operation %d: %w", m.ID(), i, err)
		}
	}
	return nil
}

// ParseVersion parses a version token. Tokens are decimal digits, usually a
// UTC timestamp such as 20160516103220.
func ParseVersion(token string) (*version.Version, error) {
	if token == "" {
		return nil, fmt.Errorf("empty version token")
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("version token %q must contain only digits", token)
		}
	}
	v, err := version.NewVersion(token)
	if err != nil {
		return nil, fmt.Errorf("invalid version token %q: %w", token, err)
	}
	return v, nil
}

// CompareVersions orders two valid tokens numerically. It returns -1, 0 or 1.
// Invalid tokens sort after valid ones, then lexically.
func CompareVersions(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// CanonicalVersion returns the token without leading zeros, so that tokens
// naming the same version map to the same key.
func CanonicalVersion(token string) string {
	t := strings.TrimLeft(token, "0")
	if t == "" && token != "" {
		return "0"
	}
	return t
}

// Sort orders migrations by ascending version.
func Sort(migrations []Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return CompareVersions(migrations[i].Version, migrations[j].Version) < 0
	})
}

// Collision describes migrations sharing a version.
type Collision struct {
	// Version is the canonical form, without leading zeros.
	Version string
	IDs     []string
}

// FindCollisions returns versions that appear more than once. Tokens that
// differ only in leading zeros collide.
func FindCollisions(migrations []Migration) []Collision {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	Sort(sorted)

	var out []Collision
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && CompareVersions(sorted[i].Version, sorted[j].Version) == 0 {
			j++
		}
		if j-i > 1 {
			c := Collision{Version: CanonicalVersion(sorted[i].Version)}
			for _, m := range sorted[i:j] {
				c.IDs = append(c.IDs, m.ID())
			}
			out = append(out, c)
		}
		i = j
	}
	return out
}
