package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svco/svmigrate/migrate/operation"
)

func mig(version, name string) Migration {
	return Migration{
		Version: version,
		Name:    name,
		Operations: []operation.Operation{
			operation.CreateTable{Name: name},
		},
	}
}

func TestSortIsNumeric(t *testing.T) {
	migrations := []Migration{
		mig("20160516103220", "c"),
		mig("9", "a"),
		mig("20140324100852", "b"),
	}
	Sort(migrations)

	var got []string
	for _, m := range migrations {
		got = append(got, m.Version)
	}
	assert.Equal(t, []string{"9", "20140324100852", "20160516103220"}, got)
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("1", "2"))
	assert.Equal(t, 1, CompareVersions("10", "9"))
	assert.Equal(t, 0, CompareVersions("001", "1"))
	assert.Equal(t, -1, CompareVersions("5", "abc"))
}

func TestCanonicalVersion(t *testing.T) {
	assert.Equal(t, "1", CanonicalVersion("001"))
	assert.Equal(t, "0", CanonicalVersion("000"))
	assert.Equal(t, "20140324100852", CanonicalVersion("20140324100852"))
	assert.Equal(t, "", CanonicalVersion(""))
}

func TestParseVersion(t *testing.T) {
	_, err := ParseVersion("20140324100852")
	require.NoError(t, err)

	for _, bad := range []string{"", "v1", "1.2", "2014-03-24", "123456789012345678901234567890"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestFindCollisions(t *testing.T) {
	collisions := FindCollisions([]Migration{
		mig("2", "b"),
		mig("1", "a"),
		mig("02", "c"),
		mig("3", "d"),
	})
	require.Len(t, collisions, 1)
	assert.Equal(t, "2", collisions[0].Version)
	assert.ElementsMatch(t, []string{"2_b", "02_c"}, collisions[0].IDs)

	assert.Empty(t, FindCollisions([]Migration{mig("1", "a"), mig("2", "b")}))

	for _, order := range [][]Migration{
		{mig("01", "a"), mig("1", "b")},
		{mig("1", "b"), mig("01", "a")},
		{mig("001", "c"), mig("01", "a")},
	} {
		collisions := FindCollisions(order)
		require.Len(t, collisions, 1)
		assert.Equal(t, "1", collisions[0].Version)
	}
}

func TestChecksumTracksOperations(t *testing.T) {
	a := mig("1", "startups")
	b := mig("1", "startups")
	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.Len(t, a.Checksum(), 64)

	b.Operations = append(b.Operations, operation.AddColumn{
		Table:  "startups",
		Column: operation.Column{Name: "pre_funds", Type: operation.String},
	})
	assert.NotEqual(t, a.Checksum(), b.Checksum())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, mig("20140324100852", "startups").Validate())
	assert.Error(t, mig("abc", "startups").Validate())
	assert.Error(t, Migration{Version: "1", Name: "empty"}.Validate())

	bad := mig("1", "startups")
	bad.Operations = append(bad.Operations, operation.AddIndex{Table: "startups"})
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation 1")
}

func TestID(t *testing.T) {
	assert.Equal(t, "1_create_batches", mig("1", "create_batches").ID())
	assert.Equal(t, "7", Migration{Version: "7"}.ID())
}
