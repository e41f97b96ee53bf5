package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svco/svmigrate/migrate/operation"
)

func TestParseCreateTable(t *testing.T) {
	ops, err := ParseString("batches.mig", `
# Batches group startups.
create_table batches {
  string name null: false
  text description default: "none"
  date start_date
  timestamps null: false
}
`)
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.Equal(t, operation.CreateTable{
		Name: "batches",
		Columns: []operation.Column{
			{Name: "name", Type: operation.String, Options: operation.Options{Null: operation.Bool(false)}},
			{Name: "description", Type: operation.Text, Options: operation.Options{Default: operation.Str("none")}},
			{Name: "start_date", Type: operation.Date},
		},
		Timestamps:       true,
		TimestampOptions: operation.Options{Null: operation.Bool(false)},
	}, ops[0])
}

func TestParseEveryStatement(t *testing.T) {
	ops, err := ParseString("all.mig", `
create_table joins id: false { integer left_id integer right_id }
drop_table legacy
drop_table archived { string name }
add_column startups pre_funds string limit: 100 default: 0
remove_column users name
remove_column users phone string null: true
rename_column timeline_events next_event_id improved_timeline_event_id
add_index resources [share_status, shared_with_batch] unique: true
add_index users email name: "users_email"
remove_index resources [share_status, shared_with_batch]
remove_index users name: "users_email"
add_reference batch_applicants college index: true null: false
remove_reference batch_applicants batch_application
`)
	require.NoError(t, err)

	assert.Equal(t, []operation.Operation{
		operation.CreateTable{Name: "joins", WithoutID: true, Columns: []operation.Column{
			{Name: "left_id", Type: operation.Integer},
			{Name: "right_id", Type: operation.Integer},
		}},
		operation.DropTable{Name: "legacy"},
		operation.DropTable{Name: "archived", Definition: &operation.CreateTable{
			Name:    "archived",
			Columns: []operation.Column{{Name: "name", Type: operation.String}},
		}},
		operation.AddColumn{Table: "startups", Column: operation.Column{
			Name: "pre_funds", Type: operation.String,
			Options: operation.Options{Limit: 100, Default: operation.Str("0")},
		}},
		operation.RemoveColumn{Table: "users", Name: "name"},
		operation.RemoveColumn{Table: "users", Name: "phone", Type: operation.TypePtr(operation.String),
			Options: operation.Options{Null: operation.Bool(true)}},
		operation.RenameColumn{Table: "timeline_events", From: "next_event_id", To: "improved_timeline_event_id"},
		operation.AddIndex{Table: "resources", Columns: []string{"share_status", "shared_with_batch"}, Unique: true},
		operation.AddIndex{Table: "users", Columns: []string{"email"}, Name: "users_email"},
		operation.RemoveIndex{Table: "resources", Columns: []string{"share_status", "shared_with_batch"}},
		operation.RemoveIndex{Table: "users", Name: "users_email"},
		operation.AddReference{Table: "batch_applicants", Target: "college", Index: true,
			Options: operation.Options{Null: operation.Bool(false)}},
		operation.RemoveReference{Table: "batch_applicants", Target: "batch_application"},
	}, ops)

	assert.False(t, ops[1].Reversible())
	assert.True(t, ops[2].Reversible())
	assert.False(t, ops[4].Reversible())
	assert.True(t, ops[5].Reversible())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown statement", "change_column users name text", ""},
		{"unknown type", "add_column users age number", "unknown column type"},
		{"unknown option", "add_column users age integer size: 3", `unknown option "size"`},
		{"repeated option", "add_column users age integer null: true null: false", "given twice"},
		{"bad bool", `add_index users email unique: "yes"`, "expected true or false"},
		{"bad limit", "add_column users code string limit: 0", "limit must be positive"},
		{"double timestamps", "create_table t { timestamps timestamps }", "timestamps declared twice"},
		{"remove_index without target", "remove_index users", "columns or name"},
		{"unterminated body", "create_table t { string name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString("bad.mig", tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.mig:")
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	ops, err := ParseString("empty.mig", "# nothing yet\n")
	require.NoError(t, err)
	assert.Empty(t, ops)
}
