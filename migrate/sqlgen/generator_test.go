package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svco/svmigrate/migrate/operation"
)

func statements(t *testing.T, d Dialect, op operation.Operation) []string {
	t.Helper()
	g, err := NewGenerator(d)
	require.NoError(t, err)
	stmts, err := g.Statements(op)
	require.NoError(t, err)
	return stmts
}

func TestCreateTable(t *testing.T) {
	op := operation.CreateTable{
		Name: "batches",
		Columns: []operation.Column{
			{Name: "name", Type: operation.String},
			{Name: "start_date", Type: operation.Date},
		},
		Timestamps:       true,
		TimestampOptions: operation.Options{Null: operation.Bool(false)},
	}

	assert.Equal(t, []string{"CREATE TABLE \"batches\" (\n" +
		"  \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
		"  \"name\" VARCHAR(255),\n" +
		"  \"start_date\" DATE,\n" +
		"  \"created_at\" DATETIME NOT NULL,\n" +
		"  \"updated_at\" DATETIME NOT NULL\n" +
		")"}, statements(t, SQLite, op))

	pg := statements(t, PostgreSQL, op)
	require.Len(t, pg, 1)
	assert.Contains(t, pg[0], `"id" BIGSERIAL PRIMARY KEY`)
	assert.Contains(t, pg[0], `"created_at" TIMESTAMP NOT NULL`)

	my := statements(t, MySQL, op)
	require.Len(t, my, 1)
	assert.Contains(t, my[0], "CREATE TABLE `batches`")
	assert.Contains(t, my[0], "`id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY")
}

func TestCreateTableWithoutColumns(t *testing.T) {
	g, err := NewGenerator(SQLite)
	require.NoError(t, err)
	_, err = g.Statements(operation.CreateTable{Name: "empty", WithoutID: true})
	assert.Error(t, err)
}

func TestAddColumnDefaults(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		column  operation.Column
		want    string
	}{
		{
			name:    "string default is quoted",
			dialect: PostgreSQL,
			column:  operation.Column{Name: "status", Type: operation.String, Options: operation.Options{Default: operation.Str("it's")}},
			want:    `ALTER TABLE "startups" ADD COLUMN "status" VARCHAR(255) DEFAULT 'it''s'`,
		},
		{
			name:    "boolean on mysql",
			dialect: MySQL,
			column:  operation.Column{Name: "team_lead", Type: operation.Boolean, Options: operation.Options{Null: operation.Bool(false), Default: operation.Str("true")}},
			want:    "ALTER TABLE `startups` ADD COLUMN `team_lead` TINYINT(1) NOT NULL DEFAULT 1",
		},
		{
			name:    "integer default",
			dialect: SQLite,
			column:  operation.Column{Name: "score", Type: operation.Integer, Options: operation.Options{Default: operation.Str("0")}},
			want:    `ALTER TABLE "startups" ADD COLUMN "score" INTEGER DEFAULT 0`,
		},
		{
			name:    "string limit",
			dialect: SQLite,
			column:  operation.Column{Name: "code", Type: operation.String, Options: operation.Options{Limit: 16}},
			want:    `ALTER TABLE "startups" ADD COLUMN "code" VARCHAR(16)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statements(t, tt.dialect, operation.AddColumn{Table: "startups", Column: tt.column})
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestInvalidDefault(t *testing.T) {
	g, err := NewGenerator(PostgreSQL)
	require.NoError(t, err)

	_, err = g.Statements(operation.AddColumn{Table: "t", Column: operation.Column{
		Name: "n", Type: operation.Integer, Options: operation.Options{Default: operation.Str("ten")},
	}})
	assert.Error(t, err)

	_, err = g.Statements(operation.AddColumn{Table: "t", Column: operation.Column{
		Name: "b", Type: operation.Boolean, Options: operation.Options{Default: operation.Str("maybe")},
	}})
	assert.Error(t, err)
}

func TestIndexes(t *testing.T) {
	add := operation.AddIndex{Table: "resources", Columns: []string{"share_status", "shared_with_batch"}}
	assert.Equal(t,
		[]string{`CREATE INDEX "index_resources_on_share_status_and_shared_with_batch" ON "resources" ("share_status", "shared_with_batch")`},
		statements(t, PostgreSQL, add))

	unique := operation.AddIndex{Table: "users", Columns: []string{"email"}, Unique: true, Name: "users_email"}
	assert.Equal(t, []string{"CREATE UNIQUE INDEX `users_email` ON `users` (`email`)"}, statements(t, MySQL, unique))

	remove := operation.RemoveIndex{Table: "users", Name: "users_email"}
	assert.Equal(t, []string{"DROP INDEX `users_email` ON `users`"}, statements(t, MySQL, remove))
	assert.Equal(t, []string{`DROP INDEX "users_email"`}, statements(t, SQLite, remove))
}

func TestReferences(t *testing.T) {
	add := operation.AddReference{Table: "batch_applicants", Target: "college", Index: true}
	assert.Equal(t, []string{
		`ALTER TABLE "batch_applicants" ADD COLUMN "college_id" BIGINT`,
		`CREATE INDEX "index_batch_applicants_on_college_id" ON "batch_applicants" ("college_id")`,
	}, statements(t, PostgreSQL, add))

	remove := operation.RemoveReference{Table: "batch_applicants", Target: "college", Index: true}
	assert.Equal(t, []string{
		`DROP INDEX "index_batch_applicants_on_college_id"`,
		`ALTER TABLE "batch_applicants" DROP COLUMN "college_id"`,
	}, statements(t, SQLite, remove))
}

func TestRenameAndDrop(t *testing.T) {
	assert.Equal(t,
		[]string{`ALTER TABLE "timeline_events" RENAME COLUMN "next_event_id" TO "improved_timeline_event_id"`},
		statements(t, SQLite, operation.RenameColumn{Table: "timeline_events", From: "next_event_id", To: "improved_timeline_event_id"}))
	assert.Equal(t,
		[]string{"ALTER TABLE `users` DROP COLUMN `phone`"},
		statements(t, MySQL, operation.RemoveColumn{Table: "users", Name: "phone"}))
	assert.Equal(t, []string{`DROP TABLE "legacy"`}, statements(t, PostgreSQL, operation.DropTable{Name: "legacy"}))
}

func TestParseDialect(t *testing.T) {
	for provider, want := range map[string]Dialect{
		"postgresql": PostgreSQL,
		"Postgres":   PostgreSQL,
		"mysql":      MySQL,
		"sqlite3":    SQLite,
	} {
		got, err := ParseDialect(provider)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestDialectProperties(t *testing.T) {
	assert.Equal(t, "sqlite3", SQLite.DriverName())
	assert.Equal(t, "postgres", PostgreSQL.DriverName())
	assert.True(t, PostgreSQL.TransactionalDDL())
	assert.True(t, SQLite.TransactionalDDL())
	assert.False(t, MySQL.TransactionalDDL())

	assert.Equal(t, PostgreSQL, DetectDialect("postgres://localhost/app"))
	assert.Equal(t, MySQL, DetectDialect("root:pw@tcp(localhost:3306)/app"))
	assert.Equal(t, SQLite, DetectDialect("file:dev.db"))
}
