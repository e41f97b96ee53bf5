// Package db embeds the sample application's migrations.
package db

import (
	"embed"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/source"
)

//go:embed migrate
var files embed.FS

// Fs returns the embedded migrations directory as a read-only filesystem.
func Fs() afero.Fs {
	sub, err := fs.Sub(files, "migrate")
	if err != nil {
		panic(err)
	}
	return afero.NewReadOnlyFs(afero.FromIOFS{FS: sub})
}

// Source returns a loader for the embedded migrations.
func Source() source.Dir {
	return source.NewDir(Fs(), ".")
}

// Migrations loads the embedded migrations.
func Migrations() ([]definition.Migration, error) {
	return Source().Load()
}
