// Package source loads migration definitions.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/svco/svmigrate/internal/debug"
	"github.com/svco/svmigrate/migrate/definition"
	"github.com/svco/svmigrate/migrate/dsl"
)

// Source yields migration definitions.
type Source interface {
	Load() ([]definition.Migration, error)
}

// Load merges the definitions of every source. Errors from all sources are
// reported together.
func Load(sources ...Source) ([]definition.Migration, error) {
	var (
		all  []definition.Migration
		errs error
	)
	for _, s := range sources {
		migrations, err := s.Load()
		errs = multierr.Append(errs, err)
		all = append(all, migrations...)
	}
	if errs != nil {
		return nil, errs
	}
	definition.Sort(all)
	return all, nil
}

// Memory is a source of migrations declared in Go.
type Memory []definition.Migration

// Load validates and returns the migrations.
func (m Memory) Load() ([]definition.Migration, error) {
	var errs error
	for _, mig := range m {
		errs = multierr.Append(errs, mig.Validate())
	}
	if errs != nil {
		return nil, errs
	}
	out := make([]definition.Migration, len(m))
	copy(out, m)
	return out, nil
}

// Extensions of definition files.
const (
	ExtDSL  = ".mig"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

var fileName = regexp.MustCompile(`^([0-9]+)_([A-Za-z0-9_]+)$`)

// Dir loads definition files named <version>_<name>.mig, .yaml or .yml
// from a directory. Other files are ignored.
type Dir struct {
	Fs   afero.Fs
	Path string
}

// NewDir returns a Dir rooted at dir on fsys. A nil fsys means the OS
// filesystem.
func NewDir(fsys afero.Fs, dir string) Dir {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return Dir{Fs: fsys, Path: dir}
}

// Load reads every definition file in the directory.
func (d Dir) Load() ([]definition.Migration, error) {
	fsys := d.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	entries, err := afero.ReadDir(fsys, d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		migrations []definition.Migration
		errs       error
	)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := path.Ext(entry.Name())
		if ext != ExtDSL && ext != ExtYAML && ext != ExtYML {
			debug.Debug("Skipping file", "file", entry.Name())
			continue
		}

		file := path.Join(d.Path, entry.Name())
		m, err := loadFile(fsys, file, ext)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		migrations = append(migrations, m)
	}
	if errs != nil {
		return nil, errs
	}
	definition.Sort(migrations)
	return migrations, nil
}

// ParseFileName splits "<version>_<name>.<ext>" into its parts.
func ParseFileName(name string) (version, migration string, err error) {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	parts := fileName.FindStringSubmatch(base)
	if parts == nil {
		return "", "", fmt.Errorf("%s: file name must look like <version>_<name>%s", name, path.Ext(name))
	}
	return parts[1], parts[2], nil
}

func loadFile(fsys afero.Fs, file, ext string) (definition.Migration, error) {
	version, name, err := ParseFileName(file)
	if err != nil {
		return definition.Migration{}, err
	}

	f, err := fsys.Open(file)
	if err != nil {
		return definition.Migration{}, fmt.Errorf("%s: %w", file, err)
	}
	defer f.Close()

	m := definition.Migration{Version: version, Name: name, Source: file}
	switch ext {
	case ExtDSL:
		m.Operations, err = dsl.Parse(file, f)
	default:
		m.Operations, err = parseYAML(file, f)
	}
	if err != nil {
		return m, err
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

// IsNotExist reports whether err means the directory is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
