package source

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// VersionLayout formats timestamp versions.
const VersionLayout = "20060102150405"

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

const dslTemplate = `# %s
#
# One statement per operation, for example:
#   add_column startups pre_funds string default: "0"
#   remove_column users phone string
`

const yamlTemplate = `# %s
operations: []
#  - op: add_column
#    table: startups
#    column: {name: pre_funds, type: string}
`

// Create writes an empty definition file named after the current UTC time
// and returns its path. ext is ExtDSL or ExtYAML.
func Create(fsys afero.Fs, dir, name, ext string, now time.Time) (string, error) {
	slug := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("invalid migration name %q", name)
	}

	var body string
	switch ext {
	case ExtDSL:
		body = fmt.Sprintf(dslTemplate, slug)
	case ExtYAML, ExtYML:
		body = fmt.Sprintf(yamlTemplate, slug)
	default:
		return "", fmt.Errorf("unsupported format %q", ext)
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	file := path.Join(dir, now.UTC().Format(VersionLayout)+"_"+slug+ext)
	if ok, _ := afero.Exists(fsys, file); ok {
		return "", fmt.Errorf("%s already exists", file)
	}
	if err := afero.WriteFile(fsys, file, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}
	return file, nil
}
