// Package version reports build information for svmigrate.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/svco/svmigrate/internal/version.Version=...".
// Empty values fall back to the module build info embedded by the go tool.
var (
	Version   = ""
	BuildDate = ""
	GitCommit = ""
)

const unknown = "unknown"

// Info describes the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	Modified  bool
	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

func resolve(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if info.Version == "" {
		info.Version = "devel"
	}
	if info.GitCommit == "" {
		info.GitCommit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

func (i Info) commit() string {
	c := i.GitCommit
	if len(c) > 12 {
		c = c[:12]
	}
	if i.Modified {
		c += "-dirty"
	}
	return c
}

func (i Info) String() string {
	return fmt.Sprintf("svmigrate %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString is the multi-line form printed by the version command.
func (i Info) FullString() string {
	return fmt.Sprintf("svmigrate %s\ncommit:   %s\nbuilt:    %s\nplatform: %s\ngo:       %s",
		i.Version, i.commit(), i.BuildDate, i.Platform, i.GoVersion)
}
