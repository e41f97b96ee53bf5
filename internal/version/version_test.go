package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkerValuesWin(t *testing.T) {
	prev := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = prev })

	info := resolve(&debug.BuildInfo{Main: debug.Module{Version: "v9.9.9"}})
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, info.String(), "svmigrate 1.2.3")
	assert.Contains(t, info.FullString(), "commit:   unknown")
}

func TestBuildInfoFallback(t *testing.T) {
	info := resolve(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	assert.Equal(t, "v0.4.0", info.Version)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildDate)
	assert.Contains(t, info.FullString(), "commit:   0123456789ab-dirty")
}

func TestDevelBuild(t *testing.T) {
	info := resolve(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "devel", info.Version)
	assert.Equal(t, "unknown", info.BuildDate)

	assert.Equal(t, "devel", resolve(nil).Version)
}
