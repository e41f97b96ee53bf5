package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := Out, Err
	Out, Err = out, errOut
	t.Cleanup(func() { Out, Err = prevOut, prevErr })
	return out, errOut
}

func TestMessages(t *testing.T) {
	out, errOut := capture(t)

	PrintSuccess("applied %d migrations", 3)
	PrintWarning("nothing to do")
	PrintInfo("dry run")
	PrintStep(1, 2, "20140324100852_create_startups")
	PrintError("boom")

	assert.Contains(t, out.String(), "applied 3 migrations")
	assert.Contains(t, out.String(), "nothing to do")
	assert.Contains(t, out.String(), "[1/2] 20140324100852_create_startups")
	assert.NotContains(t, out.String(), "boom")
	assert.Contains(t, errOut.String(), "boom")
}

func TestPrintTable(t *testing.T) {
	out, _ := capture(t)

	require.NoError(t, PrintTable(
		[]string{"Version", "Name", "State"},
		[][]string{{"20140324100852", "create_startups", "applied"}},
	))
	assert.Contains(t, out.String(), "Version")
	assert.Contains(t, out.String(), "create_startups")
}

func TestPrintMarkdown(t *testing.T) {
	out, _ := capture(t)

	require.NoError(t, PrintMarkdown("# Plan\n\n```sql\nCREATE TABLE startups\n```\n"))
	assert.Contains(t, out.String(), "startups")
}

func TestState(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	assert.Equal(t, "applied", State("applied"))
	assert.Equal(t, "unknown", State("unknown"))
}
