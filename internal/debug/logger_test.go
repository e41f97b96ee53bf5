package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWithWriter(t *testing.T) {
	t.Cleanup(func() { Init(false) })

	var buf bytes.Buffer
	InitWithWriter(false, &buf)
	Debug("hidden", "version", "1")
	assert.False(t, Enabled())
	assert.Empty(t, buf.String())

	Warn("shown", "version", "2")
	assert.Contains(t, buf.String(), "version=2")

	buf.Reset()
	InitWithWriter(true, &buf)
	With("dialect", "sqlite").Debug("connected")
	assert.True(t, Enabled())
	assert.Contains(t, buf.String(), "dialect=sqlite")
	assert.Contains(t, buf.String(), "msg=connected")
}
