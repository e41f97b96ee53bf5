package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRunsOnChange(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w, err := NewWatcher(dir, []string{".mig"}, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_create.mig"), []byte("x"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherInitialFailure(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, func() error { return errors.New("boom") })
	require.NoError(t, err)
	err = w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	require.NoError(t, w.watcher.Close())
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), nil, func() error { return nil })
	assert.Error(t, err)
}

func TestStopTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
