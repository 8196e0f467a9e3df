package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
connector "default" "a" {
  kind = "fake"
}
`), 0600))

	reg := New()
	require.NoError(t, reg.LoadDir(context.Background(), dir))

	watcher, err := NewWatcher(reg, dir)
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()

	// Drain the initial listing so the dirty protocol reports the
	// reload below.
	_, ok := reg.ListConnectors("fake")
	require.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`
connector "default" "a" {
  kind = "fake"
}

connector "default" "b" {
  kind = "fake"
}
`), 0600))

	require.Eventually(t, func() bool {
		specs, ok := reg.ListConnectors("fake")
		return ok && len(specs) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
