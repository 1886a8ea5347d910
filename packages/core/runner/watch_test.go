package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietFor drains changes until none arrives for d.
func quietFor(changes <-chan struct{}, d time.Duration) {
	for {
		select {
		case <-changes:
		case <-time.After(d):
			return
		}
	}
}

func TestWatch(t *testing.T) {
	const delay = WatchDebounceDelay

	dir := t.TempDir()
	path := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, delay, func() { changes <- struct{}{} })
	}()

	// Keep writing until the watcher reports something, which proves it is
	// registered, then let it settle.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("[]"), 0600)
		select {
		case <-changes:
			return true
		case <-time.After(2 * delay):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)
	quietFor(changes, 3*delay)

	t.Run("unrelated files are ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("x"), 0600))
		select {
		case <-changes:
			t.Fatal("change reported for another file")
		case <-time.After(3 * delay):
		}
	})

	t.Run("a burst is reported once", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, os.WriteFile(path, []byte("[{}]"), 0600))
		}
		select {
		case <-changes:
		case <-time.After(5 * time.Second):
			t.Fatal("no change reported")
		}
		select {
		case <-changes:
			t.Fatal("burst reported more than once")
		case <-time.After(3 * delay):
		}
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "chain.json"), time.Millisecond, func() {})
	assert.ErrorContains(t, err, "failed to watch")
}
