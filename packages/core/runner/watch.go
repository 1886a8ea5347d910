package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounceDelay is how long a file must stay quiet before a change
// is reported.
const WatchDebounceDelay = 300 * time.Millisecond

// Watch calls onChange after path is written or recreated, until ctx is
// done. onChange runs on the calling goroutine, so calls never overlap, and
// a burst of events inside delay produces one call. The parent directory is
// watched so editors that replace the file on save are still seen.
func Watch(ctx context.Context, path string, delay time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	quiet := time.NewTimer(delay)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			quiet.Reset(delay)

		case <-quiet.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher: %w", err)
		}
	}
}
