package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/SmartX-Team/OpenARK-sub002/internal/ctxlog"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the resource directory into the registry whenever a
// file under it changes.
type Watcher struct {
	registry *Registry
	dir      string
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching dir. Call Run to process events and
// Close to release the watch.
func NewWatcher(r *Registry, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("registry: watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("registry: watch %s: %w", dir, err)
	}
	return &Watcher{registry: r, dir: dir, fsw: fsw}, nil
}

// Run processes filesystem events until the context ends. Reload
// failures are logged and the previous resources stay in effect.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("dir", w.dir)
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("resource watch error", "error", err)
		case <-debounce.C:
			if err := w.registry.LoadDir(ctx, w.dir); err != nil {
				logger.Warn("resource reload failed", "error", err)
				continue
			}
			logger.Info("resources reloaded")
		}
	}
}

// Close releases the filesystem watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
