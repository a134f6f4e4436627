package host

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hexowl/internal/logging"
)

// ProgramWatcher reloads a host's program when the file changes on disk.
// Rapid saves are coalesced.
type ProgramWatcher struct {
	host     *Host
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(error)

	mu      sync.Mutex
	pending time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewProgramWatcher watches path. onReload runs after every reload attempt
// with its result.
func NewProgramWatcher(h *Host, path string, onReload func(error)) (*ProgramWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ProgramWatcher{
		host:     h,
		path:     abs,
		watcher:  w,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// editors that replace the file on save are handled.
func (pw *ProgramWatcher) Start(ctx context.Context) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.running {
		return nil
	}
	if err := pw.watcher.Add(filepath.Dir(pw.path)); err != nil {
		return err
	}
	pw.running = true
	logging.Host("watching program %s", pw.path)
	go pw.run(ctx)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (pw *ProgramWatcher) Stop() {
	pw.mu.Lock()
	running := pw.running
	pw.running = false
	pw.mu.Unlock()
	if running {
		close(pw.stopCh)
		<-pw.doneCh
	}
	if err := pw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryHost).Error("program watcher close: %v", err)
	}
}

func (pw *ProgramWatcher) run(ctx context.Context) {
	defer close(pw.doneCh)
	ticker := time.NewTicker(pw.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pw.stopCh:
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logging.HostDebug("program event %s on %s", event.Op, event.Name)
			pw.mu.Lock()
			pw.pending = time.Now()
			pw.mu.Unlock()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryHost).Error("program watcher: %v", err)
		case <-ticker.C:
			pw.mu.Lock()
			due := !pw.pending.IsZero() && time.Since(pw.pending) >= pw.debounce
			if due {
				pw.pending = time.Time{}
			}
			pw.mu.Unlock()
			if due {
				pw.reload()
			}
		}
	}
}

func (pw *ProgramWatcher) reload() {
	err := pw.host.LoadProgramFile(pw.path)
	if err != nil {
		logging.Get(logging.CategoryHost).Warn("reload of %s failed, keeping previous program: %v", pw.path, err)
	} else {
		logging.Host("reloaded %s", pw.path)
	}
	if pw.onReload != nil {
		pw.onReload(err)
	}
}
