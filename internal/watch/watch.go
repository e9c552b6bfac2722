// Package watch reports files in a directory once writes to them settle.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors one directory for created or rewritten files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	ext       string
	quiet     time.Duration

	// path -> time of last write event
	pending   map[string]time.Time
	pendingMu sync.Mutex

	events chan string
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for files in dir ending in ext (any file when ext
// is empty). A file is reported once no write has been seen for quiet.
func New(dir, ext string, quiet time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		ext:       strings.ToLower(ext),
		quiet:     quiet,
		pending:   make(map[string]time.Time),
		events:    make(chan string, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of settled file paths.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching. Files already in the directory are not reported.
func (w *Watcher) Start() error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts down the watcher and closes both channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) matches(path string) bool {
	return w.ext == "" || strings.ToLower(filepath.Ext(path)) == w.ext
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// Only track writes and creates
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !w.matches(event.Name) {
				continue
			}

			// Skip directories
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.quiet / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				select {
				case w.events <- path:
				case <-w.done:
					return
				}
			}
		}
	}
}

// settled removes and returns the pending paths quiet since before now.
func (w *Watcher) settled(now time.Time) []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	var out []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.quiet {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	return out
}
