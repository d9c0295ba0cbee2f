package importer

import (
	"errors"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is a recipe document that was written or removed.
type Change struct {
	Path    string
	Removed bool
}

// Watcher monitors a directory for recipe document changes. Bursts of
// events on one file are collapsed into a single Change once the file has
// been quiet for the debounce interval.
type Watcher struct {
	Dir     string
	Changes <-chan Change // Read-only external channel

	changes  chan Change
	stop     chan struct{}
	done     chan struct{}
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// minTick bounds how often pending changes are checked.
const minTick = time.Millisecond

// NewWatcher creates a watcher for dir. A non-positive debounce uses 100ms.
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	ch := make(chan Change, 16)
	return &Watcher{
		Dir:      dir,
		Changes:  ch,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		debounce: debounce,
		watcher:  fw,
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Changes not yet
// received are dropped.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.debounce/2, minTick))
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					if !w.emitChange(file) {
						return
					}
				}
				return
			}
			if _, ok := FormatOf(event.Name); !ok {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) < w.debounce {
					continue
				}
				if !w.emitChange(file) {
					return
				}
				delete(pending, file)
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// emitChange delivers a change for file. It reports false once Stop has
// been called.
func (w *Watcher) emitChange(file string) bool {
	_, err := os.Stat(file)
	select {
	case w.changes <- Change{Path: file, Removed: errors.Is(err, os.ErrNotExist)}:
		return true
	case <-w.stop:
		return false
	}
}
