// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 250 * time.Millisecond

// Suffixes of companion files that signal a change to the store itself.
var companionSuffixes = []string{"-wal", "-journal", "-shm"}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher turns writes to a settings file into debounced change
// notifications. It watches the parent directory so atomic replacements
// (write temp + rename) are seen.
type Watcher struct {
	path     string
	base     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan struct{}

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts watching path. Events() receives one value per burst of
// changes, at most one buffered.
func New(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     absPath,
		base:     filepath.Base(absPath),
		watcher:  fw,
		debounce: debounce,
		events:   make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	log.Printf("WATCH_START | path=%s debounce=%s", absPath, debounce)
	return w, nil
}

// Events delivers change notifications. Closed by Close.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops watching and closes Events.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
		close(w.events)
		log.Printf("WATCH_STOP | path=%s", w.path)
	})
	return err
}

// matches reports whether name is the watched file or one of its companions.
func (w *Watcher) matches(name string) bool {
	base := filepath.Base(name)
	if base == w.base {
		return true
	}
	for _, suffix := range companionSuffixes {
		if base == w.base+suffix {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WATCH_PANIC | path=%s panic=%v", w.path, r)
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("WATCH_ERROR | path=%s error=%v", w.path, err)
		}
	}
}

// processPending fires once the file has been quiet for the debounce period.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if ready {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if !ready {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
				// A notification is already queued; it covers this change.
			}
		}
	}
}

