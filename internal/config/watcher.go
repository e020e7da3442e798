package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"persistkit/internal/resilience"
)

// Watcher watches a config file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
}

// NewWatcher creates a new file watcher
func NewWatcher(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes
// It blocks until the context is cancelled or an error occurs
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file
	// This handles cases where the file is replaced (e.g., by editors)
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.Printf("Watching %s for changes", w.path)

	var debounceTimer *time.Timer
	var lastEventTime time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Check if this event is for our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// Handle write or create events
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				now := time.Now()

				// Debounce rapid changes
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(w.debounce, func() {
					if time.Since(lastEventTime) >= w.debounce {
						log.Printf("File changed: %s", w.path)
						w.onChange()
					}
				})

				lastEventTime = now
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return ctx.Err()
		}
	}
}

// WatchRetryPolicy watches the config file and pushes the reloaded retry
// policy into the retryer until the context is cancelled. Invalid reloads
// are logged and skipped; the previous policy stays in effect.
func WatchRetryPolicy(ctx context.Context, path string, retryer *resilience.Retryer) error {
	w := NewWatcher(path, func() {
		cfg, _, err := LoadFromPath(path)
		if err != nil {
			log.Printf("Config reload failed: %v", err)
			return
		}
		if err := retryer.SetPolicy(cfg.EffectiveRetryPolicy()); err != nil {
			log.Printf("Rejected reloaded retry policy: %v", err)
			return
		}
		log.Printf("Applied retry policy from %s", path)
	})
	return w.Watch(ctx)
}
