// Completion: 100% - Polling watcher complete
//go:build !linux && !darwin

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// pollInterval is how often modification times are compared
const pollInterval = 250 * time.Millisecond

// Watcher reports modified listing files by polling their modification times
type Watcher struct {
	debouncer
	pathsMu sync.Mutex
	paths   map[string]time.Time
	log     *logrus.Entry
}

// New creates a watcher that calls onChange once a watched file has been quiet for the given duration
func New(log *logrus.Entry, quiet time.Duration, onChange func(string)) (*Watcher, error) {
	return &Watcher{
		debouncer: newDebouncer(quiet, onChange),
		paths:     make(map[string]time.Time),
		log:       log,
	}, nil
}

// Add starts watching path
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	w.pathsMu.Lock()
	w.paths[abs] = info.ModTime()
	w.pathsMu.Unlock()
	return nil
}

// Watch delivers change notifications until ctx is cancelled
func (w *Watcher) Watch(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.check()
		case <-ctx.Done():
			w.stopTimers()
			return nil
		}
	}
}

func (w *Watcher) check() {
	w.pathsMu.Lock()
	defer w.pathsMu.Unlock()
	for path, last := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(last) {
			w.paths[path] = info.ModTime()
			w.log.WithField("file", path).Debug("changed")
			w.fire(path)
		}
	}
}

// Close stops nothing; polling ends with the context
func (w *Watcher) Close() error {
	return nil
}
