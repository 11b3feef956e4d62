// Completion: 100% - Debounced change notification complete
package watch

import (
	"sync"
	"time"
)

// DefaultQuiet is how long a file has to stay unchanged before the callback runs
const DefaultQuiet = 300 * time.Millisecond

// debouncer collapses a burst of change events on one path into a single call
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	quiet    time.Duration
	onChange func(string)
}

func newDebouncer(quiet time.Duration, onChange func(string)) debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return debouncer{timers: make(map[string]*time.Timer), quiet: quiet, onChange: onChange}
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[path]; exists {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.onChange(path)
	})
}

// stopTimers cancels every pending callback
func (d *debouncer) stopTimers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
