// Completion: 100% - kqueue watcher complete
//go:build darwin

package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Watcher reports modified listing files
type Watcher struct {
	debouncer
	kq      int
	pathsMu sync.Mutex
	paths   map[int]string
	log     *logrus.Entry
}

// New creates a watcher that calls onChange once a watched file has been quiet for the given duration
func New(log *logrus.Entry, quiet time.Duration, onChange func(string)) (*Watcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, errors.Wrap(err, "kqueue")
	}
	return &Watcher{
		debouncer: newDebouncer(quiet, onChange),
		kq:        kq,
		paths:     make(map[int]string),
		log:       log,
	}, nil
}

// Add starts watching path
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fd, err := unix.Open(abs, unix.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", abs)
	}
	event := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err := unix.Kevent(w.kq, []unix.Kevent_t{event}, nil, nil); err != nil {
		unix.Close(fd)
		return errors.Wrapf(err, "kevent %s", abs)
	}
	w.pathsMu.Lock()
	w.paths[fd] = abs
	w.pathsMu.Unlock()
	return nil
}

// Watch delivers change notifications until ctx is cancelled
func (w *Watcher) Watch(ctx context.Context) error {
	events := make([]unix.Kevent_t, 16)
	timeout := unix.NsecToTimespec(int64(100 * time.Millisecond))

	for ctx.Err() == nil {
		n, err := unix.Kevent(w.kq, nil, events, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			w.log.WithError(err).Warn("reading kevent")
			continue
		}
		for _, event := range events[:n] {
			w.pathsMu.Lock()
			path := w.paths[int(event.Ident)]
			w.pathsMu.Unlock()
			if path != "" {
				w.log.WithField("file", path).Debug("changed")
				w.fire(path)
			}
		}
	}
	w.stopTimers()
	return nil
}

// Close releases the watched descriptors and the queue
func (w *Watcher) Close() error {
	w.pathsMu.Lock()
	defer w.pathsMu.Unlock()
	for fd := range w.paths {
		unix.Close(fd)
	}
	return unix.Close(w.kq)
}
