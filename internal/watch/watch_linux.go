// Completion: 100% - inotify watcher complete
//go:build linux

package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Watcher reports modified listing files
type Watcher struct {
	debouncer
	fd      int
	pathsMu sync.Mutex
	paths   map[int]string
	log     *logrus.Entry
}

// New creates a watcher that calls onChange once a watched file has been quiet for the given duration
func New(log *logrus.Entry, quiet time.Duration, onChange func(string)) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "inotify_init")
	}
	return &Watcher{
		debouncer: newDebouncer(quiet, onChange),
		fd:        fd,
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
	wd, err := unix.InotifyAddWatch(w.fd, abs, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return errors.Wrapf(err, "watch %s", abs)
	}
	w.pathsMu.Lock()
	w.paths[wd] = abs
	w.pathsMu.Unlock()
	return nil
}

// Watch delivers change notifications until ctx is cancelled
func (w *Watcher) Watch(ctx context.Context) error {
	buf := make([]byte, unix.SizeofInotifyEvent*64+unix.PathMax)
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}

	for ctx.Err() == nil {
		n, err := unix.Poll(fds, 100)
		if err != nil && err != unix.EINTR {
			return errors.Wrap(err, "poll inotify")
		}
		if n <= 0 {
			continue
		}
		n, err = unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			w.log.WithError(err).Warn("reading inotify events")
			continue
		}

		for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)
			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) == 0 {
				continue
			}
			w.pathsMu.Lock()
			path := w.paths[int(event.Wd)]
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

// Close releases the inotify descriptor
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}
