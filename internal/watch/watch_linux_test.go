//go:build linux

package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func discard() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func TestWatcherReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.ra")
	assert.NilError(t, os.WriteFile(path, []byte("method m\nend\n"), 0o644))

	changed := make(chan string, 4)
	w, err := New(discard(), 20*time.Millisecond, func(p string) { changed <- p })
	if err != nil {
		t.Skipf("inotify unavailable: %v", err)
	}
	defer w.Close()
	assert.NilError(t, w.Add(path))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// a burst of writes is reported once
	for i := 0; i < 3; i++ {
		assert.NilError(t, os.WriteFile(path, []byte("method m\n  gpr a\nend\n"), 0o644))
	}
	select {
	case p := <-changed:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, p, abs)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.NilError(t, <-done)
}

func TestAddMissingFile(t *testing.T) {
	w, err := New(discard(), 0, func(string) {})
	if err != nil {
		t.Skipf("inotify unavailable: %v", err)
	}
	defer w.Close()
	assert.ErrorContains(t, w.Add(filepath.Join(t.TempDir(), "missing.ra")), "watch")
}
