package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
)

// timelineWatcher feeds timeline files dropped into a directory to a
// callback. Each distinct timeline (by fingerprint) is delivered once;
// files that do not decode yet are retried on their next write.
type timelineWatcher struct {
	dir  string
	fs   *fsnotify.Watcher
	seen map[string]bool
}

// newTimelineWatcher starts watching dir. Events that happen between this
// call and Run are queued, not lost.
func newTimelineWatcher(dir string) (*timelineWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: dir, Err: os.ErrInvalid}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &timelineWatcher{dir: dir, fs: fsw, seen: make(map[string]bool)}, nil
}

// Run delivers the timelines already in the directory, then new ones as
// they appear, until ctx is cancelled. The watcher is closed on return.
func (w *timelineWatcher) Run(ctx context.Context, fn func(path string, tl *temporal.Timeline)) error {
	defer w.fs.Close()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isTimelineFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for _, name := range names {
		w.offer(filepath.Join(w.dir, name), fn)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if isTimelineFile(event.Name) {
				w.offer(event.Name, fn)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

func (w *timelineWatcher) offer(path string, fn func(string, *temporal.Timeline)) {
	tl, err := temporal.LoadFile(path)
	if err != nil {
		slog.Debug("skipping timeline file", "path", path, "error", err)
		return
	}
	id, err := temporal.Fingerprint(tl)
	if err != nil {
		slog.Warn("skipping timeline file", "path", path, "error", err)
		return
	}
	if w.seen[id] {
		return
	}
	w.seen[id] = true
	fn(path, tl)
}

func isTimelineFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
