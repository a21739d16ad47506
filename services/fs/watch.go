package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/rtlog"
)

// watcher wraps an fsnotify.Watcher the way the teacher's am/watcher.go
// wraps config-file watching: events are coalesced per path and emitted
// once the debounce interval passes. There is no own-write guard; writes
// the service itself performs are reported like any other change.
type watcher struct {
	id      uint64
	path    string
	fsw     *fsnotify.Watcher
	emit    func(events []string, relPath string)
	debounce time.Duration
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]string // relPath -> event kind, coalesced until debounce fires
	done    chan struct{}
}

// Watch implements fs.watch: creates a filesystem watcher keyed by id,
// emitting {events:[rename|change], path: relative} with seq="-1"
// through emit (spec.md §4.2.1).
func (s *Service) Watch(id uint64, path string, emit func(events []string, relPath string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return rterr.Internal("fsnotify: %v", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return mapErrno(err)
	}

	w := &watcher{
		id:       id,
		path:     path,
		fsw:      fsw,
		emit:     emit,
		debounce: 100 * time.Millisecond,
		pending:  make(map[string]string),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.watchers[id] = w
	s.mu.Unlock()

	go w.loop()
	return nil
}

// StopWatch implements fs.stopWatch.
func (s *Service) StopWatch(id uint64) error {
	s.mu.Lock()
	w, ok := s.watchers[id]
	if ok {
		delete(s.watchers, id)
	}
	s.mu.Unlock()
	if !ok {
		return rterr.NotFound("no watcher %d", id)
	}
	close(w.done)
	return w.fsw.Close()
}

func (w *watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			kind := "change"
			if ev.Op&fsnotify.Rename == fsnotify.Rename || ev.Op&fsnotify.Create == fsnotify.Create || ev.Op&fsnotify.Remove == fsnotify.Remove {
				kind = "rename"
			}
			rel, err := filepath.Rel(w.path, ev.Name)
			if err != nil {
				rel = ev.Name
			}
			w.scheduleEmit(rel, kind)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			rtlog.Logger.Warnw("fs watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *watcher) scheduleEmit(relPath, kind string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[relPath] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]string)
	w.mu.Unlock()

	for rel, kind := range pending {
		w.emit([]string{kind}, rel)
	}
}
