// Package filewatcher reports changes to a single file on disk.
package filewatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/quickshop/pkg/logger"
)

const defaultDebounce = 250 * time.Millisecond

// Operation is the kind of change observed.
type Operation int

// Observed operations.
const (
	FileWritten Operation = iota
	FileRemoved
)

func (o Operation) String() string {
	if o == FileRemoved {
		return "removed"
	}
	return "written"
}

// Event is one debounced change to the watched file.
type Event struct {
	Path      string
	Operation Operation
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for a burst of writes to
// settle before emitting one event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher watches one file. The parent directory is watched so that
// editors replacing the file by rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   logger.Logger
}

// New creates a watcher for path.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		path:     abs,
		debounce: defaultDebounce,
		logger:   logger.Get().Named("filewatcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch starts monitoring and emits events until ctx is done or Stop is
// called. The returned channel is closed on exit.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, err
	}

	events := make(chan Event, 1)
	go func() {
		defer close(events)

		var (
			timer   *time.Timer
			timerC  <-chan time.Time
			pending Event
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path {
					continue
				}
				switch {
				case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
					pending = Event{Path: w.path, Operation: FileWritten}
				case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
					pending = Event{Path: w.path, Operation: FileRemoved}
				default:
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				select {
				case events <- pending:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn(ctx, "watch error", logger.String("path", w.path), logger.Error(err))
			}
		}
	}()
	return events, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
