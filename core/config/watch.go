package config

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher notices changes to a configuration file.
type Watcher struct {
	w       *fsnotify.Watcher
	target  string
	changed atomic.Bool
	done    chan struct{}
	log     *zap.Logger
}

// Watch starts watching the configuration file at path. The directory is
// watched rather than the file so editors that replace the file are seen.
func Watch(path string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := filepath.Clean(Path(path))
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &Watcher{
		w:      w,
		target: target,
		done:   make(chan struct{}),
		log:    log,
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target || event.Has(fsnotify.Chmod) {
				continue
			}
			w.log.Debug("config changed", zap.Stringer("event", event))
			w.changed.Store(true)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch", zap.Error(err))
		}
	}
}

// Changed reports whether the file changed since the last call.
func (w *Watcher) Changed() bool {
	return w.changed.Swap(false)
}

// Close stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	return err
}
