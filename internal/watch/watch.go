// Package watch reloads a corpus file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"csvqa/internal/logger"
)

// ReloadFunc loads the file at path.
type ReloadFunc func(path string) error

// Watcher watches a single file. The parent directory is watched so that
// editors that save by renaming a temp file over the original are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	log      *logrus.Entry
}

// New creates a watcher; Run starts it.
func New(path string, debounce time.Duration, reload ReloadFunc, log *logrus.Entry) *Watcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		reload:   reload,
		log:      log.WithField("path", path),
	}
}

// Run blocks until ctx is done. Bursts of events closer together than the
// debounce interval cause one reload. Reload errors are logged and the
// watcher keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}
	w.log.Info("watching corpus file")

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				fire = time.After(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")
		case <-fire:
			fire = nil
			if err := w.reload(w.path); err != nil {
				w.log.WithError(err).Warn("reload failed, previous index kept")
				continue
			}
			w.log.Info("corpus reloaded")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
