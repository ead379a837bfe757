package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	fw    *fsnotify.Watcher
	path  string
	log   *slog.Logger
	apply func(*Config)
	done  chan struct{}
	once  sync.Once
}

// Watch starts watching the file at path and calls apply with every
// configuration successfully reloaded from it. The parent directory is
// watched so that editors replacing the file are noticed too. Invalid
// files are logged and skipped.
func Watch(path string, log *slog.Logger, apply func(*Config)) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		fw:    fw,
		path:  path,
		log:   log,
		apply: apply,
		done:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("config reload failed", "path", w.path, "error", err)
				continue
			}
			w.log.Info("config reloaded", "path", w.path)
			w.apply(cfg)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", "path", w.path, "error", err)
		}
	}
}

// Close stops the watcher and waits for it to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fw.Close()
		<-w.done
	})
	return err
}
