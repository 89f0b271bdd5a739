package rules

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the rules file into the engine when its modification
// time changes. A failed load keeps the previous snapshot active.
type Watcher struct {
	path    string
	loader  *Loader
	engine  *Engine
	log     *slog.Logger
	lastMod int64
}

func NewWatcher(path string, loader *Loader, engine *Engine, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		path:   filepath.Clean(path),
		loader: loader,
		engine: engine,
		log:    log,
	}
	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime().UnixNano()
	}
	return w
}

// Run watches until ctx is cancelled. The parent directory is watched, not
// the file itself, so editors that replace the file still trigger reloads.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.log.Info("watching rules", slog.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.maybeReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("rules watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) maybeReload() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("rules file unreadable, keeping current rules", slog.Any("error", err))
		return
	}
	mod := info.ModTime().UnixNano()
	if mod == w.lastMod {
		return
	}

	snap, err := w.loader.Load(w.path)
	if err != nil {
		w.log.Error("rules reload failed, keeping current rules", slog.Any("error", err))
		return
	}
	w.lastMod = mod
	w.engine.Swap(snap)
}
