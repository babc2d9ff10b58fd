package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch watches fname for writes and calls onReload with the freshly
// reloaded Config each time it changes, hot-reloading SLEEP_AFTER_BURST
// and the simulation parameters without a server restart. It runs until
// stop is closed; errors from the watcher are logged, not returned, since
// a lost watch should not bring the server down.
func Watch(fname string, onReload func(Config), stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(fname)
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(fname) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := Load(fname); err != nil {
					log.Println("config: reload failed:", err)
					continue
				}
				cfg, err := Unmarshal()
				if err != nil {
					log.Println("config: unmarshal after reload failed:", err)
					continue
				}
				onReload(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Println("config: watch error:", err)
			}
		}
	}()
	return nil
}
