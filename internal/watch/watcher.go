// Package watch reloads the override table when its workbook changes on disk.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reloader is the part of the refresh runner the watcher drives.
type Reloader interface {
	ReloadExclusions(ctx context.Context)
}

// Watcher monitors the exclusion workbook and triggers an override reload on
// create/write/rename. The parent directory is watched, not the file itself:
// spreadsheet editors save via rename and would detach a file watch.
type Watcher struct {
	path     string
	enabled  bool
	reloader Reloader
}

func New(path string, enabled bool, reloader Reloader) *Watcher {
	return &Watcher{path: path, enabled: enabled, reloader: reloader}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.enabled {
		log.Println("watch: exclusion watcher disabled")
		return nil
	}
	dir := filepath.Dir(w.path)
	if _, err := os.Stat(dir); err != nil {
		log.Printf("watch: %s not watchable: %v (overrides reload only on refresh)", dir, err)
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := filepath.Base(w.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Base(evt.Name) != target {
					continue
				}
				log.Printf("watch: %s changed, reloading overrides", w.path)
				w.reloader.ReloadExclusions(ctx)
			case err := <-watcher.Errors:
				log.Printf("watch: %v", err)
			}
		}
	}()
	return watcher.Add(dir)
}
