// Package livefile pushes saves of externally edited files back into the app.
package livefile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called with the watch key and the new file content.
type ChangeHandler func(key, content string)

// Watcher watches single files by key. The parent directory is watched so
// editors that save by rename are seen too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	mu       sync.RWMutex
	watching map[string]string // abs path -> key
	dirs     map[string]int    // abs dir -> watched files in it
}

// New creates a Watcher and starts its event loop.
func New(onChange ChangeHandler) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  watcher,
		onChange: onChange,
		watching: make(map[string]string),
		dirs:     make(map[string]int),
	}
	go w.loop()
	return w, nil
}

// Watch starts reporting changes of filePath under key.
func (w *Watcher) Watch(key, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watching[absPath]; ok {
		w.watching[absPath] = key
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.watching[absPath] = key
	return nil
}

// Unwatch stops reporting changes for key.
func (w *Watcher) Unwatch(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, k := range w.watching {
		if k != key {
			continue
		}
		delete(w.watching, path)
		dir := filepath.Dir(path)
		w.dirs[dir]--
		if w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			w.watcher.Remove(dir)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// ReadContent reads a field file, dropping the trailing newline editors add.
func ReadContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			w.mu.RLock()
			key, watched := w.watching[absPath]
			w.mu.RUnlock()
			if !watched {
				continue
			}

			content, err := ReadContent(absPath)
			if err != nil {
				log.Printf("livefile: read %s: %v", absPath, err)
				continue
			}
			if w.onChange != nil {
				w.onChange(key, content)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("livefile: watcher error: %v", err)
		}
	}
}
