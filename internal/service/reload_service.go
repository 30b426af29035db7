package service

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"datadesk/internal/domain"
)

// Fetcher reloads the record list. Implemented by RecordService.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Record, error)
}

const reloadDebounce = 500 * time.Millisecond

// ─────────────────────────────────────────────────────────────
// Reload Service: scheduled and file-triggered reloads
// ─────────────────────────────────────────────────────────────

// ReloadService re-fetches the record list on a cron schedule and whenever
// the backing JSON file (or Reload.WatchFile) changes on disk.
type ReloadService struct {
	fetcher Fetcher

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewReloadService creates a ReloadService. Nothing runs until Restart.
func NewReloadService(fetcher Fetcher) *ReloadService {
	return &ReloadService{fetcher: fetcher}
}

// WatchedFiles returns the files whose changes trigger a reload.
func WatchedFiles(st domain.Settings) []string {
	var files []string
	if st.Backend == domain.BackendJSONFile && st.File.Path != "" {
		files = append(files, st.File.Path)
	}
	if st.Reload.WatchFile != "" && st.Reload.WatchFile != st.File.Path {
		files = append(files, st.Reload.WatchFile)
	}
	return files
}

// Restart tears down the current schedule and watcher and rebuilds them from st.
func (s *ReloadService) Restart(ctx context.Context, st domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	if st.Reload.Schedule != "" {
		c := cron.New()
		_, err := c.AddFunc(st.Reload.Schedule, func() { s.reload(ctx, "schedule") })
		if err != nil {
			log.Printf("reload cron: invalid expression %q: %v", st.Reload.Schedule, err)
		} else {
			c.Start()
			s.cronSched = c
			log.Printf("reload cron: scheduled %q", st.Reload.Schedule)
		}
	}

	files := WatchedFiles(st)
	if len(files) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("reload watcher: failed to create watcher: %v", err)
		return
	}
	s.watcher = watcher

	// Watch parent dirs so atomic rename-over-file writes are seen.
	watched := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			log.Printf("reload watcher: bad path %q: %v", f, err)
			continue
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("reload watcher: failed to watch dir %q: %v", dir, err)
			continue
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				abs, _ := filepath.Abs(event.Name)
				if !watched[abs] {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if watchCtx.Err() != nil {
						return
					}
					s.reload(ctx, "file "+abs)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("reload watcher: error: %v", err)
			}
		}
	}()

	log.Printf("reload watcher: watching %d file(s)", len(watched))
}

func (s *ReloadService) reload(ctx context.Context, trigger string) {
	records, err := s.fetcher.Fetch(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		log.Printf("reload: skipped (%s), another operation is in progress", trigger)
	case err != nil:
		log.Printf("reload: %s failed: %v", trigger, err)
	default:
		log.Printf("reload: %s loaded %d record(s)", trigger, len(records))
	}
}

// Stop tears down the schedule and watcher. Safe to call repeatedly.
func (s *ReloadService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *ReloadService) stopLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
