package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay collapses the burst of events editors emit for one save.
const reloadDelay = 250 * time.Millisecond

// Watch calls reload after any file in paths, or any file inside a watched
// directory, is written, created, renamed or removed. Paths that are
// directories are watched as a whole; files are watched through their parent
// directory so editors that replace the file are still seen. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, paths []string, log zerolog.Logger, reload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	files := make(map[string]bool)     // Individual files of interest
	wholeDirs := make(map[string]bool) // Directories where any change counts
	watched := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			wholeDirs[abs] = true
			watched[abs] = true
			continue
		}
		files[abs] = true
		watched[filepath.Dir(abs)] = true
	}

	for dir := range watched {
		if err := w.Add(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("config watch add failed")
			continue
		}
		log.Debug().Str("dir", dir).Msg("watching for config changes")
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		log.Debug().Str("path", name).Msg("config change detected; scheduling reload")
		timer = time.AfterFunc(reloadDelay, reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name, _ := filepath.Abs(ev.Name)
			if files[name] || wholeDirs[filepath.Dir(name)] {
				schedule(name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watch error")
		}
	}
}
