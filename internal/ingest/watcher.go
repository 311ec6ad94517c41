package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/util"
	"github.com/fsnotify/fsnotify"
)

// Watcher ingests feed files dropped into a directory. Each *.jsonl file
// is resolved once and then renamed with a .done suffix (.failed when the
// run errored) so a restart never replays finished feeds.
type Watcher struct {
	ingester *Ingester
	dir      string

	// settle delay between the write event and ingestion, so half-written
	// files are not picked up mid-upload
	settle time.Duration
}

// NewWatcher creates a drop-directory watcher
func NewWatcher(ingester *Ingester, dir string) *Watcher {
	return &Watcher{ingester: ingester, dir: dir, settle: 2 * time.Second}
}

// Watch processes existing files first, then blocks handling filesystem
// events until the context is cancelled
func (w *Watcher) Watch(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create drop directory %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	util.InfoLog("Watching %s for feed files", w.dir)

	// drain anything already waiting
	w.processExisting(ctx)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isFeedFile(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.ErrorLog("Watcher error: %v", err)

		case <-ticker.C:
			for path, seen := range pending {
				if time.Since(seen) < w.settle {
					continue
				}
				delete(pending, path)
				w.processFile(ctx, path)
			}
		}
	}
}

func (w *Watcher) processExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		util.ErrorLog("Failed to read drop directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isFeedFile(entry.Name()) {
			continue
		}
		w.processFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) processFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return // already renamed or removed
	}

	platform := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	util.InfoLog("Ingesting dropped feed: %s", path)

	_, err := w.ingester.Run(ctx, []Source{NewFileSource(path, platform)})

	suffix := ".done"
	if err != nil {
		util.ErrorLog("Feed %s failed: %v", path, err)
		suffix = ".failed"
	}
	if renameErr := os.Rename(path, path+suffix); renameErr != nil {
		util.ErrorLog("Failed to rename %s: %v", path, renameErr)
	}
}

func isFeedFile(path string) bool {
	return strings.HasSuffix(path, ".jsonl")
}
