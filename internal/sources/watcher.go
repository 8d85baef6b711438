package sources

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/protokoll/minutes/internal/checksum"
	"github.com/protokoll/minutes/internal/storage"
)

// debounce coalesces the burst of write events editors emit for one save.
const debounce = 200 * time.Millisecond

// EventCallback is called after a watcher-driven ingest.
// kind is "parsed" or "failed".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and ingests changed
// protocol sources until ctx is cancelled.
//
// New directories (new series) are added to the watch list. Renames and
// removals only schedule a full sync: meetings outlive their files.
func Watch(ctx context.Context, ing Ingester, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	pending := make(map[string]struct{})
	var (
		flushTimer *time.Timer
		flushCh    <-chan time.Time
		resync     bool
	)
	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			if resync {
				resync = false
				if err := Sync(ctx, ing, store, logger); err != nil {
					logger.Warn("watcher: resync failed", slog.String("error", err.Error()))
				}
			}
			for rel := range pending {
				delete(pending, rel)
				ingestFile(ctx, ing, store, rel, logger, cb)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Files may have landed before the directory was watched.
					resync = true
					schedule()
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if _, _, ok := storage.ParseSourcePath(rel); !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[rel] = struct{}{}
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Info("watcher: source removed, meeting kept", slog.String("path", rel))
				resync = true
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func ingestFile(ctx context.Context, ing Ingester, store storage.Provider, rel string, logger *slog.Logger, cb EventCallback) {
	series, date, ok := storage.ParseSourcePath(rel)
	if !ok {
		return
	}
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	f := storage.SourceFile{
		Path:      rel,
		Series:    series,
		Date:      date,
		Checksum:  checksum.Source(string(data)),
		UpdatedAt: time.Now(),
	}
	parsed, err := ing.Ingest(ctx, f)
	switch {
	case err != nil:
		logger.Warn("watcher: ingest failed", slog.String("path", rel), slog.String("error", err.Error()))
		if cb != nil {
			cb("failed", rel)
		}
	case parsed:
		logger.Debug("watcher: parsed", slog.String("path", rel))
		if cb != nil {
			cb("parsed", rel)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
