// Package sources keeps the store in step with the protocol vault: a full
// sync at startup and an fsnotify watcher afterwards.
package sources

import (
	"context"
	"log/slog"

	"github.com/protokoll/minutes/internal/storage"
)

// Ingester brings one vault file into the store. It reports whether the
// file was parsed; unchanged files are skipped.
type Ingester interface {
	Ingest(ctx context.Context, f storage.SourceFile) (bool, error)
}

// Sync walks the vault and ingests every protocol source. Failures of single
// files are logged and do not stop the walk.
func Sync(ctx context.Context, ing Ingester, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List("")
	if err != nil {
		return err
	}

	var parsed, failed int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := ing.Ingest(ctx, f)
		if err != nil {
			failed++
			logger.Warn("sync: ingest failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if ok {
			parsed++
			logger.Debug("sync: parsed", slog.String("path", f.Path))
		}
	}
	logger.Info("sync: done",
		slog.Int("files", len(files)),
		slog.Int("parsed", parsed),
		slog.Int("failed", failed),
	)
	return nil
}
