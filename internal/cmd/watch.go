package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watch calls run every time the file at input is written, created or
// replaced, until ctx is done. The parent directory is watched so editors
// that save by renaming a temp file over the document are noticed too.
func watch(ctx context.Context, input string, run func(context.Context) error, logger *slog.Logger) error {
	abs, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watching", slog.String("input", abs))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			logger.Info("watch stopped")

			return nil

		case <-fire:
			fire = nil

			if err := run(ctx); err != nil {
				logger.Error("extract failed", slog.String("input", abs), slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			logger.Debug("changed", slog.String("op", ev.Op.String()))

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}

			fire = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}

			logger.Error("watch error", slog.String("error", werr.Error()))
		}
	}
}
