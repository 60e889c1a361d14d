package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Alisasanian/PDFsorter/constants"
)

// WatchConfig configures Watch.
type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // emit PDFs already present
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// Watch emits paths of PDFs created or written under cfg.Roots until ctx is done.
// With a debounce, a burst of events is delivered once the directory has been quiet
// for the debounce period.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("watch: %w", err)
	}
	var initial []string
	for _, root := range cfg.Roots {
		found, err := addTree(w, root)
		if err != nil {
			_ = w.Close()
			return nil, nil, fmt.Errorf("watch %s: %w", root, err)
		}
		if cfg.InitialScan {
			initial = append(initial, found...)
		}
	}
	logger.Info("staging.watch.start", "roots", cfg.Roots, "debounce", cfg.Debounce, "initial", len(initial))

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)
	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("staging.watch.close", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		for _, p := range initial {
			pending[p] = struct{}{}
		}
		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
				delete(pending, p)
			}
		}
		flush()

		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// new sub-directories are watched too; files fail Add and are ignored
					_ = w.Add(e.Name)
				}
				if !arrived(e) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("staging.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// addTree registers root and every directory beneath it, returning the PDFs already there.
func addTree(w *fsnotify.Watcher, root string) ([]string, error) {
	var pdfs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			return w.Add(path)
		case isWatched(path):
			pdfs = append(pdfs, path)
		}
		return nil
	})
	return pdfs, err
}

// arrived reports whether e may have delivered a complete PDF.
func arrived(e fsnotify.Event) bool {
	return isWatched(e.Name) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func isWatched(path string) bool {
	return !isHidden(path) && constants.IsPDFExt(filepath.Ext(path))
}
