package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"fonttrack/internal/ft"
)

// FontWatcher turns filesystem events under the font directories into
// debounced change signals. fsnotify watches are not recursive, so every
// subdirectory is added, including ones created while watching.
type FontWatcher struct {
	scanner  *OSFontScanner
	debounce time.Duration
	logger   ft.Logger
	watcher  *fsnotify.Watcher
}

// NewFontWatcher watches every existing directory the scanner would walk.
// Call Close when done.
func NewFontWatcher(scanner *OSFontScanner, debounce time.Duration, logger ft.Logger) (*FontWatcher, error) {
	if logger == nil {
		logger = ft.NewNopLogger()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	dirs, err := scanner.Dirs()
	if err != nil {
		return nil, fmt.Errorf("resolving font directories: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &FontWatcher{scanner: scanner, debounce: debounce, logger: logger, watcher: watcher}

	watched := 0
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logger.Debug("not watching missing font directory", "dir", dir)
			continue
		}
		if err := w.addTree(dir); err != nil {
			watcher.Close()
			return nil, err
		}
		watched++
	}
	if watched == 0 {
		watcher.Close()
		return nil, errors.New("none of the font directories exist")
	}
	return w, nil
}

// addTree watches root and every directory below it.
func (w *FontWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			w.logger.Warn("not watching unreadable directory", "path", p, "error", err)
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			if p == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			w.logger.Warn("cannot watch directory", "path", p, "error", err)
		}
		return nil
	})
}

// relevant reports whether ev may change the scan result. Removals and
// renames always count because the path may have been a directory of fonts.
func (w *FontWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return true
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		return w.scanner.IsFont(ev.Name) || filepath.Base(ev.Name) == IgnoreFileName
	}
	return false
}

// Run calls onChange once per burst of relevant events, after the burst has
// been quiet for the debounce period. It returns when ctx is done or the
// watcher is closed.
func (w *FontWatcher) Run(ctx context.Context, onChange func()) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
					}
					// Fonts copied in with the directory produce no events of their own.
					timer.Reset(w.debounce)
					continue
				}
			}
			if w.relevant(ev) {
				w.logger.Debug("font change event", "event", ev.Op.String(), "path", ev.Name)
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}

// Close stops watching.
func (w *FontWatcher) Close() error {
	return w.watcher.Close()
}
