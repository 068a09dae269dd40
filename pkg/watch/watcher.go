package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changed files below root as slash-separated relative paths.
type Watcher struct {
	root   string
	ignore []string
	fsw    *fsnotify.Watcher
}

// NewWatcher watches root recursively. ignore lists root-relative
// directories that are never watched, such as the build output.
func NewWatcher(root string, ignore ...string) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}

	w := &Watcher{root: absRoot, fsw: fsw}
	for _, dir := range ignore {
		w.ignore = append(w.ignore, filepath.ToSlash(filepath.Clean(dir)))
	}
	if err := w.addDirsRecursive(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards change events to out until ctx is cancelled or the watcher closes.
func (w *Watcher) Run(ctx context.Context, out chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			for _, rel := range w.handle(ev) {
				select {
				case out <- rel:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handle turns an event into changed paths. A created directory is watched
// and every file already inside it is reported, so a pasted folder triggers
// its bindings.
func (w *Watcher) handle(ev fsnotify.Event) []string {
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return nil
	}

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addDirsRecursive(ev.Name); err != nil {
				slog.Warn("watch add failed", "dir", ev.Name, "error", err)
			}
			return w.filesBelow(ev.Name)
		}
	}
	slog.Debug("file change detected", "path", rel, "op", ev.Op.String())
	return []string{rel}
}

// filesBelow lists the non-ignored files below dir as root-relative paths.
func (w *Watcher) filesBelow(dir string) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if w.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		slog.Warn("listing new directory failed", "dir", dir, "error", err)
	}
	slog.Debug("directory added", "dir", dir, "files", len(files))
	return files
}

func (w *Watcher) ignored(rel string) bool {
	if slices.ContainsFunc(w.ignore, func(dir string) bool {
		return rel == dir || strings.HasPrefix(rel, dir+"/")
	}) {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if part == "node_modules" || (strings.HasPrefix(part, ".") && part != "." && part != "..") {
			return true
		}
	}
	base := filepath.Base(rel)
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp")
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil && rel != "." && w.ignored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}
