package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher recursively observes a directory tree and emits debounced
// change events.
type Watcher struct {
	root     string
	ignore   []string
	fsw      *fsnotify.Watcher
	debounce *Debouncer
	logger   *zap.Logger
}

// Canonicalize resolves dir to an absolute path with symlinks evaluated and
// checks that it is a directory.
func Canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("absolute path of %q: %w", dir, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", abs)
	}
	return abs, nil
}

// New starts watching root and every directory below it.
func New(root string, opts Options, logger *zap.Logger) (*Watcher, error) {
	abs, err := Canonicalize(root)
	if err != nil {
		return nil, err
	}

	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:     abs,
		ignore:   opts.Ignore,
		fsw:      fsw,
		debounce: NewDebouncer(abs, window),
		logger:   logger,
	}
	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the canonical watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Events returns the stream of debounced changes.
func (w *Watcher) Events() <-chan Event {
	return w.debounce.Output()
}

// Run relays fsnotify notifications into the debouncer until ctx is done.
// Errors reported by fsnotify are logged and skipped.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	defer w.debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
	}

	w.logger.Debug("Raw change", zap.String("path", event.Name), zap.Stringer("op", event.Op))
	w.debounce.Push(event.Op, event.Name)
}

// addTree adds dir and all non-ignored subdirectories. Only a failure on
// dir itself is returned; failures deeper in the tree are logged.
func (w *Watcher) addTree(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %q: %w", dir, err)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Failed to walk", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() || path == dir {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, pattern := range w.ignore {
			if ok, _ := filepath.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}
