// Package watch reports batches of changed Move files under a project root
// using fsnotify. Events are debounced so an editor save or a git checkout
// produces one batch.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/movefcg/internal/discover"
	"github.com/jward/movefcg/internal/manifest"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a project tree. Create one with New and call Run once.
type Watcher struct {
	root     string
	matcher  *discover.Matcher
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher for root. Directories pruned by m are not watched.
func New(root string, m *discover.Matcher, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", root)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		matcher:  m,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.matcher.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether a change to path can affect the index.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	if rel == manifest.FileName {
		return true
	}
	return discover.IsSource(path) && !w.matcher.SkipFile(rel)
}

// Run delivers each debounced batch of changed paths (absolute, sorted) to
// onChange until ctx is cancelled. onChange runs on the Run goroutine, so
// events arriving meanwhile are coalesced into the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.matcher.SkipDir(filepath.Base(ev.Name)) {
					if err := w.addRecursive(ev.Name); err != nil {
						w.logger.Warn("watch directory", "path", ev.Name, "error", err)
					}
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch overflow, rescanning", "error", err)
				pending[w.root] = struct{}{}
				timer.Reset(w.debounce)
				fire = timer.C
				continue
			}
			w.logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			w.logger.Debug("change batch", "files", len(paths))
			onChange(ctx, paths)
		}
	}
}

// Close stops watching without waiting for Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
