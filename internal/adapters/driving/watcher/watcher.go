// Package watcher keeps a workspace index current by reacting to file
// system events. Changes are debounced per path and handed to the indexing
// service one file at a time.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("watcher: already running")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the per-file quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// pending is an armed debounce timer for one path.
type pending struct {
	timer *time.Timer
}

// Watcher watches a workspace recursively and reindexes changed files.
type Watcher struct {
	root     string
	indexer  driving.IndexingService
	matcher  *pathmatch.Matcher
	debounce time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	timers  map[string]*pending
	running bool
	closed  bool
	wg      sync.WaitGroup
}

// New creates a watcher for the workspace at root. Include and exclude
// patterns and the default debounce come from settings.
func New(
	root string, indexer driving.IndexingService, settings domain.IndexingSettings, opts ...Option,
) (*Watcher, error) {
	if indexer == nil {
		return nil, fmt.Errorf("%w: indexing service", domain.ErrNotInitialized)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, abs)
	}

	settings = settings.Normalised()
	matcher, err := pathmatch.New(settings.IncludePatterns, settings.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	w := &Watcher{
		root:     filepath.Clean(abs),
		indexer:  indexer,
		matcher:  matcher,
		debounce: time.Duration(settings.WatchDebounceMs) * time.Millisecond,
		log:      logger.Nop(),
		timers:   make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the watched workspace root.
func (w *Watcher) Root() string {
	return w.root
}

// Run watches until ctx is cancelled. Pending timers are dropped and
// in-flight reindexes are waited for before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.closed {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.log.Info("Watching %s (debounce %s)", w.root, w.debounce)

	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error: %v", err)
		}
	}
}

// handleEvent routes one fsnotify event. fsw may be nil in tests, in which
// case new directories are not added to the watch set.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.handleRemove(ctx, event.Name, rel)

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				w.handleNewDir(ctx, fsw, event.Name, rel)
			}
			return
		}
		if info.Mode().IsRegular() && w.matcher.Match(rel) {
			w.schedule(ctx, event.Name)
		}
	}
}

// handleNewDir watches a new directory and schedules the matching files
// already inside it, which were created before the watch was added.
func (w *Watcher) handleNewDir(ctx context.Context, fsw *fsnotify.Watcher, dir, rel string) {
	if w.matcher.ExcludesDir(rel) {
		return
	}
	if fsw != nil {
		if err := w.addRecursive(fsw, dir); err != nil {
			w.log.Warn("Failed to watch %s: %v", dir, err)
		}
	}
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		r, ok := w.relative(p)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if p != dir && w.matcher.ExcludesDir(r) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.matcher.Match(r) {
			w.schedule(ctx, p)
		}
		return nil
	})
}

// handleRemove cancels any pending reindex and drops the index entries.
// Matching paths are treated as files; anything else may have been a
// directory and is removed as a folder.
func (w *Watcher) handleRemove(ctx context.Context, abs, rel string) {
	w.cancel(abs)

	if w.matcher.Match(rel) {
		if err := w.indexer.DeleteFileIndex(ctx, abs); err != nil {
			w.log.Warn("Failed to delete index for %s: %v", rel, err)
			return
		}
		w.log.Info("Removed %s", rel)
		return
	}

	w.cancelUnder(abs)
	if err := w.indexer.DeleteFolderIndex(ctx, w.root, rel); err != nil {
		w.log.Warn("Failed to delete index for %s: %v", rel, err)
	}
}

// schedule (re)arms the debounce timer for abs.
func (w *Watcher) schedule(ctx context.Context, abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.timers[abs]; ok && p.timer.Stop() {
		w.wg.Done()
	}

	p := &pending{}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, abs, p) })
	w.timers[abs] = p
}

// cancel stops a pending timer for abs.
func (w *Watcher) cancel(abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(abs)
}

// cancelUnder stops pending timers for every path below dir.
func (w *Watcher) cancelUnder(dir string) {
	prefix := dir + string(filepath.Separator)
	w.mu.Lock()
	defer w.mu.Unlock()
	for abs := range w.timers {
		if strings.HasPrefix(abs, prefix) {
			w.stopLocked(abs)
		}
	}
}

func (w *Watcher) stopLocked(abs string) {
	p, ok := w.timers[abs]
	if !ok {
		return
	}
	delete(w.timers, abs)
	if p.timer.Stop() {
		w.wg.Done()
	}
}

// fire reindexes abs once its timer elapses. A busy indexer re-arms the
// timer.
func (w *Watcher) fire(ctx context.Context, abs string, p *pending) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.timers[abs] != p {
		w.mu.Unlock()
		return
	}
	delete(w.timers, abs)
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	rel, _ := w.relative(abs)
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		if err := w.indexer.DeleteFileIndex(ctx, abs); err != nil {
			w.log.Warn("Failed to delete index for %s: %v", rel, err)
		}
		return
	}

	result, err := w.indexer.IndexFiles(ctx, []string{abs}, w.root, nil)
	switch {
	case errors.Is(err, domain.ErrIndexingInProgress):
		w.log.Debug("Indexer busy, retrying %s", rel)
		w.schedule(ctx, abs)
		return
	case err != nil:
		w.log.Warn("Failed to reindex %s: %v", rel, err)
		return
	}

	for _, f := range result.Failures {
		w.log.Warn("Failed to reindex %s: %v", rel, f.Err)
	}
	if result.Indexed > 0 {
		w.log.Info("Reindexed %s (%d chunks)", rel, result.Chunks)
	}
}

// Pending returns the number of armed timers.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for abs := range w.timers {
		w.stopLocked(abs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// addRecursive watches dir and every non-excluded directory below it.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Debug("Skipping %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if rel, ok := w.relative(p); ok && w.matcher.ExcludesDir(rel) {
				return fs.SkipDir
			}
		}
		if err := fsw.Add(p); err != nil {
			w.log.Warn("Failed to watch %s: %v", p, err)
		}
		return nil
	})
}

// relative returns abs relative to the root in slash form; false when abs
// is the root itself or outside it.
func (w *Watcher) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
