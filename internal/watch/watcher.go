// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs bundle resolution when descriptor files change.
//
// A Watcher registers every non-ignored directory under its base directory
// with fsnotify, filters events through doublestar patterns and coalesces
// bursts of events into one debounced callback.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the write-then-rename sequence most editors use.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: already running")

// defaultIgnores are never watched. The .bundlekit directory holds snapshots
// written by the callback itself.
var defaultIgnores = []string{
	".bundlekit/**",
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/*.tmp*",
}

// Watcher fires a debounced callback when matching files change.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	ignores  []string
	debounce time.Duration
	baseDir  string
	started  atomic.Bool
}

// New validates cfg and registers the directory tree under its BaseDir.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create notifier: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		baseDir:  absBase,
	}

	if err := w.addTree(absBase); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			slog.Warn("close notifier", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// BaseDir returns the absolute directory being watched.
func (w *Watcher) BaseDir() string { return w.baseDir }

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when the notifier breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			slog.Warn("close notifier", "error", err)
		}
	}()

	d := &debouncer{delay: w.debounce, pending: make(map[string]struct{})}
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			w.handle(ctx, d, evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, d *debouncer, evt fsnotify.Event) {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return
	}

	rel := w.relative(evt.Name)
	if w.ignored(rel) {
		return
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				slog.Warn("watch new directory", "path", rel, "error", err)
			}
			return
		}
	}

	if !w.matches(rel) {
		return
	}

	slog.Debug("change detected", "path", rel, "op", evt.Op.String())
	d.add(rel, func() { w.fire(ctx, d) })
}

func (w *Watcher) fire(ctx context.Context, d *debouncer) {
	if ctx.Err() != nil {
		return
	}
	if !d.running.CompareAndSwap(false, true) {
		slog.Debug("previous run still in progress, rescheduling")
		d.reschedule()
		return
	}
	defer d.running.Store(false)

	changed := d.drain()
	if len(changed) == 0 || w.cfg.OnChange == nil {
		return
	}
	if err := w.cfg.OnChange(ctx, changed); err != nil {
		slog.Error("change handler failed", "error", err)
	}
}

// addTree registers root and every non-ignored directory below it.
// Unreadable directories are skipped.
func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Debug("skip unreadable path", "path", path, "error", walkErr)
			return nil //nolint:nilerr // unreadable directories are not fatal
		}
		if !entry.IsDir() {
			return nil
		}
		rel := w.relative(path)
		if rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matches(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns the patterns every Watcher ignores.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// debouncer accumulates changed paths until the delay elapses without new
// events.
type debouncer struct {
	delay   time.Duration
	running atomic.Bool

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

func (d *debouncer) add(path string, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] = struct{}{}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *debouncer) reschedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Reset(d.delay)
	}
}

func (d *debouncer) drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := slices.Sorted(maps.Keys(d.pending))
	clear(d.pending)
	return changed
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
