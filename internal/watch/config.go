// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bundlekit/bundlekit/pkg/plugin"
)

// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
var ErrInvalidWatchConfig = errors.New("invalid watch config")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the root directory to watch. Patterns are matched against
		// slash-separated paths relative to it. Empty means the working
		// directory.
		BaseDir string

		// Patterns select the files that trigger OnChange. An empty slice
		// matches every file that is not ignored.
		Patterns []string

		// Ignore extends DefaultIgnores.
		Ignore []string

		// Debounce is the quiet period after the last event before OnChange
		// fires. Zero or negative values use DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated paths that changed. It is
		// never called concurrently with itself.
		OnChange func(ctx context.Context, changed []string) error
	}

	// InvalidWatchConfigError collects the invalid patterns of a Config.
	// It wraps ErrInvalidWatchConfig for errors.Is() compatibility.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}
)

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid watch config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidWatchConfig and the field errors.
func (e *InvalidWatchConfigError) Unwrap() []error {
	return append([]error{ErrInvalidWatchConfig}, e.FieldErrors...)
}

// Validate checks every watch and ignore pattern.
func (c Config) Validate() error {
	var errs []error
	for _, group := range []struct {
		label    string
		patterns []string
	}{
		{"watch", c.Patterns},
		{"ignore", c.Ignore},
	} {
		for i, pat := range group.patterns {
			if pat == "" {
				errs = append(errs, fmt.Errorf("%s pattern %d is empty", group.label, i))
				continue
			}
			if !doublestar.ValidatePattern(pat) {
				errs = append(errs, fmt.Errorf("invalid %s pattern %q", group.label, pat))
			}
		}
	}
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// ManifestPatterns returns the watch patterns covering the descriptor files
// of the enabled sources, relative to baseDir. Sources with modules add every
// autoload.ini under modulesDir, since a module's requirements pull in
// other modules. Paths outside baseDir cannot be watched and are skipped.
func ManifestPatterns(baseDir, modulesDir string, sources []plugin.Source) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	add := func(abs string) {
		rel, ok := RelativePattern(baseDir, abs)
		if !ok {
			slog.Debug("path outside watched directory", "path", abs, "base", baseDir)
			return
		}
		if _, dup := seen[rel]; dup {
			return
		}
		seen[rel] = struct{}{}
		out = append(out, rel)
	}

	for _, src := range sources {
		if src.Disabled {
			continue
		}
		if src.Path != "" {
			path := src.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(src.Root, path)
			}
			add(path)
		}
		if len(src.Modules) > 0 {
			add(filepath.Join(modulesDir, "**", "config", "autoload.ini"))
		}
	}
	return out
}

// RelativePattern converts path, which may contain glob syntax, to a
// slash-separated pattern relative to base. It reports false when path lies
// outside base.
func RelativePattern(base, path string) (string, bool) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
