// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/parser"
)

var (
	// ErrInvalidSource is the sentinel error wrapped by InvalidSourceError.
	ErrInvalidSource = errors.New("invalid source")
)

type (
	// Source describes where a SourcePlugin finds descriptors. Path is a file
	// or a doublestar pattern relative to Root; Modules names legacy module
	// directories. A source needs at least one of the two.
	Source struct {
		Name     string
		Root     string
		Path     string
		Type     parser.Type
		Modules  []string
		After    []string
		Disabled bool
	}

	// InvalidSourceError is returned by NewSourcePlugin for an unusable source.
	InvalidSourceError struct {
		Name   string
		Reason string
	}

	// SourcePlugin provides the descriptors of one configured source.
	SourcePlugin struct {
		src Source
	}
)

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid source %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidSource for errors.Is() compatibility.
func (e *InvalidSourceError) Unwrap() error { return ErrInvalidSource }

// Validate checks that the source is named, points at something and uses a
// known parser type.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &InvalidSourceError{Name: s.Name, Reason: "name must not be empty"}
	}
	if s.Path == "" && len(s.Modules) == 0 {
		return &InvalidSourceError{Name: s.Name, Reason: "either path or modules must be set"}
	}
	if err := s.Type.Validate(); err != nil {
		return &InvalidSourceError{Name: s.Name, Reason: err.Error()}
	}
	if s.Path != "" && !doublestar.ValidatePattern(filepath.ToSlash(s.Path)) {
		return &InvalidSourceError{Name: s.Name, Reason: fmt.Sprintf("malformed path pattern %q", s.Path)}
	}
	return nil
}

// NewSourcePlugin validates src and wraps it as a plugin.
func NewSourcePlugin(src Source) (*SourcePlugin, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	src.Modules = slices.Clone(src.Modules)
	src.After = slices.Clone(src.After)
	return &SourcePlugin{src: src}, nil
}

// Name returns the source name.
func (s *SourcePlugin) Name() string { return s.src.Name }

// Source returns the configuration the plugin was built from.
func (s *SourcePlugin) Source() Source { return s.src }

// PackageDependencies returns the sources this one is ordered after.
func (s *SourcePlugin) PackageDependencies() []string { return slices.Clone(s.src.After) }

// IsDisabled reports whether the source is switched off in configuration.
func (s *SourcePlugin) IsDisabled() bool { return s.src.Disabled }

// Resources returns the resources the source resolves to, in parse order:
// matching files sorted by path, then the modules as listed. A literal path
// is returned even when it does not exist, so that parsing reports it.
func (s *SourcePlugin) Resources() ([]string, error) {
	var out []string

	if s.src.Path != "" {
		files, err := s.files()
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return append(out, s.src.Modules...), nil
}

// BundleConfigs parses every resource of the source with p. Modules are
// parsed as legacy INI modules unless the source sets a type.
func (s *SourcePlugin) BundleConfigs(ctx context.Context, p parser.Parser) ([]descriptor.Descriptor, error) {
	var files []string
	if s.src.Path != "" {
		var err error
		if files, err = s.files(); err != nil {
			return nil, err
		}
	}

	moduleType := s.src.Type
	if moduleType == parser.TypeAuto {
		moduleType = parser.TypeINI
	}

	var out []descriptor.Descriptor
	parse := func(resource string, typ parser.Type) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ds, err := p.Parse(ctx, resource, typ)
		if err != nil {
			return fmt.Errorf("source %s: %w", s.src.Name, err)
		}
		out = append(out, ds...)
		return nil
	}

	for _, f := range files {
		if err := parse(f, s.src.Type); err != nil {
			return nil, err
		}
	}
	for _, m := range s.src.Modules {
		if err := parse(m, moduleType); err != nil {
			return nil, err
		}
	}

	slog.Debug("source parsed", "source", s.src.Name, "files", len(files), "modules", len(s.src.Modules), "descriptors", len(out))
	return out, nil
}

func (s *SourcePlugin) files() ([]string, error) {
	pattern := filepath.ToSlash(s.src.Path)
	root := s.src.Root
	if root == "" {
		root = "."
	}

	if filepath.IsAbs(s.src.Path) {
		base, rel := doublestar.SplitPattern(pattern)
		root, pattern = filepath.FromSlash(base), rel
	}

	if !hasMeta(pattern) {
		return []string{filepath.Join(root, filepath.FromSlash(pattern))}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("source %s: glob %q: %w", s.src.Name, s.src.Path, err)
	}
	if len(matches) == 0 {
		slog.Debug("source pattern matched no files", "source", s.src.Name, "pattern", s.src.Path)
	}

	slices.Sort(matches)
	for i, m := range matches {
		matches[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return matches, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{\`)
}
