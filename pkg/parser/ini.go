// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

const (
	// autoloadFile is the legacy module file listing required modules,
	// relative to the module directory.
	autoloadFile = "config/autoload.ini"

	requiresSection = "requires"
	requiresKey     = "requires[]"
	optionalPrefix  = "*"
)

// INIParser parses legacy module directories below a modules directory. A
// module's config/autoload.ini may list required modules, either as
// "requires[] = name" keys or in a [requires] section. A name prefixed with
// "*" is optional and skipped when its directory does not exist.
//
// Required modules are parsed recursively. Each module is parsed at most once
// per INIParser, so a parser instance belongs to one resolution pass.
type INIParser struct {
	modulesDir string

	mu     sync.Mutex
	loaded map[string]bool
}

// NewINIParser creates an INIParser for modules below modulesDir.
func NewINIParser(modulesDir string) *INIParser {
	return &INIParser{
		modulesDir: modulesDir,
		loaded:     make(map[string]bool),
	}
}

// Supports reports whether typ is TypeINI or resource names an existing
// module directory.
func (p *INIParser) Supports(resource string, typ Type) bool {
	return typ == TypeINI || p.isModule(resource)
}

// Parse returns the legacy module descriptor for the module named resource,
// followed by the descriptors of every required module not parsed before.
// A module directory without autoload.ini, or a module that does not exist
// at all, yields a descriptor with the default legacy order.
func (p *INIParser) Parse(ctx context.Context, resource string, _ Type) ([]descriptor.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.parse(ctx, resource)
}

func (p *INIParser) parse(ctx context.Context, module string) ([]descriptor.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.loaded[module] = true

	path := filepath.Join(p.modulesDir, module, filepath.FromSlash(autoloadFile))
	requires, err := readRequires(path)
	if err != nil {
		return nil, err
	}

	var (
		opts     []descriptor.Option
		required []descriptor.Descriptor
	)

	if len(requires) > 0 {
		loadAfter := make([]string, 0, len(requires))
		for _, req := range requires {
			name, optional := strings.CutPrefix(req, optionalPrefix)
			loadAfter = append(loadAfter, name)

			if optional && !p.isModule(name) {
				slog.Debug("skipping optional module that is not installed", "module", module, "requires", name)
				continue
			}
			if p.loaded[name] {
				continue
			}

			ds, err := p.parse(ctx, name)
			if err != nil {
				return nil, err
			}
			required = append(required, ds...)
		}
		opts = append(opts, descriptor.WithLoadAfter(loadAfter...))
	}

	d, err := descriptor.NewLegacyModule(module, opts...)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", module, err)
	}

	return append([]descriptor.Descriptor{d}, required...), nil
}

func (p *INIParser) isModule(name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(p.modulesDir, name))
	return err == nil && info.IsDir()
}

// readRequires returns the required module names listed in path, or nil if
// the file does not exist.
func readRequires(path string) ([]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, fmt.Errorf("file %s cannot be decoded: %w", path, err)
	}

	var requires []string
	if cfg.Section(ini.DefaultSection).HasKey(requiresKey) {
		requires = append(requires, cfg.Section(ini.DefaultSection).Key(requiresKey).ValueWithShadows()...)
	}
	if section, err := cfg.GetSection(requiresSection); err == nil {
		for _, key := range section.Keys() {
			requires = append(requires, key.ValueWithShadows()...)
		}
	}

	out := requires[:0]
	for _, r := range requires {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
