// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/bundlekit/bundlekit/internal/dag"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/parser"
)

// ErrDuplicatePlugin is the sentinel error wrapped by DuplicatePluginError.
var ErrDuplicatePlugin = errors.New("duplicate plugin")

type (
	// Plugin is anything registered with a Registry.
	Plugin interface {
		Name() string
	}

	// Dependent is implemented by plugins that must be ordered after other
	// plugins. Unknown names are ignored.
	Dependent interface {
		PackageDependencies() []string
	}

	// Disableable is implemented by plugins that can switch themselves off.
	Disableable interface {
		IsDisabled() bool
	}

	// BundleProvider is implemented by plugins that contribute descriptors.
	// The parser resolves the resources the plugin names.
	BundleProvider interface {
		Plugin
		BundleConfigs(ctx context.Context, p parser.Parser) ([]descriptor.Descriptor, error)
	}

	// DuplicatePluginError is returned when two plugins share a name.
	DuplicatePluginError struct {
		Name string
	}

	// Registry is an ordered set of plugins. Disable is not safe for
	// concurrent use with the other methods.
	Registry struct {
		plugins  []Plugin
		disabled map[string]bool
	}
)

func (e *DuplicatePluginError) Error() string {
	return fmt.Sprintf("plugin %q is registered more than once", e.Name)
}

// Unwrap returns ErrDuplicatePlugin for errors.Is() compatibility.
func (e *DuplicatePluginError) Unwrap() error { return ErrDuplicatePlugin }

// NewRegistry orders plugins by their package dependencies. primary, if not
// nil, is placed first before sorting, so it loads first unless it depends
// on another plugin. Ordering fails with a *dag.UnresolvableError when the
// dependencies form a cycle.
func NewRegistry(primary Plugin, plugins ...Plugin) (*Registry, error) {
	all := make([]Plugin, 0, len(plugins)+1)
	if primary != nil {
		all = append(all, primary)
	}
	all = append(all, plugins...)

	byName := make(map[string]Plugin, len(all))
	g := dag.New()
	for _, p := range all {
		name := p.Name()
		if _, ok := byName[name]; ok {
			return nil, &DuplicatePluginError{Name: name}
		}
		byName[name] = p

		var requires []string
		if dep, ok := p.(Dependent); ok {
			requires = dep.PackageDependencies()
		}
		g.AddNode(name, requires...)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("order plugins: %w", err)
	}

	r := &Registry{
		plugins:  make([]Plugin, 0, len(order)),
		disabled: make(map[string]bool),
	}
	for _, name := range order {
		r.plugins = append(r.plugins, byName[name])
	}
	return r, nil
}

// Disable excludes the named plugins from Instances. Names that are not
// registered are remembered anyway.
func (r *Registry) Disable(names ...string) {
	for _, name := range names {
		r.disabled[name] = true
	}
}

// Disabled returns the names passed to Disable, sorted.
func (r *Registry) Disabled() []string {
	return slices.Sorted(maps.Keys(r.disabled))
}

// IsDisabled reports whether p is excluded, by Disable or by itself.
func (r *Registry) IsDisabled(p Plugin) bool {
	if r.disabled[p.Name()] {
		return true
	}
	d, ok := p.(Disableable)
	return ok && d.IsDisabled()
}

// All returns every registered plugin in order, disabled ones included.
func (r *Registry) All() []Plugin {
	return slices.Clone(r.plugins)
}

// Instances returns the active plugins in order.
func (r *Registry) Instances() []Plugin {
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if !r.IsDisabled(p) {
			out = append(out, p)
		}
	}
	return out
}

// BundleProviders returns the active plugins that provide descriptors, in
// order or in reverse order.
func (r *Registry) BundleProviders(reverse bool) []BundleProvider {
	var out []BundleProvider
	for _, p := range r.Instances() {
		if bp, ok := p.(BundleProvider); ok {
			out = append(out, bp)
		}
	}
	if reverse {
		slices.Reverse(out)
	}
	return out
}
