// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/bundlekit/bundlekit/internal/dag"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

var (
	// ErrUnresolvable is returned (wrapped) when the load-after constraints
	// cannot be satisfied by any order. Use errors.As with *dag.UnresolvableError
	// for the unresolved subgraph.
	ErrUnresolvable = dag.ErrUnresolvable

	// ErrMergeConflict is returned (wrapped) when two active declarations of
	// the same name have different kinds.
	ErrMergeConflict = descriptor.ErrMergeConflict
)

type (
	// Resolver collects descriptors in discovery order and resolves them per
	// environment. It is not safe for concurrent use.
	Resolver struct {
		descriptors []descriptor.Descriptor
		keyOrder    func(a, b string) int
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// New creates an empty Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{keyOrder: hashOrder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithKeyOrder replaces the pre-sort applied to graph keys before ordering.
// The comparison must be a stable total order that does not depend on the
// order descriptors were added in.
func WithKeyOrder(compare func(a, b string) int) Option {
	return func(r *Resolver) {
		if compare != nil {
			r.keyOrder = compare
		}
	}
}

// Add appends a descriptor. It never fails and returns the Resolver for chaining.
func (r *Resolver) Add(d descriptor.Descriptor) *Resolver {
	r.descriptors = append(r.descriptors, d)
	return r
}

// Len returns the number of descriptors added so far.
func (r *Resolver) Len() int {
	return len(r.descriptors)
}

// Resolve returns the descriptors active in env, in load order.
//
// A declaration disabled in env retracts an earlier accepted declaration of
// the same name. Enabled declarations of the same name are merged with
// descriptor.Merge. Superseded names are removed and load-after references to
// them are rewritten to their replacement. Resolution fails as a whole with a
// *descriptor.MergeConflictError or a *dag.UnresolvableError.
func (r *Resolver) Resolve(env descriptor.Environment) (*Resolution, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	active, err := r.activeSet(env)
	if err != nil {
		return nil, err
	}

	replace := r.supersedeMap()
	order, err := r.loadOrderGraph(replace).TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("resolve load order for %s: %w", env, err)
	}

	res := newResolution(len(active))
	for _, name := range order {
		if d, ok := active[name]; ok {
			res.append(d)
		}
	}

	slog.Debug("resolved bundles", "env", env, "declared", len(r.descriptors), "active", res.Len())
	return res, nil
}

// activeSet applies environment filtering and same-name merging in insertion order.
func (r *Resolver) activeSet(env descriptor.Environment) (map[string]descriptor.Descriptor, error) {
	active := make(map[string]descriptor.Descriptor, len(r.descriptors))

	for _, d := range r.descriptors {
		name := d.Name()
		existing, found := active[name]

		if !d.EnabledIn(env) {
			if found {
				delete(active, name)
				slog.Debug("bundle retracted", "name", name, "env", env)
			}
			continue
		}

		if !found {
			active[name] = d
			continue
		}

		merged, err := descriptor.Merge(existing, d)
		if err != nil {
			return nil, err
		}
		active[name] = merged
	}

	return active, nil
}

// supersedeMap maps every superseded name to its replacement. The last
// declaration wins when several descriptors supersede the same name.
func (r *Resolver) supersedeMap() map[string]string {
	replace := make(map[string]string)
	for _, d := range r.descriptors {
		for _, old := range d.Supersedes() {
			replace[old] = d.Name()
		}
	}
	return replace
}

// loadOrderGraph builds the requirement graph over every declared name that is
// not itself superseded. Keys are inserted in the pre-sort order so the sort
// result does not depend on discovery order.
func (r *Resolver) loadOrderGraph(replace map[string]string) *dag.Graph {
	loadAfter := make(map[string][]string, len(r.descriptors))
	for _, d := range r.descriptors {
		loadAfter[d.Name()] = append(loadAfter[d.Name()], d.LoadAfter()...)
	}

	names := slices.Collect(maps.Keys(loadAfter))
	slices.SortFunc(names, r.keyOrder)

	g := dag.New()
	for _, name := range names {
		if replacement, ok := replace[name]; ok {
			slog.Debug("bundle superseded", "name", name, "by", replacement)
			continue
		}

		requires := make([]string, 0, len(loadAfter[name]))
		for _, after := range loadAfter[name] {
			target := after
			if replacement, ok := replace[after]; ok {
				target = replacement
			}
			if target == name {
				slog.Warn("bundle loads after a name it supersedes", "name", name, "load_after", after)
			}
			requires = append(requires, target)
		}
		g.AddNode(name, requires...)
	}

	return g
}

// hashOrder orders names by the xxhash64 of their bytes, then by name.
func hashOrder(a, b string) int {
	if c := cmp.Compare(xxhash.Sum64String(a), xxhash.Sum64String(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}
