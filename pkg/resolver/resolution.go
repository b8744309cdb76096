// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

// ErrDuplicateName is the sentinel error wrapped by DuplicateNameError.
var ErrDuplicateName = errors.New("duplicate descriptor name")

type (
	// DuplicateNameError is returned by NewResolution when two descriptors
	// share a name.
	DuplicateNameError struct {
		Name string
	}

	// Resolution is the ordered result of a resolve: surviving names mapped to
	// their winning descriptor, in load order. A Resolution is read-only.
	Resolution struct {
		names  []string
		byName map[string]descriptor.Descriptor
	}
)

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate descriptor name %q", e.Name)
}

// Unwrap returns ErrDuplicateName for errors.Is() compatibility.
func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// NewResolution builds a Resolution from descriptors already in load order,
// for example when restoring a persisted snapshot.
func NewResolution(ds ...descriptor.Descriptor) (*Resolution, error) {
	r := newResolution(len(ds))
	for _, d := range ds {
		if r.Has(d.Name()) {
			return nil, &DuplicateNameError{Name: d.Name()}
		}
		r.append(d)
	}
	return r, nil
}

func newResolution(capacity int) *Resolution {
	return &Resolution{
		names:  make([]string, 0, capacity),
		byName: make(map[string]descriptor.Descriptor, capacity),
	}
}

func (r *Resolution) append(d descriptor.Descriptor) {
	r.names = append(r.names, d.Name())
	r.byName[d.Name()] = d
}

// Len returns the number of resolved descriptors.
func (r *Resolution) Len() int {
	return len(r.names)
}

// Names returns the resolved names in load order.
func (r *Resolution) Names() []string {
	return slices.Clone(r.names)
}

// Get returns the descriptor resolved for name.
func (r *Resolution) Get(name string) (descriptor.Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Has reports whether name was resolved.
func (r *Resolution) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Descriptors returns the resolved descriptors in load order.
func (r *Resolution) Descriptors() []descriptor.Descriptor {
	out := make([]descriptor.Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// All iterates over name/descriptor pairs in load order.
func (r *Resolution) All() iter.Seq2[string, descriptor.Descriptor] {
	return func(yield func(string, descriptor.Descriptor) bool) {
		for _, name := range r.names {
			if !yield(name, r.byName[name]) {
				return
			}
		}
	}
}

// Equal reports whether both resolutions hold equal descriptors in the same
// order.
func (r *Resolution) Equal(other *Resolution) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !slices.Equal(r.names, other.names) {
		return false
	}
	for _, name := range r.names {
		if !r.byName[name].Equal(other.byName[name]) {
			return false
		}
	}
	return true
}
