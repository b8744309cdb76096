// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMergeConflict is the sentinel error wrapped by MergeConflictError.
var ErrMergeConflict = errors.New("cannot merge configs")

// MergeConflictError is returned when two same-named descriptors of different
// kinds are both active. It wraps ErrMergeConflict for errors.Is() compatibility.
type MergeConflictError struct {
	Name     string
	Existing Kind
	Incoming Kind
}

// Error implements the error interface.
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("cannot merge configs for %q: %s and %s are different kinds", e.Name, e.Existing, e.Incoming)
}

// Unwrap returns ErrMergeConflict for errors.Is() compatibility.
func (e *MergeConflictError) Unwrap() error { return ErrMergeConflict }

// Merge combines two declarations of the same name. Identical declarations
// return existing unchanged. Declarations of the same kind merge into a new
// descriptor holding the union of both supersedes and load-after sets and
// enabled in every environment either of them is enabled in. Declarations of
// different kinds fail with MergeConflictError.
func Merge(existing, incoming Descriptor) (Descriptor, error) {
	if existing.name != incoming.name {
		return Descriptor{}, fmt.Errorf("merge %q with %q: names differ", existing.name, incoming.name)
	}
	if existing.Equal(incoming) {
		return existing, nil
	}

	switch existing.kind {
	case KindBundle, KindLegacyModule:
		if incoming.kind != existing.kind {
			return Descriptor{}, &MergeConflictError{Name: existing.name, Existing: existing.kind, Incoming: incoming.kind}
		}
	default:
		return Descriptor{}, &InvalidKindError{Value: existing.kind}
	}

	return Descriptor{
		kind:        existing.kind,
		name:        existing.name,
		supersedes:  union(existing.supersedes, incoming.supersedes),
		loadAfter:   union(existing.loadAfter, incoming.loadAfter),
		production:  existing.production || incoming.production,
		development: existing.development || incoming.development,
	}, nil
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
