// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// KindBundle is a regular bundle descriptor.
	KindBundle Kind = "bundle"
	// KindLegacyModule is a legacy module descriptor whose default load
	// order is derived from the legacy module list.
	KindLegacyModule Kind = "legacy-module"
)

var (
	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid descriptor name")
	// ErrSelfReference is the sentinel error wrapped by SelfReferenceError.
	ErrSelfReference = errors.New("descriptor references itself")
	// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid descriptor kind")
)

type (
	// Kind is the closed set of descriptor variants.
	Kind string

	// Descriptor is the immutable ordering and merge metadata of a bundle.
	// Use NewBundle or NewLegacyModule to construct one; the zero value is
	// not a valid descriptor.
	Descriptor struct {
		kind        Kind
		name        string
		supersedes  []string
		loadAfter   []string
		production  bool
		development bool
	}

	// Option configures a Descriptor during construction.
	Option func(*Descriptor)

	// InvalidNameError is returned when a descriptor name, or a name listed in
	// its supersedes or load-after sets, is empty or whitespace-only.
	// It wraps ErrInvalidName for errors.Is() compatibility.
	InvalidNameError struct {
		// Field is "name", "supersedes" or "load_after".
		Field string
		Value string
	}

	// SelfReferenceError is returned when a descriptor lists its own name in
	// its supersedes or load-after set.
	// It wraps ErrSelfReference for errors.Is() compatibility.
	SelfReferenceError struct {
		Name  string
		Field string
	}

	// InvalidKindError is returned when a Kind value is not recognized.
	// It wraps ErrInvalidKind for errors.Is() compatibility.
	InvalidKindError struct {
		Value Kind
	}
)

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid descriptor %s %q: must be non-empty", e.Field, e.Value)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// Error implements the error interface.
func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("descriptor %q lists itself in %s", e.Name, e.Field)
}

// Unwrap returns ErrSelfReference for errors.Is() compatibility.
func (e *SelfReferenceError) Unwrap() error { return ErrSelfReference }

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid descriptor kind %q (valid: %s, %s)", e.Value, KindBundle, KindLegacyModule)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// Validate returns nil if the Kind is one of the known variants.
func (k Kind) Validate() error {
	switch k {
	case KindBundle, KindLegacyModule:
		return nil
	default:
		return &InvalidKindError{Value: k}
	}
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// ValidateName returns nil if name can identify a descriptor.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidNameError{Field: "name", Value: name}
	}
	return nil
}

// WithSupersedes sets the names this descriptor replaces.
func WithSupersedes(names ...string) Option {
	return func(d *Descriptor) {
		d.supersedes = slices.Clone(names)
	}
}

// WithLoadAfter sets the names that must be loaded before this descriptor.
// For legacy modules it replaces the order derived from the legacy list.
func WithLoadAfter(names ...string) Option {
	return func(d *Descriptor) {
		d.loadAfter = slices.Clone(names)
	}
}

// WithProduction sets whether the descriptor is loaded in production.
func WithProduction(enabled bool) Option {
	return func(d *Descriptor) {
		d.production = enabled
	}
}

// WithDevelopment sets whether the descriptor is loaded in development.
func WithDevelopment(enabled bool) Option {
	return func(d *Descriptor) {
		d.development = enabled
	}
}

// NewBundle creates a bundle descriptor enabled in every environment unless
// configured otherwise.
func NewBundle(name string, opts ...Option) (Descriptor, error) {
	return build(KindBundle, name, nil, opts)
}

// New creates a descriptor of the given kind. It is the generic entry point
// used by decoders that read the kind from serialized data.
func New(kind Kind, name string, opts ...Option) (Descriptor, error) {
	switch kind {
	case KindBundle:
		return NewBundle(name, opts...)
	case KindLegacyModule:
		return NewLegacyModule(name, opts...)
	default:
		return Descriptor{}, &InvalidKindError{Value: kind}
	}
}

func build(kind Kind, name string, loadAfter []string, opts []Option) (Descriptor, error) {
	if err := ValidateName(name); err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		kind:        kind,
		name:        name,
		loadAfter:   loadAfter,
		production:  true,
		development: true,
	}
	for _, opt := range opts {
		opt(&d)
	}

	var err error
	if d.supersedes, err = normalize(name, "supersedes", d.supersedes); err != nil {
		return Descriptor{}, err
	}
	if d.loadAfter, err = normalize(name, "load_after", d.loadAfter); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}

// normalize validates a name set and returns it sorted and deduplicated.
func normalize(owner, field string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, &InvalidNameError{Field: field, Value: n}
		}
		if n == owner {
			return nil, &SelfReferenceError{Name: owner, Field: field}
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Kind returns the descriptor variant.
func (d Descriptor) Kind() Kind { return d.kind }

// Name returns the unique logical name of the descriptor.
func (d Descriptor) Name() string { return d.name }

// Supersedes returns the sorted names this descriptor replaces.
func (d Descriptor) Supersedes() []string { return slices.Clone(d.supersedes) }

// LoadAfter returns the sorted names that must load before this descriptor.
func (d Descriptor) LoadAfter() []string { return slices.Clone(d.loadAfter) }

// EnabledInProduction reports whether the descriptor is loaded in production.
func (d Descriptor) EnabledInProduction() bool { return d.production }

// EnabledInDevelopment reports whether the descriptor is loaded in development.
func (d Descriptor) EnabledInDevelopment() bool { return d.development }

// EnabledIn reports whether the descriptor is loaded in env.
func (d Descriptor) EnabledIn(env Environment) bool {
	if env.IsDevelopment() {
		return d.development
	}
	return d.production
}

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool { return d.name == "" }

// Equal reports whether d and o are identical field for field.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.kind == o.kind &&
		d.name == o.name &&
		d.production == o.production &&
		d.development == o.development &&
		slices.Equal(d.supersedes, o.supersedes) &&
		slices.Equal(d.loadAfter, o.loadAfter)
}

// String returns a compact human-readable representation.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s supersedes=%v load_after=%v prod=%t dev=%t)",
		d.kind, d.name, d.supersedes, d.loadAfter, d.production, d.development)
}
