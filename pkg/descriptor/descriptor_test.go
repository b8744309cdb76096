// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"slices"
	"testing"
)

func mustBundle(t *testing.T, name string, opts ...Option) Descriptor {
	t.Helper()
	d, err := NewBundle(name, opts...)
	if err != nil {
		t.Fatalf("NewBundle(%q) failed: %v", name, err)
	}
	return d
}

func TestNewBundle_Defaults(t *testing.T) {
	t.Parallel()

	d := mustBundle(t, "foobar")

	if d.Name() != "foobar" {
		t.Errorf("Name() = %q, want %q", d.Name(), "foobar")
	}
	if d.Kind() != KindBundle {
		t.Errorf("Kind() = %q, want %q", d.Kind(), KindBundle)
	}
	if len(d.Supersedes()) != 0 {
		t.Errorf("Supersedes() = %v, want empty", d.Supersedes())
	}
	if len(d.LoadAfter()) != 0 {
		t.Errorf("LoadAfter() = %v, want empty", d.LoadAfter())
	}
	if !d.EnabledInProduction() || !d.EnabledInDevelopment() {
		t.Errorf("expected enabled in both environments, got prod=%t dev=%t", d.EnabledInProduction(), d.EnabledInDevelopment())
	}
	if d.IsZero() {
		t.Error("constructed descriptor must not be zero")
	}
}

func TestNewBundle_SortsAndDeduplicates(t *testing.T) {
	t.Parallel()

	d := mustBundle(t, "foobar",
		WithSupersedes("zeta", "alpha", "zeta"),
		WithLoadAfter("core", "b", "a", "b"),
	)

	if got := d.Supersedes(); !slices.Equal(got, []string{"alpha", "zeta"}) {
		t.Errorf("Supersedes() = %v, want [alpha zeta]", got)
	}
	if got := d.LoadAfter(); !slices.Equal(got, []string{"a", "b", "core"}) {
		t.Errorf("LoadAfter() = %v, want [a b core]", got)
	}
}

func TestNewBundle_EnvironmentFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		wantProd bool
		wantDev  bool
	}{
		{name: "defaults", wantProd: true, wantDev: true},
		{name: "development only", opts: []Option{WithProduction(false)}, wantProd: false, wantDev: true},
		{name: "production only", opts: []Option{WithDevelopment(false)}, wantProd: true, wantDev: false},
		{name: "disabled everywhere", opts: []Option{WithProduction(false), WithDevelopment(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := mustBundle(t, "foobar", tt.opts...)
			if d.EnabledIn(EnvironmentProduction) != tt.wantProd {
				t.Errorf("EnabledIn(prod) = %t, want %t", d.EnabledIn(EnvironmentProduction), tt.wantProd)
			}
			if d.EnabledIn(EnvironmentDevelopment) != tt.wantDev {
				t.Errorf("EnabledIn(dev) = %t, want %t", d.EnabledIn(EnvironmentDevelopment), tt.wantDev)
			}
		})
	}
}

func TestNewBundle_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bundle  string
		opts    []Option
		wantErr error
	}{
		{name: "empty name", bundle: "", wantErr: ErrInvalidName},
		{name: "whitespace name", bundle: "  \t", wantErr: ErrInvalidName},
		{name: "blank supersedes entry", bundle: "a", opts: []Option{WithSupersedes("")}, wantErr: ErrInvalidName},
		{name: "blank load-after entry", bundle: "a", opts: []Option{WithLoadAfter("b", " ")}, wantErr: ErrInvalidName},
		{name: "supersedes itself", bundle: "a", opts: []Option{WithSupersedes("a")}, wantErr: ErrSelfReference},
		{name: "loads after itself", bundle: "a", opts: []Option{WithLoadAfter("a")}, wantErr: ErrSelfReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewBundle(tt.bundle, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewBundle() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSelfReferenceError_Message(t *testing.T) {
	t.Parallel()

	_, err := NewBundle("a", WithLoadAfter("a"))
	var selfErr *SelfReferenceError
	if !errors.As(err, &selfErr) {
		t.Fatalf("expected *SelfReferenceError, got %T: %v", err, err)
	}
	if selfErr.Field != "load_after" {
		t.Errorf("Field = %q, want load_after", selfErr.Field)
	}
	want := `descriptor "a" lists itself in load_after`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDescriptor_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	d := mustBundle(t, "foobar", WithSupersedes("a"), WithLoadAfter("b"))

	d.Supersedes()[0] = "mutated"
	d.LoadAfter()[0] = "mutated"

	if got := d.Supersedes(); got[0] != "a" {
		t.Errorf("Supersedes() was mutated: %v", got)
	}
	if got := d.LoadAfter(); got[0] != "b" {
		t.Errorf("LoadAfter() was mutated: %v", got)
	}
}

func TestDescriptor_OptionsDoNotAliasCallerSlices(t *testing.T) {
	t.Parallel()

	names := []string{"b", "a"}
	d := mustBundle(t, "foobar", WithLoadAfter(names...))
	names[0] = "mutated"

	if got := d.LoadAfter(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("LoadAfter() = %v, want [a b]", got)
	}
}

func TestDescriptor_Equal(t *testing.T) {
	t.Parallel()

	a := mustBundle(t, "x", WithLoadAfter("b", "a"))
	b := mustBundle(t, "x", WithLoadAfter("a", "b"))
	c := mustBundle(t, "x", WithLoadAfter("a"))
	legacy, err := NewLegacyModule("x", WithLoadAfter("a", "b"))
	if err != nil {
		t.Fatalf("NewLegacyModule failed: %v", err)
	}

	if !a.Equal(b) {
		t.Error("expected descriptors with the same set in different order to be equal")
	}
	if a.Equal(c) {
		t.Error("expected descriptors with different load-after to differ")
	}
	if a.Equal(legacy) {
		t.Error("expected descriptors of different kinds to differ")
	}
}

func TestNew_ByKind(t *testing.T) {
	t.Parallel()

	bundle, err := New(KindBundle, "a")
	if err != nil || bundle.Kind() != KindBundle {
		t.Errorf("New(bundle) = %v, %v", bundle, err)
	}
	module, err := New(KindLegacyModule, "a")
	if err != nil || module.Kind() != KindLegacyModule {
		t.Errorf("New(legacy-module) = %v, %v", module, err)
	}
	if _, err := New("plugin", "a"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("New(plugin) error = %v, want ErrInvalidKind", err)
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Environment
		wantErr bool
	}{
		{input: "prod", want: EnvironmentProduction},
		{input: "production", want: EnvironmentProduction},
		{input: " PROD ", want: EnvironmentProduction},
		{input: "dev", want: EnvironmentDevelopment},
		{input: "Development", want: EnvironmentDevelopment},
		{input: "staging", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEnvironment) {
					t.Errorf("ParseEnvironment(%q) error = %v, want ErrInvalidEnvironment", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEnvironment(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseEnvironment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvironment_Validate(t *testing.T) {
	t.Parallel()

	if err := EnvironmentProduction.Validate(); err != nil {
		t.Errorf("prod: unexpected error %v", err)
	}
	if err := EnvironmentDevelopment.Validate(); err != nil {
		t.Errorf("dev: unexpected error %v", err)
	}
	err := Environment("production").Validate()
	var envErr *InvalidEnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("expected *InvalidEnvironmentError, got %T", err)
	}
	if envErr.Value != "production" {
		t.Errorf("Value = %q, want production", envErr.Value)
	}
}
