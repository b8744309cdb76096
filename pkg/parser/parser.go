// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

const (
	// TypeAuto lets parsers detect the type from the resource.
	TypeAuto Type = ""
	// TypeCUE is a CUE bundle manifest.
	TypeCUE Type = "cue"
	// TypeYAML is a YAML bundle manifest.
	TypeYAML Type = "yaml"
	// TypeTOML is a TOML bundle manifest.
	TypeTOML Type = "toml"
	// TypeJSON is a legacy bundles.json file.
	TypeJSON Type = "json"
	// TypeINI is a legacy module directory with an optional autoload.ini.
	TypeINI Type = "ini"
)

var (
	// ErrUnsupportedResource is the sentinel error wrapped by UnsupportedResourceError.
	ErrUnsupportedResource = errors.New("unsupported resource")

	// ErrInvalidType is the sentinel error wrapped by InvalidTypeError.
	ErrInvalidType = errors.New("invalid resource type")
)

type (
	// Type names the format of a resource. TypeAuto detects it.
	Type string

	// InvalidTypeError is returned when a Type value is not one of the defined types.
	InvalidTypeError struct {
		Value Type
	}

	// Parser produces descriptors from a resource, in declaration order.
	Parser interface {
		Parse(ctx context.Context, resource string, typ Type) ([]descriptor.Descriptor, error)
		Supports(resource string, typ Type) bool
	}

	// UnsupportedResourceError is returned when no parser supports a resource.
	UnsupportedResourceError struct {
		Resource string
		Type     Type
	}

	// Delegating hands each resource to the first parser that supports it.
	Delegating struct {
		parsers []Parser
	}
)

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid resource type %q (valid: cue, yaml, toml, json, ini)", e.Value)
}

// Unwrap returns ErrInvalidType for errors.Is() compatibility.
func (e *InvalidTypeError) Unwrap() error { return ErrInvalidType }

// Validate returns nil if the type is a defined Type or TypeAuto.
func (t Type) Validate() error {
	switch t {
	case TypeAuto, TypeCUE, TypeYAML, TypeTOML, TypeJSON, TypeINI:
		return nil
	default:
		return &InvalidTypeError{Value: t}
	}
}

// String returns the string representation of the Type.
func (t Type) String() string { return string(t) }

// DetectType returns the manifest type implied by a file extension, or
// TypeAuto when the extension is not a known manifest format.
func DetectType(resource string) Type {
	switch strings.ToLower(filepath.Ext(resource)) {
	case ".cue":
		return TypeCUE
	case ".yaml", ".yml":
		return TypeYAML
	case ".toml":
		return TypeTOML
	case ".json":
		return TypeJSON
	default:
		return TypeAuto
	}
}

func (e *UnsupportedResourceError) Error() string {
	if e.Type == TypeAuto {
		return fmt.Sprintf("cannot parse resource %q", e.Resource)
	}
	return fmt.Sprintf("cannot parse resource %q (type: %s)", e.Resource, e.Type)
}

// Unwrap returns ErrUnsupportedResource for errors.Is() compatibility.
func (e *UnsupportedResourceError) Unwrap() error { return ErrUnsupportedResource }

// NewDelegating creates a Delegating parser trying parsers in order.
func NewDelegating(parsers ...Parser) *Delegating {
	return &Delegating{parsers: parsers}
}

// Add appends a parser.
func (d *Delegating) Add(p Parser) {
	d.parsers = append(d.parsers, p)
}

// Parse parses resource with the first parser that supports it.
func (d *Delegating) Parse(ctx context.Context, resource string, typ Type) ([]descriptor.Descriptor, error) {
	for _, p := range d.parsers {
		if p.Supports(resource, typ) {
			return p.Parse(ctx, resource, typ)
		}
	}
	return nil, &UnsupportedResourceError{Resource: resource, Type: typ}
}

// Supports reports whether any parser supports resource.
func (d *Delegating) Supports(resource string, typ Type) bool {
	for _, p := range d.parsers {
		if p.Supports(resource, typ) {
			return true
		}
	}
	return false
}
