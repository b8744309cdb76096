// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"

	"github.com/bundlekit/bundlekit/pkg/cueutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	// Manifest is the document shape shared by CUE, YAML and TOML manifests.
	Manifest struct {
		Bundles []ManifestBundle `json:"bundles" yaml:"bundles" toml:"bundles"`
	}

	// ManifestBundle declares one descriptor. Nil enablement flags default
	// to true. A nil LoadAfter keeps the derived order of legacy modules.
	ManifestBundle struct {
		Name        string   `json:"name" yaml:"name" toml:"name"`
		Kind        string   `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
		Supersedes  []string `json:"supersedes,omitempty" yaml:"supersedes,omitempty" toml:"supersedes,omitempty"`
		LoadAfter   []string `json:"load_after,omitempty" yaml:"load_after,omitempty" toml:"load_after,omitempty"`
		Production  *bool    `json:"production,omitempty" yaml:"production,omitempty" toml:"production,omitempty"`
		Development *bool    `json:"development,omitempty" yaml:"development,omitempty" toml:"development,omitempty"`
	}

	// ManifestParser parses CUE, YAML and TOML bundle manifests.
	ManifestParser struct {
		maxFileSize int64
	}

	// ManifestOption configures a ManifestParser.
	ManifestOption func(*ManifestParser)
)

// NewManifestParser creates a ManifestParser.
func NewManifestParser(opts ...ManifestOption) *ManifestParser {
	p := &ManifestParser{maxFileSize: cueutil.DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithManifestMaxFileSize limits the size of manifest files.
func WithManifestMaxFileSize(size int64) ManifestOption {
	return func(p *ManifestParser) {
		p.maxFileSize = size
	}
}

// Supports reports whether resource is a manifest, by explicit type or by
// file extension.
func (p *ManifestParser) Supports(resource string, typ Type) bool {
	if typ == TypeAuto {
		typ = DetectType(resource)
	}
	switch typ {
	case TypeCUE, TypeYAML, TypeTOML:
		return true
	default:
		return false
	}
}

// Parse reads the manifest file at resource.
func (p *ManifestParser) Parse(ctx context.Context, resource string, typ Type) ([]descriptor.Descriptor, error) {
	if typ == TypeAuto {
		typ = DetectType(resource)
	}
	if !p.Supports(resource, typ) {
		return nil, &UnsupportedResourceError{Resource: resource, Type: typ}
	}

	data, err := cueutil.ReadFile(ctx, resource, p.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := DecodeManifest(data, typ, resource)
	if err != nil {
		return nil, err
	}
	return m.Descriptors(resource)
}

// DecodeManifest decodes and validates manifest data. YAML and TOML documents
// are decoded strictly, then validated against the same schema as CUE.
func DecodeManifest(data []byte, typ Type, filename string) (*Manifest, error) {
	src := data

	switch typ {
	case TypeCUE:
	case TypeYAML, TypeTOML:
		var m Manifest
		if err := decodeStrict(data, typ, &m); err != nil {
			return nil, cueutil.FormatError(err, filename)
		}
		if m.Bundles == nil {
			m.Bundles = []ManifestBundle{}
		}
		encoded, err := cueutil.Encode(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		src = encoded
	default:
		return nil, &UnsupportedResourceError{Resource: filename, Type: typ}
	}

	result, err := cueutil.ParseAndDecode[Manifest](manifestSchema, src, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func decodeStrict(data []byte, typ Type, m *Manifest) error {
	switch typ {
	case TypeYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case TypeTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err := dec.Decode(m)
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown fields:\n%s", strict.String())
		}
		return err
	default:
		return &UnsupportedResourceError{Type: typ}
	}
}

// Descriptors converts the manifest entries in order. filename locates
// errors.
func (m *Manifest) Descriptors(filename string) ([]descriptor.Descriptor, error) {
	out := make([]descriptor.Descriptor, 0, len(m.Bundles))
	for i, b := range m.Bundles {
		d, err := b.Descriptor()
		if err != nil {
			return nil, &cueutil.ValidationError{
				FilePath: filename,
				CUEPath:  cueutil.FieldPath("bundles", i),
				Message:  err.Error(),
				Err:      err,
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// Descriptor builds the descriptor this entry declares.
func (b ManifestBundle) Descriptor() (descriptor.Descriptor, error) {
	kind := descriptor.Kind(b.Kind)
	if kind == "" {
		kind = descriptor.KindBundle
	}

	var opts []descriptor.Option
	if len(b.Supersedes) > 0 {
		opts = append(opts, descriptor.WithSupersedes(b.Supersedes...))
	}
	if b.LoadAfter != nil {
		opts = append(opts, descriptor.WithLoadAfter(b.LoadAfter...))
	}
	if b.Production != nil {
		opts = append(opts, descriptor.WithProduction(*b.Production))
	}
	if b.Development != nil {
		opts = append(opts, descriptor.WithDevelopment(*b.Development))
	}

	return descriptor.New(kind, b.Name, opts...)
}

// ManifestFrom renders descriptors as a manifest. Every field is explicit, so
// decoding the result yields equal descriptors.
func ManifestFrom(ds []descriptor.Descriptor) Manifest {
	m := Manifest{Bundles: make([]ManifestBundle, 0, len(ds))}
	for _, d := range ds {
		production, development := d.EnabledInProduction(), d.EnabledInDevelopment()
		m.Bundles = append(m.Bundles, ManifestBundle{
			Name:        d.Name(),
			Kind:        d.Kind().String(),
			Supersedes:  d.Supersedes(),
			LoadAfter:   d.LoadAfter(),
			Production:  &production,
			Development: &development,
		})
	}
	return m
}

// Marshal encodes the manifest as typ.
func (m Manifest) Marshal(typ Type) ([]byte, error) {
	switch typ {
	case TypeCUE:
		return cueutil.Encode(m)
	case TypeYAML:
		return yaml.Marshal(m)
	case TypeTOML:
		return toml.Marshal(m)
	default:
		return nil, &InvalidTypeError{Value: typ}
	}
}
