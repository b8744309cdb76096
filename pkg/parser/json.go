// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bundlekit/bundlekit/pkg/cueutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

//go:embed legacy_schema.cue
var legacySchema []byte

// ErrMissingBundleName is the sentinel error wrapped by MissingBundleNameError.
var ErrMissingBundleName = errors.New("missing bundle name")

type (
	// MissingBundleNameError is returned when a bundles.json entry has no
	// "bundle" key.
	MissingBundleNameError struct {
		File  string
		Index int
	}

	// JSONParser parses legacy bundles.json files. Each array entry is either
	// a bundle name or an object with "bundle", "replace", "development",
	// "load-after" and "optional" keys.
	JSONParser struct {
		available   func(name string) bool
		maxFileSize int64
	}

	// JSONOption configures a JSONParser.
	JSONOption func(*JSONParser)

	legacyEntry struct {
		Bundle      string   `json:"bundle"`
		Replace     []string `json:"replace"`
		Development *bool    `json:"development"`
		LoadAfter   []string `json:"load-after"`
		Optional    bool     `json:"optional"`
	}
)

func (e *MissingBundleNameError) Error() string {
	return fmt.Sprintf("%s: entry %d: missing bundle name", e.File, e.Index)
}

// Unwrap returns ErrMissingBundleName for errors.Is() compatibility.
func (e *MissingBundleNameError) Unwrap() error { return ErrMissingBundleName }

// NewJSONParser creates a JSONParser.
func NewJSONParser(opts ...JSONOption) *JSONParser {
	p := &JSONParser{maxFileSize: cueutil.DefaultMaxFileSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAvailability sets the check for entries marked optional. Optional
// entries whose bundle is not available are skipped. Without a check every
// optional entry is kept.
func WithAvailability(available func(name string) bool) JSONOption {
	return func(p *JSONParser) {
		p.available = available
	}
}

// Supports reports whether resource is a .json file or typ is TypeJSON.
func (p *JSONParser) Supports(resource string, typ Type) bool {
	if typ != TypeAuto {
		return typ == TypeJSON
	}
	return strings.EqualFold(filepath.Ext(resource), ".json")
}

// Parse reads the bundles.json file at resource.
func (p *JSONParser) Parse(ctx context.Context, resource string, _ Type) ([]descriptor.Descriptor, error) {
	slog.Warn("bundles.json files are deprecated, declare bundles in a manifest instead", "file", resource)

	data, err := cueutil.ReadFile(ctx, resource, p.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("%s is not a readable file: %w", resource, err)
	}

	result, err := cueutil.ParseAndDecode[[]any](legacySchema, data, "#Bundles",
		cueutil.WithEncoding(cueutil.EncodingJSON),
		cueutil.WithFilename(resource),
	)
	if err != nil {
		return nil, fmt.Errorf("file %s cannot be decoded: %w", resource, err)
	}

	list, err := result.Unified.List()
	if err != nil {
		return nil, cueutil.FormatError(err, resource)
	}

	var out []descriptor.Descriptor
	for i := 0; list.Next(); i++ {
		var entry legacyEntry
		value := list.Value()
		if name, err := value.String(); err == nil {
			entry.Bundle = name
		} else if err := value.Decode(&entry); err != nil {
			return nil, cueutil.FormatError(err, resource)
		}

		if entry.Bundle == "" {
			return nil, &MissingBundleNameError{File: resource, Index: i}
		}
		if entry.Optional && p.available != nil && !p.available(entry.Bundle) {
			slog.Debug("skipping unavailable optional bundle", "bundle", entry.Bundle, "file", resource)
			continue
		}

		d, err := entry.descriptor()
		if err != nil {
			return nil, &cueutil.ValidationError{
				FilePath: resource,
				CUEPath:  cueutil.FieldPath(i),
				Message:  err.Error(),
				Err:      err,
			}
		}
		out = append(out, d)
	}

	return out, nil
}

func (e legacyEntry) descriptor() (descriptor.Descriptor, error) {
	var opts []descriptor.Option
	if len(e.Replace) > 0 {
		opts = append(opts, descriptor.WithSupersedes(e.Replace...))
	}
	if e.Development != nil {
		if *e.Development {
			opts = append(opts, descriptor.WithProduction(false))
		} else {
			opts = append(opts, descriptor.WithDevelopment(false))
		}
	}
	if len(e.LoadAfter) > 0 {
		opts = append(opts, descriptor.WithLoadAfter(e.LoadAfter...))
	}
	return descriptor.NewBundle(e.Bundle, opts...)
}
