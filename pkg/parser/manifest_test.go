// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bundlekit/bundlekit/internal/testutil"
	"github.com/bundlekit/bundlekit/pkg/cueutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

const cueManifest = `
bundles: [
	{name: "CoreBundle", supersedes: ["core"]},
	{name: "NewsBundle", supersedes: ["news"], load_after: ["CoreBundle"]},
	{name: "DebugBundle", production: false},
	{name: "custom", kind: "legacy-module"},
]
`

const yamlManifest = `
bundles:
  - name: CoreBundle
    supersedes: [core]
  - name: NewsBundle
    supersedes: [news]
    load_after: [CoreBundle]
  - name: DebugBundle
    production: false
  - name: custom
    kind: legacy-module
`

const tomlManifest = `
[[bundles]]
name = "CoreBundle"
supersedes = ["core"]

[[bundles]]
name = "NewsBundle"
supersedes = ["news"]
load_after = ["CoreBundle"]

[[bundles]]
name = "DebugBundle"
production = false

[[bundles]]
name = "custom"
kind = "legacy-module"
`

func TestManifestParser_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		content string
	}{
		{file: "bundles.cue", content: cueManifest},
		{file: "bundles.yaml", content: yamlManifest},
		{file: "bundles.yml", content: yamlManifest},
		{file: "bundles.toml", content: tomlManifest},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.file)
			testutil.MustWriteFile(t, path, tt.content)

			p := NewManifestParser()
			if !p.Supports(path, TypeAuto) {
				t.Fatalf("Supports(%q) = false", path)
			}
			ds, err := p.Parse(t.Context(), path, TypeAuto)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			if len(ds) != 4 {
				t.Fatalf("Parse() returned %d descriptors, want 4", len(ds))
			}

			names := make([]string, 0, len(ds))
			for _, d := range ds {
				names = append(names, d.Name())
			}
			if !slices.Equal(names, []string{"CoreBundle", "NewsBundle", "DebugBundle", "custom"}) {
				t.Errorf("names = %v, want declaration order", names)
			}

			if got := ds[1].LoadAfter(); !slices.Equal(got, []string{"CoreBundle"}) {
				t.Errorf("NewsBundle LoadAfter() = %v", got)
			}
			if got := ds[0].Supersedes(); !slices.Equal(got, []string{"core"}) {
				t.Errorf("CoreBundle Supersedes() = %v", got)
			}
			if ds[2].EnabledInProduction() || !ds[2].EnabledInDevelopment() {
				t.Errorf("DebugBundle enablement = prod %t dev %t", ds[2].EnabledInProduction(), ds[2].EnabledInDevelopment())
			}
			if ds[3].Kind() != descriptor.KindLegacyModule {
				t.Errorf("custom Kind() = %q, want legacy-module", ds[3].Kind())
			}
			if !slices.Contains(ds[3].LoadAfter(), "core") {
				t.Errorf("custom LoadAfter() = %v, want derived legacy order", ds[3].LoadAfter())
			}
		})
	}
}

func TestManifestParser_ExplicitTypeOverridesExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundles.conf")
	testutil.MustWriteFile(t, path, yamlManifest)

	p := NewManifestParser()
	if p.Supports(path, TypeAuto) {
		t.Error("Supports() should not detect .conf")
	}
	ds, err := p.Parse(t.Context(), path, TypeYAML)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(ds) != 4 {
		t.Errorf("Parse() returned %d descriptors, want 4", len(ds))
	}
}

func TestManifestParser_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unknown kind",
			file:    "bundles.cue",
			content: `bundles: [{name: "a", kind: "plugin"}]`,
			wantErr: "bundles[0].kind",
		},
		{
			name:    "blank name",
			file:    "bundles.cue",
			content: `bundles: [{name: "  "}]`,
			wantErr: "bundles[0].name",
		},
		{
			name:    "unknown field in CUE",
			file:    "bundles.cue",
			content: `bundles: [{name: "a", replace: ["b"]}]`,
			wantErr: "replace",
		},
		{
			name:    "unknown field in YAML",
			file:    "bundles.yaml",
			content: "bundles:\n  - name: a\n    replace: [b]\n",
			wantErr: "replace",
		},
		{
			name:    "unknown field in TOML",
			file:    "bundles.toml",
			content: "[[bundles]]\nname = \"a\"\nreplace = [\"b\"]\n",
			wantErr: "replace",
		},
		{
			name:    "invalid YAML kind",
			file:    "bundles.yaml",
			content: "bundles:\n  - name: a\n    kind: plugin\n",
			wantErr: "kind",
		},
		{
			name:    "syntax error",
			file:    "bundles.cue",
			content: `bundles: [{name: "a"`,
			wantErr: "bundles.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.file)
			testutil.MustWriteFile(t, path, tt.content)

			_, err := NewManifestParser().Parse(t.Context(), path, TypeAuto)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestManifestParser_SelfReferenceIsLocated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundles.cue")
	testutil.MustWriteFile(t, path, `bundles: [{name: "ok"}, {name: "a", load_after: ["a"]}]`)

	_, err := NewManifestParser().Parse(t.Context(), path, TypeAuto)
	if !errors.Is(err, descriptor.ErrSelfReference) {
		t.Fatalf("Parse() error = %v, want ErrSelfReference", err)
	}
	var validation *cueutil.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *cueutil.ValidationError, got %T", err)
	}
	if validation.CUEPath != "bundles[1]" {
		t.Errorf("CUEPath = %q, want bundles[1]", validation.CUEPath)
	}
}

func TestManifestParser_EmptyDocuments(t *testing.T) {
	t.Parallel()

	for _, file := range []string{"bundles.yaml", "bundles.toml"} {
		path := filepath.Join(t.TempDir(), file)
		testutil.MustWriteFile(t, path, "")

		ds, err := NewManifestParser().Parse(t.Context(), path, TypeAuto)
		if err != nil {
			t.Errorf("%s: Parse() failed: %v", file, err)
		}
		if len(ds) != 0 {
			t.Errorf("%s: Parse() = %v, want none", file, ds)
		}
	}
}

func TestManifestParser_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewManifestParser().Parse(t.Context(), filepath.Join(t.TempDir(), "missing.cue"), TypeAuto)
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManifestParser_MaxFileSize(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundles.cue")
	testutil.MustWriteFile(t, path, cueManifest)

	_, err := NewManifestParser(WithManifestMaxFileSize(8)).Parse(t.Context(), path, TypeAuto)
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestManifest_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bundles.cue")
	testutil.MustWriteFile(t, path, cueManifest)
	want, err := NewManifestParser().Parse(t.Context(), path, TypeAuto)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	for _, typ := range []Type{TypeCUE, TypeYAML, TypeTOML} {
		t.Run(typ.String(), func(t *testing.T) {
			t.Parallel()

			data, err := ManifestFrom(want).Marshal(typ)
			if err != nil {
				t.Fatalf("Marshal(%s) failed: %v", typ, err)
			}
			m, err := DecodeManifest(data, typ, "out."+typ.String())
			if err != nil {
				t.Fatalf("DecodeManifest(%s) failed: %v\n%s", typ, err, data)
			}
			got, err := m.Descriptors("out")
			if err != nil {
				t.Fatalf("Descriptors() failed: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("got %d descriptors, want %d", len(got), len(want))
			}
			for i := range want {
				if !got[i].Equal(want[i]) {
					t.Errorf("descriptor %d = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestManifest_MarshalRejectsLegacyTypes(t *testing.T) {
	t.Parallel()

	if _, err := (Manifest{}).Marshal(TypeINI); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Marshal(ini) error = %v, want ErrInvalidType", err)
	}
}
