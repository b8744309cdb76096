// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `
#Entry: {
	name:        string & =~"^\\S+$"
	load_after?: [...string]
	production:  bool | *true
}
`

type testEntry struct {
	Name       string   `json:"name"`
	LoadAfter  []string `json:"load_after,omitempty"`
	Production bool     `json:"production"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid CUE parses with defaults", func(t *testing.T) {
		t.Parallel()

		result, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`name: "news"
load_after: ["core"]
`), "#Entry")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}
		if result.Value.Name != "news" {
			t.Errorf("Name = %q, want news", result.Value.Name)
		}
		if len(result.Value.LoadAfter) != 1 || result.Value.LoadAfter[0] != "core" {
			t.Errorf("LoadAfter = %v, want [core]", result.Value.LoadAfter)
		}
		if !result.Value.Production {
			t.Error("Production should default to true")
		}
		if !result.Unified.Exists() {
			t.Error("Unified value should exist")
		}
	})

	t.Run("JSON encoding", func(t *testing.T) {
		t.Parallel()

		result, err := ParseAndDecode[testEntry]([]byte(testSchema),
			[]byte(`{"name": "news", "production": false}`), "#Entry",
			WithEncoding(EncodingJSON), WithFilename("bundles.json"))
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}
		if result.Value.Production {
			t.Error("Production should be false")
		}
	})

	t.Run("invalid JSON reports filename", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`{"name": `), "#Entry",
			WithEncoding(EncodingJSON), WithFilename("bundles.json"))
		if err == nil || !strings.Contains(err.Error(), "bundles.json") {
			t.Errorf("expected error mentioning bundles.json, got %v", err)
		}
	})

	t.Run("schema violation includes path", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`name: "has space"`), "#Entry",
			WithFilename("bundles.cue"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "bundles.cue") || !strings.Contains(err.Error(), "name") {
			t.Errorf("error should name file and field, got: %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`production: true`), "#Entry"); err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("non-concrete allowed with WithConcrete(false)", func(t *testing.T) {
		t.Parallel()

		schema := `#Loose: { name?: string }`
		if _, err := ParseAndDecodeString[struct {
			Name string `json:"name,omitempty"`
		}](schema, []byte(``), "#Loose", WithConcrete(false)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("file size limit", func(t *testing.T) {
		t.Parallel()

		data := []byte(`name: "` + strings.Repeat("x", 64) + `"`)
		_, err := ParseAndDecode[testEntry]([]byte(testSchema), data, "#Entry", WithMaxFileSize(16))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("expected size error, got %v", err)
		}
	})

	t.Run("unknown schema definition", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[testEntry]([]byte(testSchema), []byte(`name: "a"`), "#Missing")
		if err == nil || !strings.Contains(err.Error(), "#Missing") {
			t.Errorf("expected missing definition error, got %v", err)
		}
	})
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bundles.cue")
	if err := os.WriteFile(path, []byte(`name: "a"`), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := ReadFile(t.Context(), path, DefaultMaxFileSize)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `name: "a"` {
		t.Errorf("ReadFile() = %q", data)
	}

	if _, err := ReadFile(t.Context(), path, 2); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := ReadFile(t.Context(), dir, DefaultMaxFileSize); err == nil {
		t.Error("expected error reading a directory")
	}
	if _, err := ReadFile(t.Context(), filepath.Join(dir, "missing.cue"), DefaultMaxFileSize); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	out, err := Encode(testEntry{Name: "news", LoadAfter: []string{"core"}, Production: true})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	result, err := ParseAndDecode[testEntry]([]byte(testSchema), out, "#Entry")
	if err != nil {
		t.Fatalf("encoded output does not parse: %v\n%s", err, out)
	}
	if result.Value.Name != "news" || result.Value.LoadAfter[0] != "core" {
		t.Errorf("decoded %+v", result.Value)
	}
}
