// SPDX-License-Identifier: MPL-2.0

package snapshot

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bundlekit/bundlekit/pkg/cueutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/resolver"
)

// Version is the snapshot format version written by Save.
const Version = "1"

//go:embed snapshot_schema.cue
var snapshotSchema []byte

var (
	// ErrNotFound is returned by Load when the snapshot file does not exist.
	ErrNotFound = errors.New("snapshot not found")
	// ErrVersionMismatch is the sentinel error wrapped by VersionMismatchError.
	ErrVersionMismatch = errors.New("snapshot version mismatch")
)

type (
	// Snapshot is a persisted resolution for one environment.
	Snapshot struct {
		Version     string
		Generated   time.Time
		Environment descriptor.Environment
		Bundles     []Entry
	}

	// Entry is one resolved descriptor, with every field explicit.
	Entry struct {
		Name        string   `json:"name"`
		Kind        string   `json:"kind"`
		Supersedes  []string `json:"supersedes,omitempty"`
		LoadAfter   []string `json:"load_after,omitempty"`
		Production  bool     `json:"production"`
		Development bool     `json:"development"`
	}

	// VersionMismatchError is returned when a snapshot was written by a
	// different format version.
	VersionMismatchError struct {
		Path string
		Got  string
	}

	document struct {
		Version     string  `json:"version"`
		Generated   string  `json:"generated"`
		Environment string  `json:"environment"`
		Bundles     []Entry `json:"bundles"`
	}
)

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("snapshot %s has version %q, want %q", e.Path, e.Got, Version)
}

// Unwrap returns ErrVersionMismatch for errors.Is() compatibility.
func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }

// FromResolution captures res for env.
func FromResolution(env descriptor.Environment, res *resolver.Resolution) *Snapshot {
	s := &Snapshot{
		Version:     Version,
		Generated:   time.Now().UTC(),
		Environment: env,
		Bundles:     make([]Entry, 0, res.Len()),
	}
	for _, d := range res.Descriptors() {
		s.Bundles = append(s.Bundles, Entry{
			Name:        d.Name(),
			Kind:        d.Kind().String(),
			Supersedes:  d.Supersedes(),
			LoadAfter:   d.LoadAfter(),
			Production:  d.EnabledInProduction(),
			Development: d.EnabledInDevelopment(),
		})
	}
	return s
}

// Resolution rebuilds the resolution the snapshot was taken from.
func (s *Snapshot) Resolution() (*resolver.Resolution, error) {
	ds := make([]descriptor.Descriptor, 0, len(s.Bundles))
	for i, e := range s.Bundles {
		d, err := e.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("snapshot entry %d: %w", i, err)
		}
		ds = append(ds, d)
	}
	return resolver.NewResolution(ds...)
}

// Descriptor rebuilds the descriptor of the entry. The stored load-after set
// is used as is, also for legacy modules.
func (e Entry) Descriptor() (descriptor.Descriptor, error) {
	return descriptor.New(descriptor.Kind(e.Kind), e.Name,
		descriptor.WithSupersedes(e.Supersedes...),
		descriptor.WithLoadAfter(e.LoadAfter...),
		descriptor.WithProduction(e.Production),
		descriptor.WithDevelopment(e.Development),
	)
}

// Load reads the snapshot at path. A missing file returns ErrNotFound.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	data, err := cueutil.ReadFile(ctx, path, cueutil.DefaultMaxFileSize)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return Parse(data, path)
}

// Parse decodes snapshot data. path is used in error messages.
func Parse(data []byte, path string) (*Snapshot, error) {
	result, err := cueutil.ParseAndDecode[document](snapshotSchema, data, "#Snapshot", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}
	doc := result.Value

	if doc.Version != Version {
		return nil, &VersionMismatchError{Path: path, Got: doc.Version}
	}

	generated, err := time.Parse(time.RFC3339, doc.Generated)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: generated: %w", path, err)
	}

	return &Snapshot{
		Version:     doc.Version,
		Generated:   generated,
		Environment: descriptor.Environment(doc.Environment),
		Bundles:     doc.Bundles,
	}, nil
}

// Save writes the snapshot to path in CUE format. Parent directories are
// created, and the file is replaced atomically.
func (s *Snapshot) Save(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.WriteString(s.toCUE())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// Remove deletes the snapshot at path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// toCUE serializes the snapshot in load order.
func (s *Snapshot) toCUE() string {
	var sb strings.Builder

	sb.WriteString("// Generated by bundlekit. DO NOT EDIT.\n\n")

	fmt.Fprintf(&sb, "version:     %q\n", s.Version)
	fmt.Fprintf(&sb, "generated:   %q\n", s.Generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "environment: %q\n\n", s.Environment)

	if len(s.Bundles) == 0 {
		sb.WriteString("bundles: []\n")
		return sb.String()
	}

	sb.WriteString("bundles: [\n")
	for _, e := range s.Bundles {
		sb.WriteString("\t{\n")
		fmt.Fprintf(&sb, "\t\tname:        %q\n", e.Name)
		fmt.Fprintf(&sb, "\t\tkind:        %q\n", e.Kind)
		if len(e.Supersedes) > 0 {
			fmt.Fprintf(&sb, "\t\tsupersedes:  %s\n", quoteList(e.Supersedes))
		}
		if len(e.LoadAfter) > 0 {
			fmt.Fprintf(&sb, "\t\tload_after:  %s\n", quoteList(e.LoadAfter))
		}
		fmt.Fprintf(&sb, "\t\tproduction:  %t\n", e.Production)
		fmt.Fprintf(&sb, "\t\tdevelopment: %t\n", e.Development)
		sb.WriteString("\t},\n")
	}
	sb.WriteString("]\n")

	return sb.String()
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
