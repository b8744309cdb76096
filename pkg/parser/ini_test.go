// SPDX-License-Identifier: MPL-2.0

package parser

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/bundlekit/bundlekit/internal/testutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
)

// modulesFixture lays out a legacy modules directory:
//
//	with-requires     requires core, *news (installed), without-ini, *calendar (missing)
//	with-section      [requires] section listing core
//	recursion1/2      require each other
//	without-ini       no config/autoload.ini
//	without-requires  autoload.ini without requires
//	broken-ini        unparsable autoload.ini
func modulesFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(module, content string) {
		testutil.MustWriteFile(t, filepath.Join(dir, module, "config", "autoload.ini"), content)
	}

	write("with-requires", `
requires[] = "core"
requires[] = "*news"
requires[] = "without-ini"
requires[] = "*calendar"
`)
	write("with-section", `
[requires]
0 = "core"
`)
	write("recursion1", "requires[] = recursion2\n")
	write("recursion2", "requires[] = recursion1\n")
	write("without-requires", "; nothing to require\n[other]\nkey = value\n")
	write("broken-ini", "[requires\nfoo\n")
	write("core", "")
	write("news", "")
	testutil.MustMkdirAll(t, filepath.Join(dir, "without-ini"), 0o755)

	return dir
}

func names(ds []descriptor.Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name())
	}
	return out
}

func TestINIParser_Supports(t *testing.T) {
	t.Parallel()

	p := NewINIParser(modulesFixture(t))
	if !p.Supports("foobar", TypeINI) {
		t.Error("expected explicit ini type to be supported")
	}
	if !p.Supports("with-requires", TypeAuto) {
		t.Error("expected existing module directory to be supported")
	}
	if p.Supports("foobar", TypeAuto) {
		t.Error("expected missing module directory to be unsupported")
	}
}

func TestINIParser_Requires(t *testing.T) {
	t.Parallel()

	ds, err := NewINIParser(modulesFixture(t)).Parse(t.Context(), "with-requires", TypeAuto)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got := names(ds); !slices.Equal(got, []string{"with-requires", "core", "news", "without-ini"}) {
		t.Fatalf("names = %v", got)
	}

	first := ds[0]
	if first.Kind() != descriptor.KindLegacyModule {
		t.Errorf("Kind() = %q, want legacy-module", first.Kind())
	}
	if len(first.Supersedes()) != 0 {
		t.Errorf("Supersedes() = %v, want empty", first.Supersedes())
	}
	if got := first.LoadAfter(); !slices.Equal(got, []string{"calendar", "core", "news", "without-ini"}) {
		t.Errorf("LoadAfter() = %v", got)
	}
	if !first.EnabledInProduction() || !first.EnabledInDevelopment() {
		t.Error("expected enabled in both environments")
	}
}

func TestINIParser_RequiresSection(t *testing.T) {
	t.Parallel()

	ds, err := NewINIParser(modulesFixture(t)).Parse(t.Context(), "with-section", TypeAuto)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got := names(ds); !slices.Equal(got, []string{"with-section", "core"}) {
		t.Fatalf("names = %v", got)
	}
	if got := ds[0].LoadAfter(); !slices.Equal(got, []string{"core"}) {
		t.Errorf("LoadAfter() = %v, want [core]", got)
	}
}

func TestINIParser_Recursion(t *testing.T) {
	t.Parallel()

	ds, err := NewINIParser(modulesFixture(t)).Parse(t.Context(), "recursion1", TypeAuto)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("Parse() returned %v, want 2 descriptors", names(ds))
	}
	if got := ds[0].LoadAfter(); !slices.Equal(got, []string{"recursion2"}) {
		t.Errorf("recursion1 LoadAfter() = %v", got)
	}
	if got := ds[1].LoadAfter(); !slices.Equal(got, []string{"recursion1"}) {
		t.Errorf("recursion2 LoadAfter() = %v", got)
	}
}

func TestINIParser_DefaultLegacyOrder(t *testing.T) {
	t.Parallel()

	for _, module := range []string{"without-ini", "without-requires", "foobar"} {
		t.Run(module, func(t *testing.T) {
			t.Parallel()

			ds, err := NewINIParser(modulesFixture(t)).Parse(t.Context(), module, TypeINI)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			if len(ds) != 1 || ds[0].Name() != module {
				t.Fatalf("Parse() = %v, want only %s", names(ds), module)
			}
			if len(ds[0].LoadAfter()) == 0 {
				t.Error("expected derived legacy load-after set")
			}
		})
	}
}

func TestINIParser_BrokenFile(t *testing.T) {
	t.Parallel()

	if _, err := NewINIParser(modulesFixture(t)).Parse(t.Context(), "broken-ini", TypeAuto); err == nil {
		t.Error("expected error for broken autoload.ini")
	}
}

func TestINIParser_ParsesEachModuleOnce(t *testing.T) {
	t.Parallel()

	p := NewINIParser(modulesFixture(t))
	if _, err := p.Parse(t.Context(), "with-requires", TypeAuto); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	ds, err := p.Parse(t.Context(), "with-section", TypeAuto)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got := names(ds); !slices.Equal(got, []string{"with-section"}) {
		t.Errorf("names = %v, want core skipped as already loaded", got)
	}
}

func TestINIParser_ConcurrentParse(t *testing.T) {
	t.Parallel()

	p := NewINIParser(modulesFixture(t))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total []string
	)
	for _, module := range []string{"with-requires", "with-section", "recursion1"} {
		wg.Go(func() {
			ds, err := p.Parse(t.Context(), module, TypeAuto)
			if err != nil {
				t.Errorf("Parse(%s) failed: %v", module, err)
				return
			}
			mu.Lock()
			total = append(total, names(ds)...)
			mu.Unlock()
		})
	}
	wg.Wait()

	slices.Sort(total)
	if len(slices.Compact(slices.Clone(total))) != len(total) {
		t.Errorf("a module was parsed twice: %v", total)
	}
}

func TestINIParser_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := NewINIParser(modulesFixture(t)).Parse(ctx, "with-requires", TypeAuto); err == nil {
		t.Error("expected error for cancelled context")
	}
}
