// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestCatalog_Complete(t *testing.T) {
	t.Parallel()

	ids := []Id{
		MergeConflictId,
		DependencyCycleId,
		ManifestParseFailedId,
		ConfigLoadFailedId,
		CacheWriteFailedId,
		InvalidEnvironmentId,
	}

	if MergeConflictId != 1 {
		t.Errorf("MergeConflictId = %d, want 1", MergeConflictId)
	}
	for _, id := range ids {
		i := Get(id)
		if i == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if i.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, i.Id())
		}
		if strings.TrimSpace(string(i.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", id)
		}
	}

	values := Values()
	if len(values) != len(ids) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(ids))
	}
	for n, i := range values {
		if i.Id() != ids[n] {
			t.Errorf("Values()[%d].Id() = %d, want %d", n, i.Id(), ids[n])
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if Get(0) != nil || Get(999) != nil {
		t.Error("expected nil for unknown ids")
	}
}

func TestIssue_ExtLinksReturnsCopy(t *testing.T) {
	t.Parallel()

	i := Get(ConfigLoadFailedId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "modified"
	if i.ExtLinks()[0] == "modified" {
		t.Error("ExtLinks() exposes internal slice")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(DependencyCycleId).Render("notty")
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if !strings.Contains(out, "cannot be ordered") {
		t.Errorf("Render() output missing title:\n%s", out)
	}

	out, err = Get(ManifestParseFailedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "cuelang.org") {
		t.Errorf("Render() output missing links:\n%s", out)
	}
}
