// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	MergeConflictId Id = iota + 1
	DependencyCycleId
	ManifestParseFailedId
	ConfigLoadFailedId
	CacheWriteFailedId
	InvalidEnvironmentId
)

type (
	// Id identifies a catalog entry.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a catalog entry: Markdown guidance for one kind of failure.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance for a terminal. stylePath is a glamour style
// name ("dark", "light", "notty") or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	mergeConflictIssue = &Issue{
		id: MergeConflictId,
		mdMsg: `
# Conflicting bundle declarations!

Two sources declare a bundle with the same name, but one declares it as a
bundle and the other as a legacy module. Declarations of the same name can only
be merged when they are of the same kind.

## Things you can try:
- Rename one of the bundles
- Declare both with the same ` + "`kind`" + `
- Disable one declaration for this environment:
~~~cue
bundles: [
  {name: "news", kind: "legacy-module", production: false},
]
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# The bundles cannot be ordered!

The ` + "`load_after`" + ` constraints of the bundles listed above form a cycle,
so no load order can satisfy all of them. Load-after entries naming a
superseded bundle are rewritten to its replacement, which can close a cycle
that is not visible in the manifests.

## Things you can try:
- Remove one of the ` + "`load_after`" + ` entries of the cycle
- Check whether a bundle loads after a name it supersedes
- Print the declarations that take part:
~~~
$ bundlekit resolve --no-cache --verbose
~~~`,
	}

	manifestParseFailedIssue = &Issue{
		id: ManifestParseFailedId,
		mdMsg: `
# A bundle manifest could not be read!

Manifests are validated against a schema. Every entry needs a ` + "`name`" + `,
and unknown fields are rejected.

## Example manifest:
~~~cue
bundles: [
  {name: "CoreBundle", supersedes: ["core"]},
  {name: "NewsBundle", load_after: ["CoreBundle"]},
  {name: "DebugBundle", production: false},
]
~~~

## Things you can try:
- Fix the field named in the error above
- Run ` + "`bundlekit plugins`" + ` to see which files each source reads`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be loaded.

## Things you can try:
- Check the file for CUE syntax errors
- Compare it with the complete default configuration:
~~~
$ bundlekit config dump
~~~

- Create a fresh configuration file:
~~~
$ bundlekit config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	cacheWriteFailedIssue = &Issue{
		id: CacheWriteFailedId,
		mdMsg: `
# The bundle cache could not be written!

Resolving succeeded, but the snapshot file could not be saved.

## Things you can try:
- Check the permissions of the cache directory
- Point ` + "`cache.file`" + ` somewhere writable
- Skip the cache for this run:
~~~
$ bundlekit resolve --no-cache
~~~`,
	}

	invalidEnvironmentIssue = &Issue{
		id: InvalidEnvironmentId,
		mdMsg: `
# Unknown environment!

Bundles are resolved either for production or for development.

## Things you can try:
- Pass ` + "`--env prod`" + ` or ` + "`--env dev`" + `
- Set ` + "`environment`" + ` in your configuration file`,
	}

	catalog = []*Issue{
		mergeConflictIssue,
		dependencyCycleIssue,
		manifestParseFailedIssue,
		configLoadFailedIssue,
		cacheWriteFailedIssue,
		invalidEnvironmentIssue,
	}

	issues = func() map[Id]*Issue {
		m := make(map[Id]*Issue, len(catalog))
		for _, i := range catalog {
			m[i.id] = i
		}
		return m
	}()
)

// Values returns every catalog entry, ordered by id.
func Values() []*Issue {
	return slices.Clone(catalog)
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
