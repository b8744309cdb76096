// SPDX-License-Identifier: MPL-2.0

package descriptor

import "slices"

// coreModule is the legacy module every other module loads after.
const coreModule = "core"

// legacyModules is the closed list of modules that predate bundles.
var legacyModules = []string{
	"core",
	"calendar",
	"comments",
	"faq",
	"listing",
	"news",
	"newsletter",
}

// LegacyModules returns a copy of the fixed legacy module list.
func LegacyModules() []string {
	return slices.Clone(legacyModules)
}

// NewLegacyModule creates a legacy module descriptor. Its load-after set is
// derived once, at construction: the legacy names that sort before the
// module's own name, plus "core". Legacy modules therefore load in
// alphabetical order and every other module loads after all of them.
// WithLoadAfter replaces the derived set.
func NewLegacyModule(name string, opts ...Option) (Descriptor, error) {
	return build(KindLegacyModule, name, legacyLoadAfter(name), opts)
}

func legacyLoadAfter(name string) []string {
	modules := append(LegacyModules(), name)
	slices.Sort(modules)
	modules = modules[:slices.Index(modules, name)]

	if name != coreModule && !slices.Contains(modules, coreModule) {
		modules = append(modules, coreModule)
	}
	return modules
}
