// SPDX-License-Identifier: MPL-2.0

// Package parser turns descriptor sources into bundle descriptors.
//
// Bundle manifests (CUE, YAML or TOML) are the primary source; every format
// is validated against the same embedded CUE schema. Two legacy sources are
// kept for older projects: bundles.json files and module directories whose
// config/autoload.ini lists required modules. The Delegating parser picks the
// first parser that supports a resource.
package parser
