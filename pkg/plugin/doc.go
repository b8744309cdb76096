// SPDX-License-Identifier: MPL-2.0

// Package plugin holds the ordered set of plugins that contribute bundle
// descriptors to a resolution pass.
//
// A Registry is built once per pass. Plugins are ordered by the package
// dependencies they declare, using the same readiness sort as descriptor
// ordering, with an optional primary plugin placed first. SourcePlugin adapts
// a configured manifest or module source to a BundleProvider.
package plugin
