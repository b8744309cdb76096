// SPDX-License-Identifier: MPL-2.0

// Package loader produces the ordered bundle set for an environment. It asks
// every active bundle provider of a plugin registry for descriptors, resolves
// them, and optionally caches the result as a snapshot file.
package loader
