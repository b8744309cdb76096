// SPDX-License-Identifier: MPL-2.0

// Package descriptor defines the bundle descriptor: the name, replacement
// and ordering metadata of a loadable unit, plus the environments it is
// enabled in.
//
// Descriptors are immutable values. They come in two closed kinds:
//
//   - KindBundle: a regular bundle declared by a manifest or plugin.
//   - KindLegacyModule: a legacy module whose load order is derived from the
//     fixed list of legacy module names (see NewLegacyModule).
//
// Two descriptors with the same name can be merged (see Merge) only when they
// are of the same kind.
package descriptor
