// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of Markdown guidance
// for the failures users can fix themselves: merge conflicts, dependency
// cycles, broken manifests, unreadable configuration and unwritable caches.
package issue
