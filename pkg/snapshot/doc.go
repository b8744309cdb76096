// SPDX-License-Identifier: MPL-2.0

// Package snapshot persists resolutions as CUE files so a later run can skip
// discovery and resolving. A snapshot that cannot be used for any reason is
// reported as an error by Load; callers decide whether that is a cache miss.
package snapshot
