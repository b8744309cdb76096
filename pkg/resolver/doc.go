// SPDX-License-Identifier: MPL-2.0

// Package resolver folds a discovery-ordered sequence of bundle descriptors
// into the set that is active for one environment, and orders that set so
// every descriptor loads after the descriptors it names in its load-after set.
//
// Names listed in a descriptor's supersedes set are replaced by that
// descriptor: a superseded declaration never appears in the output and
// load-after references to it are rewritten to its replacement before
// ordering.
//
// A Resolver is single-writer. Add descriptors sequentially, then call
// Resolve once per environment.
package resolver
