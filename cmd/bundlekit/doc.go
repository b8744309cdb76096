// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the bundlekit command line interface.
//
// Every command receives an *App, the composition root holding the config
// provider and output writers, and a *rootFlagValues with the persistent
// flags. Failures are rendered as actionable errors on stderr and reported
// to the caller as *ExitError values carrying the process exit code.
package cmd
