// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// A configuration is looked up, in order, at the path given with --config, at
// bundlekit.cue in the project directory, and at config.cue in the user
// configuration directory (~/.config/bundlekit on Linux, ~/Library/Application
// Support/bundlekit on macOS, %APPDATA%\bundlekit on Windows). Files are
// validated against the embedded config_schema.cue before being merged over
// the defaults. BUNDLEKIT_* environment variables override scalar settings.
package config
