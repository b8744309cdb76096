// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "bundlekit",
		Short: "Merge bundle declarations and compute their load order",
		Long: TitleStyle.Render("bundlekit") + SubtitleStyle.Render(" - merge bundle declarations and compute their load order") + `

bundlekit reads bundle declarations from the sources of a project
(CUE, YAML and TOML manifests, legacy bundles.json files and legacy
module directories), merges them, applies supersedes and environment
filters and prints the bundles in a load order that honors every
load_after constraint.

` + SubtitleStyle.Render("Examples:") + `
  bundlekit resolve                 Print the load order for production
  bundlekit resolve -e dev -o yaml  Print the development order as YAML
  bundlekit plugins                 List the sources in plugin order
  bundlekit watch                   Re-resolve whenever a manifest changes
  bundlekit cache clear             Delete the cached resolution`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is ./bundlekit.cue, then the user config dir)")
	root.PersistentFlags().StringVarP(&flags.projectDir, "project", "C", "", "project directory (default is the working directory)")
	root.PersistentFlags().StringVarP(&flags.env, "env", "e", "", "environment to resolve: prod or dev (overrides the config)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newResolveCommand(app, flags),
		newPluginsCommand(app, flags),
		newWatchCommand(app, flags),
		newCacheCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of any *ExitError.
func Execute() {
	app := NewApp(Dependencies{})
	app.installLogger()

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitGeneric)
	}
}
