// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/snapshot"
)

func newCacheCommand(app *App, root *rootFlagValues) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cached resolution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}

			envs := []descriptor.Environment{cfg.Environment}
			if all {
				envs = []descriptor.Environment{descriptor.EnvironmentProduction, descriptor.EnvironmentDevelopment}
			}
			for _, env := range envs {
				path := cfg.CacheFile(env)
				if path == "" {
					fmt.Fprintln(app.stdout, SubtitleStyle.Render("cache is disabled"))
					return nil
				}
				if err := snapshot.Remove(path); err != nil {
					return app.fail(cmd, root, err)
				}
				fmt.Fprintf(app.stdout, "%s Cleared %s cache %s\n", SuccessStyle.Render("✓"), env, SubtitleStyle.Render(path))
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "clear the cache of every environment")

	cacheCmd.AddCommand(clearCmd, &cobra.Command{
		Use:   "path",
		Short: "Show the cache file of the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			path := cfg.CacheFile(cfg.Environment)
			if path == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(cache disabled)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cacheCmd
}
