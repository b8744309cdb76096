// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/internal/config"
	"github.com/bundlekit/bundlekit/internal/watch"
)

type watchFlagValues struct {
	debounce time.Duration
	ignore   []string
	format   string
}

func newWatchCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &watchFlagValues{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve whenever a bundle declaration changes",
		Long: `Resolve once, then watch the files read by the enabled sources and the
project configuration. Every change triggers a fresh resolution that also
replaces the cached one. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(flags.format); err != nil {
				return err
			}
			if err := app.runWatch(cmd, root, flags); err != nil {
				return app.fail(cmd, root, err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before re-resolving")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "additional glob patterns to ignore")
	cmd.Flags().StringVarP(&flags.format, "format", "o", formatText, "output format: text, cue, yaml or toml")

	return cmd
}

func (a *App) runWatch(cmd *cobra.Command, root *rootFlagValues, flags *watchFlagValues) error {
	ctx := cmd.Context()

	cfg, err := a.loadConfig(ctx, root)
	if err != nil {
		return err
	}

	patterns := watch.ManifestPatterns(cfg.ProjectDir, cfg.ModulesPath(), cfg.PluginSources())
	if cfgFile, err := config.LocateFile(config.LoadOptions{ConfigFilePath: root.configPath, BaseDir: root.projectDir}); err == nil && cfgFile != "" {
		if rel, ok := watch.RelativePattern(cfg.ProjectDir, cfgFile); ok {
			patterns = append(patterns, rel)
		}
	}
	slog.Debug("watching", "dir", cfg.ProjectDir, "patterns", patterns)

	run := func(ctx context.Context) {
		cfg, err := a.loadConfig(ctx, root)
		if err == nil {
			err = a.runResolve(cmd, cfg, &resolveFlagValues{format: flags.format, refresh: true})
		}
		if err != nil {
			ae, _ := classifyError(err)
			fmt.Fprintln(a.stderr, WarningStyle.Render("! ")+ae.Format(root.verbose))
		}
	}

	w, err := watch.New(watch.Config{
		BaseDir:  cfg.ProjectDir,
		Patterns: patterns,
		Ignore:   flags.ignore,
		Debounce: flags.debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(a.stdout, "\n%s %d file(s) changed\n", CmdStyle.Render("→"), len(changed))
			for _, path := range changed {
				slog.Debug("changed", "path", path)
			}
			run(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}

	run(ctx)
	fmt.Fprintf(a.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"), w.BaseDir())
	return w.Run(ctx)
}
