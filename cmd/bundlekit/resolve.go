// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/internal/config"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/loader"
	"github.com/bundlekit/bundlekit/pkg/parser"
)

const formatText = "text"

type resolveFlagValues struct {
	format  string
	noCache bool
	refresh bool
}

func newResolveCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &resolveFlagValues{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the active bundles in load order",
		Long: `Resolve the bundle declarations of every enabled source and print the
active bundles in load order.

The result is cached per environment (see cache.file in the configuration).
A cached result is reused until the cache is cleared or --refresh is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(flags.format); err != nil {
				return err
			}
			cfg, err := app.loadConfig(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			if err := app.runResolve(cmd, cfg, flags); err != nil {
				return app.fail(cmd, root, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "o", formatText, "output format: text, cue, yaml or toml")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "neither read nor write the cache")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "ignore the cached result and write a new one")
	cmd.MarkFlagsMutuallyExclusive("no-cache", "refresh")

	return cmd
}

func (a *App) runResolve(cmd *cobra.Command, cfg *config.Config, flags *resolveFlagValues) error {
	result, err := a.resolve(cmd.Context(), cfg, resolveOptions{
		useCache: !flags.noCache,
		refresh:  flags.refresh,
	})
	var cacheErr *loader.CacheWriteError
	if errors.As(err, &cacheErr) && result != nil {
		slog.Warn("resolution not cached", "file", cacheErr.Path, "error", cacheErr.Err)
		err = nil
	}
	if err != nil {
		return err
	}

	return renderResolution(a.stdout, cfg.Environment, result, flags.format)
}

func validateFormat(format string) error {
	if format == formatText {
		return nil
	}
	switch parser.Type(format) {
	case parser.TypeCUE, parser.TypeYAML, parser.TypeTOML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (valid: text, cue, yaml, toml)", format)
	}
}

// renderResolution writes result as a table or as a manifest that decodes
// back to the same descriptors.
func renderResolution(w io.Writer, env descriptor.Environment, result *loader.Result, format string) error {
	ds := result.Resolution.Descriptors()

	if format != formatText {
		data, err := parser.ManifestFrom(ds).Marshal(parser.Type(format))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	origin := "resolved"
	if result.FromCache {
		origin = "from cache"
	}
	fmt.Fprintf(w, "%s %s\n\n",
		TitleStyle.Render(fmt.Sprintf("%d bundles for %s", len(ds), env)),
		SubtitleStyle.Render("("+origin+")"))

	if len(ds) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no active bundles)"))
		return nil
	}

	fmt.Fprintln(w, resolutionTable(ds))
	return nil
}

func resolutionTable(ds []descriptor.Descriptor) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers("#", "BUNDLE", "KIND", "LOAD AFTER", "SUPERSEDES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for i, d := range ds {
		t.Row(
			strconv.Itoa(i+1),
			d.Name(),
			d.Kind().String(),
			joinOrDash(d.LoadAfter()),
			joinOrDash(d.Supersedes()),
		)
	}
	return t.String()
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
