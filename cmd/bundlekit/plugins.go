// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/pkg/plugin"
)

func newPluginsCommand(app *App, root *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the configured sources in plugin order",
		Long: `List the configured sources in the order their declarations are read.

The primary source comes first unless it depends on another source; every
other source follows the sources listed in its 'after' field. Later sources
override earlier ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			registry, err := newRegistry(cfg)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			return renderPlugins(app.stdout, registry, cfg.UI.Verbose)
		},
	}
}

func renderPlugins(w io.Writer, registry *plugin.Registry, verbose bool) error {
	active := make(map[string]bool)
	for _, p := range registry.Instances() {
		active[p.Name()] = true
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers("#", "SOURCE", "STATUS", "AFTER", "FILES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	var details []string
	for i, p := range registry.All() {
		status := SuccessStyle.Render("enabled")
		if !active[p.Name()] {
			status = WarningStyle.Render("disabled")
		}

		after, files := "-", "-"
		if sp, ok := p.(*plugin.SourcePlugin); ok {
			after = joinOrDash(sp.PackageDependencies())
			resources, err := sp.Resources()
			if err != nil {
				return err
			}
			files = strconv.Itoa(len(resources))
			if verbose {
				for _, r := range resources {
					details = append(details, fmt.Sprintf("  %s %s", CmdStyle.Render(p.Name()+":"), r))
				}
			}
		}
		t.Row(strconv.Itoa(i+1), p.Name(), status, after, files)
	}

	fmt.Fprintln(w, t.String())
	for _, line := range details {
		fmt.Fprintln(w, line)
	}
	return nil
}
