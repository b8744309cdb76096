// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/internal/config"
)

// newConfigCommand creates the `bundlekit config` command tree.
func newConfigCommand(app *App, root *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bundlekit configuration",
		Long: `Manage bundlekit configuration.

The configuration is read from the first of:
  - the file given with --config
  - bundlekit.cue in the project directory
  - config.cue in the user config directory
    (Linux: ~/.config/bundlekit, macOS: ~/Library/Application Support/bundlekit,
    Windows: %APPDATA%\bundlekit)

Environment variables prefixed with BUNDLEKIT_ override file values,
e.g. BUNDLEKIT_ENVIRONMENT=dev or BUNDLEKIT_CACHE_ENABLED=false.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.showConfig(cmd.Context(), root); err != nil {
				return app.fail(cmd, root, err)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.showConfigPath(root); err != nil {
				return app.fail(cmd, root, err)
			}
			return nil
		},
	})

	var user bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Create bundlekit.cue with the default configuration in the project
directory, or config.cue in the user config directory with --user. An
existing file is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.initConfig(root, user); err != nil {
				return app.fail(cmd, root, err)
			}
			return nil
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "create the user configuration instead of the project one")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), root)
			if err != nil {
				return app.fail(cmd, root, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, root *rootFlagValues) error {
	cfg, err := a.loadConfig(ctx, root)
	if err != nil {
		return err
	}
	path, err := config.LocateFile(config.LoadOptions{ConfigFilePath: root.configPath, BaseDir: root.projectDir})
	if err != nil {
		return err
	}

	w := a.stdout
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path == "" {
		keyValue(w, "Config file", SubtitleStyle.Render("(using defaults)"))
	} else {
		keyValue(w, "Config file", path)
	}
	fmt.Fprintln(w)

	keyValue(w, "environment", SuccessStyle.Render(cfg.Environment.String()))
	keyValue(w, "project_dir", SuccessStyle.Render(cfg.ProjectDir))
	keyValue(w, "modules_dir", SuccessStyle.Render(cfg.ModulesPath()))
	if cfg.PrimarySource == "" {
		keyValue(w, "primary_source", SubtitleStyle.Render("(none)"))
	} else {
		keyValue(w, "primary_source", SuccessStyle.Render(cfg.PrimarySource))
	}
	keyValue(w, "log_level", SuccessStyle.Render(cfg.LogLevel.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("cache"))
	fmt.Fprintf(w, "  enabled: %s\n", SuccessStyle.Render(fmt.Sprint(cfg.Cache.Enabled)))
	if file := cfg.CacheFile(cfg.Environment); file != "" {
		fmt.Fprintf(w, "  file: %s\n", SuccessStyle.Render(file))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("sources"))
	if len(cfg.Sources) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, s := range cfg.Sources {
		var parts []string
		if s.Path != "" {
			parts = append(parts, "path: "+s.Path)
		}
		if len(s.Modules) > 0 {
			parts = append(parts, "modules: "+strings.Join(s.Modules, ", "))
		}
		if len(s.After) > 0 {
			parts = append(parts, "after: "+strings.Join(s.After, ", "))
		}
		name := SuccessStyle.Render(s.Name)
		if s.Disabled {
			name += " " + WarningStyle.Render("(disabled)")
		}
		fmt.Fprintf(w, "  - %s %s\n", name, SubtitleStyle.Render(strings.Join(parts, "; ")))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", CmdStyle.Render("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", SuccessStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", SuccessStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	return nil
}

func keyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render(key), value)
}

func (a *App) showConfigPath(root *rootFlagValues) error {
	userPath, err := config.UserConfigPath("")
	if err != nil {
		return err
	}
	active, err := config.LocateFile(config.LoadOptions{ConfigFilePath: root.configPath, BaseDir: root.projectDir})
	if err != nil {
		return err
	}

	keyValue(a.stdout, "Project config", filepath.Join(root.projectDir, config.ProjectConfigFile))
	keyValue(a.stdout, "User config", userPath)
	if active == "" {
		keyValue(a.stdout, "Active", SubtitleStyle.Render("(using defaults)"))
	} else {
		keyValue(a.stdout, "Active", active)
	}
	return nil
}

func (a *App) initConfig(root *rootFlagValues, user bool) error {
	path := filepath.Join(root.projectDir, config.ProjectConfigFile)
	if user {
		var err error
		if path, err = config.UserConfigPath(""); err != nil {
			return err
		}
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(a.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(a.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
