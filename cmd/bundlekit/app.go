// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/bundlekit/bundlekit/internal/config"
	"github.com/bundlekit/bundlekit/internal/issue"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/loader"
	"github.com/bundlekit/bundlekit/pkg/parser"
	"github.com/bundlekit/bundlekit/pkg/plugin"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. All command handlers
	// receive an App reference.
	App struct {
		Config ConfigProvider
		logger *log.Logger
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags shared by every command.
	rootFlagValues struct {
		configPath string
		projectDir string
		env        string
		verbose    bool
	}

	// resolveOptions selects how a resolution is obtained.
	resolveOptions struct {
		useCache bool
		refresh  bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		logger: newLogger(deps.Stderr),
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig loads the configuration and applies the persistent flags on
// top of it.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		BaseDir:        flags.projectDir,
	})
	if err != nil {
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.Issue == 0 {
			ae.Issue = issue.ConfigLoadFailedId
		}
		return nil, err
	}

	if flags.env != "" {
		env, err := descriptor.ParseEnvironment(flags.env)
		if err != nil {
			return nil, err
		}
		cfg.Environment = env
	}
	if flags.verbose {
		cfg.UI.Verbose = true
	}

	a.applyLogLevel(cfg)
	return cfg, nil
}

// newRegistry builds the plugin registry from the configured sources. The
// primary source, if any, is ordered first.
func newRegistry(cfg *config.Config) (*plugin.Registry, error) {
	var (
		primary plugin.Plugin
		others  []plugin.Plugin
	)
	for _, src := range cfg.PluginSources() {
		p, err := plugin.NewSourcePlugin(src)
		if err != nil {
			return nil, err
		}
		if src.Name == cfg.PrimarySource {
			primary = p
			continue
		}
		others = append(others, p)
	}
	return plugin.NewRegistry(primary, others...)
}

// newParser returns the parser chain for cfg: manifests first, then legacy
// bundles.json files, then legacy module directories.
func newParser(cfg *config.Config) parser.Parser {
	return parser.NewDelegating(
		parser.NewManifestParser(),
		parser.NewJSONParser(),
		parser.NewINIParser(cfg.ModulesPath()),
	)
}

// resolve loads the resolution for the configured environment. A failed
// cache write is returned with the result.
func (a *App) resolve(ctx context.Context, cfg *config.Config, opts resolveOptions) (*loader.Result, error) {
	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}

	l := loader.New(registry, newParser(cfg))

	cacheFile := ""
	if opts.useCache {
		cacheFile = cfg.CacheFile(cfg.Environment)
	}
	if opts.refresh {
		return l.Refresh(ctx, cfg.Environment, cacheFile)
	}
	return l.Load(ctx, cfg.Environment, cacheFile)
}
