// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/parser"
	"github.com/bundlekit/bundlekit/pkg/plugin"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelDebug logs resolver and cache decisions.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default log level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// envPlaceholder is replaced with the environment name in cache.file.
	envPlaceholder = "<env>"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidSources is the sentinel error wrapped by InvalidSourcesError.
	ErrInvalidSources = errors.New("invalid sources")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level of diagnostics written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidSourcesError is returned when the sources list is inconsistent.
	// It wraps ErrInvalidSources for errors.Is() compatibility.
	InvalidSourcesError struct {
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Environment selects the descriptors to load ("prod" or "dev").
		Environment descriptor.Environment `json:"environment" mapstructure:"environment"`
		// ProjectDir is the base for relative source paths and the cache file.
		ProjectDir string `json:"project_dir" mapstructure:"project_dir"`
		// ModulesDir holds legacy module directories, relative to ProjectDir.
		ModulesDir string `json:"modules_dir" mapstructure:"modules_dir"`
		// PrimarySource names the source ordered first.
		PrimarySource string `json:"primary_source" mapstructure:"primary_source"`
		// Cache configures the resolution snapshot.
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Sources lists where descriptors are read from.
		Sources []SourceConfig `json:"sources" mapstructure:"sources"`
		// LogLevel sets the diagnostics level.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// CacheConfig configures the resolution snapshot.
	CacheConfig struct {
		// Enabled enables/disables the snapshot (default: true)
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// File is the snapshot path; "<env>" is replaced with the environment.
		File string `json:"file" mapstructure:"file"`
	}

	// SourceConfig declares one descriptor source.
	SourceConfig struct {
		Name     string   `json:"name" mapstructure:"name"`
		Path     string   `json:"path,omitempty" mapstructure:"path"`
		Type     string   `json:"type,omitempty" mapstructure:"type"`
		Modules  []string `json:"modules,omitempty" mapstructure:"modules"`
		After    []string `json:"after,omitempty" mapstructure:"after"`
		Disabled bool     `json:"disabled,omitempty" mapstructure:"disabled"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is known.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// SlogLevel converts the level for log/slog. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidSourcesError.
func (e *InvalidSourcesError) Error() string {
	return "invalid sources: " + e.Reason
}

// Unwrap returns ErrInvalidSources for errors.Is() compatibility.
func (e *InvalidSourcesError) Unwrap() error { return ErrInvalidSources }

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	return c.ColorScheme.IsValid()
}

// PluginSource converts the source for the plugin registry. Relative paths
// are resolved against root.
func (s SourceConfig) PluginSource(root string) plugin.Source {
	return plugin.Source{
		Name:     s.Name,
		Root:     root,
		Path:     s.Path,
		Type:     parser.Type(s.Type),
		Modules:  s.Modules,
		After:    s.After,
		Disabled: s.Disabled,
	}
}

// IsValid returns whether the Config has valid fields. Sources are checked
// individually and as a set: names must be unique and the primary source,
// when set, must be one of them.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.Environment.Validate(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if err := validateSources(c.Sources, c.PrimarySource); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// ModulesPath returns the legacy modules directory.
func (c *Config) ModulesPath() string {
	return c.resolve(c.ModulesDir)
}

// CacheFile returns the snapshot path for env, or "" when caching is
// disabled.
func (c *Config) CacheFile(env descriptor.Environment) string {
	if !c.Cache.Enabled || c.Cache.File == "" {
		return ""
	}
	return c.resolve(strings.ReplaceAll(c.Cache.File, envPlaceholder, env.String()))
}

// PluginSources converts every configured source.
func (c *Config) PluginSources() []plugin.Source {
	out := make([]plugin.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.PluginSource(c.ProjectDir))
	}
	return out
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

// validateSources checks constraints that CUE cannot express: names are
// unique, after and primary_source refer to existing sources.
func validateSources(sources []SourceConfig, primary string) error {
	seen := make(map[string]int, len(sources))
	for i, s := range sources {
		if err := s.PluginSource("").Validate(); err != nil {
			return &InvalidSourcesError{Reason: fmt.Sprintf("sources[%d]: %v", i, err)}
		}
		if first, exists := seen[s.Name]; exists {
			return &InvalidSourcesError{Reason: fmt.Sprintf("sources[%d]: duplicate name %q (same as sources[%d])", i, s.Name, first)}
		}
		seen[s.Name] = i
	}

	for i, s := range sources {
		for _, dep := range s.After {
			if _, ok := seen[dep]; !ok {
				return &InvalidSourcesError{Reason: fmt.Sprintf("sources[%d]: after refers to unknown source %q", i, dep)}
			}
		}
	}

	if primary != "" {
		if _, ok := seen[primary]; !ok {
			return &InvalidSourcesError{Reason: fmt.Sprintf("primary_source %q is not a configured source", primary)}
		}
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: descriptor.EnvironmentProduction,
		ProjectDir:  ".",
		ModulesDir:  "system/modules",
		Cache: CacheConfig{
			Enabled: true,
			File:    ".bundlekit/bundles." + envPlaceholder + ".cue",
		},
		Sources: []SourceConfig{
			{Name: "app", Path: "bundles.{cue,yaml,yml,toml}"},
		},
		LogLevel: LogLevelInfo,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
