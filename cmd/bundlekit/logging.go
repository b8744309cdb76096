// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/bundlekit/bundlekit/internal/config"
)

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  log.InfoLevel,
	})
}

// installLogger routes the package-level slog calls of the libraries
// through the App's logger.
func (a *App) installLogger() {
	slog.SetDefault(slog.New(a.logger))
}

// applyLogLevel sets the level from the configuration. Verbose output
// always includes debug messages.
func (a *App) applyLogLevel(cfg *config.Config) {
	level := cfg.LogLevel.SlogLevel()
	if cfg.UI.Verbose {
		level = slog.LevelDebug
	}
	a.logger.SetLevel(log.Level(level))
}
