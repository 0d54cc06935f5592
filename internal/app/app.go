package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/idfcalc/internal/config"
	"github.com/vk/idfcalc/internal/ctxlog"
	"github.com/vk/idfcalc/internal/expr"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: an isolated logger, the merged run settings, and the function
// registry the expression engine dispatches through.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	settings config.Settings
	registry *expr.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A settings file that cannot be loaded is a fatal startup error and
// panics; the entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var settings config.Settings
	if appConfig.ConfigPath != "" {
		loaded, err := loader.Load(ctx, appConfig.ConfigPath)
		if err != nil {
			panic(fmt.Errorf("failed to load settings: %w", err))
		}
		settings = *loaded
		logger.Debug("Settings file loaded.", "path", appConfig.ConfigPath)
	}
	settings = settings.Merge(appConfig.Flags)

	// Paths default relative to the script: grids are looked up next to it
	// and results land in the same place unless configured otherwise.
	if settings.BasePath == "" {
		settings.BasePath = filepath.Dir(appConfig.ScriptPath)
	}
	if settings.OutputPath == "" {
		settings.OutputPath = settings.BasePath
	}

	registry := expr.NewRegistry()
	expr.RegisterBuiltins(registry)
	logger.Debug("Expression functions registered.", "count", len(registry.Names()))

	return &App{
		outW:     outW,
		logger:   logger,
		settings: settings,
		registry: registry,
	}
}

// Settings returns the merged run settings. This is primarily for testing.
func (a *App) Settings() config.Settings {
	return a.settings
}

// Registry returns the application's function registry. This is primarily
// for testing.
func (a *App) Registry() *expr.Registry {
	return a.registry
}
