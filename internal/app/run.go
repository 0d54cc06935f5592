package app

import (
	"context"
	"fmt"

	"github.com/vk/idfcalc/internal/ctxlog"
	"github.com/vk/idfcalc/internal/interp"
)

// Run executes the configured script.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	in := interp.New(interp.Options{
		OutputPath:    a.settings.OutputPath,
		BasePath:      a.settings.BasePath,
		Debug:         a.settings.Debug,
		Quiet:         a.settings.Quiet,
		Verbose:       a.settings.Verbose,
		Metadata:      a.settings.Metadata,
		RoundDecimals: a.settings.RoundDecimals,
		FixedExtent:   a.settings.FixedExtent,
		NoDataValue:   a.settings.NoDataValue,
		MaxDepth:      a.settings.MaxDepth,
	}, a.registry)

	a.logger.Info("Starting script run.", "script", appConfig.ScriptPath, "output", a.settings.OutputPath)
	if err := in.RunScript(ctx, appConfig.ScriptPath); err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}
	a.logger.Info("Script run finished.", "variables", in.Bindings().Len())

	a.logger.Debug("App.Run method finished.")
	return nil
}
