package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/vk/idfcalc/internal/app"
	"github.com/vk/idfcalc/internal/config"
	"github.com/vk/idfcalc/internal/grid"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("idfcalc", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
idfcalc - a grid expression calculator for IDF rasters.

Usage:
  idfcalc [options] SCRIPT.ini

Arguments:
  SCRIPT.ini
    Path to the calculator script: one "name = expression" per line,
    with REM/'//' comments and FOR ... ENDFOR loops.

Options:
`)
		flagSet.PrintDefaults()
	}

	scriptFlag := flagSet.String("script", "", "Path to the script file.")
	configFlag := flagSet.String("config", "", "Path to an optional HCL settings file.")
	outputFlag := flagSet.String("output", env.Str("IDFCALC_OUTPUT"), "Directory computed grids are written to. Defaults to the script directory.")
	baseFlag := flagSet.String("base", env.Str("IDFCALC_BASE"), "Directory grid file references are resolved against. Defaults to the script directory.")
	extentFlag := flagSet.String("extent", "", "Fixed output extent as \"xmin,ymin,xmax,ymax\". Empty leaves extents operand-driven.")
	roundFlag := flagSet.Int("round", -1, "Round persisted results to this many decimals. -1 disables rounding.")
	noDataFlag := flagSet.String("nodata", "", "Value the NoData literal evaluates to. Empty uses the other operand's sentinel.")
	debugFlag := flagSet.Bool("debug", env.Bool("IDFCALC_DEBUG"), "Emit every intermediate grid to the debug side channel.")
	quietFlag := flagSet.Bool("quiet", false, "Treat a missing grid file as a clean stop instead of an error.")
	verboseFlag := flagSet.Bool("v", false, "Echo comments and assignments while running.")
	metadataFlag := flagSet.Bool("metadata", false, "Write a provenance sidecar next to every persisted grid.")
	maxDepthFlag := flagSet.Int("max-depth", 0, "Maximum expression nesting depth. 0 uses the engine default.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *scriptFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		slog.Debug("No script path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	flags := config.Settings{
		OutputPath: *outputFlag,
		BasePath:   *baseFlag,
		Debug:      *debugFlag,
		Quiet:      *quietFlag,
		Verbose:    *verboseFlag,
		Metadata:   *metadataFlag,
		MaxDepth:   *maxDepthFlag,
	}
	if *roundFlag >= 0 {
		flags.RoundDecimals = roundFlag
	}
	if *extentFlag != "" {
		ext, err := parseExtent(*extentFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		flags.FixedExtent = ext
	}
	if *noDataFlag != "" {
		v, err := strconv.ParseFloat(*noDataFlag, 64)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: "invalid nodata: must be a number"}
		}
		flags.NoDataValue = &v
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		ScriptPath: path,
		ConfigPath: *configFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Flags:      flags,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "script", cfg.ScriptPath)
	return cfg, false, nil
}

// parseExtent reads an "xmin,ymin,xmax,ymax" flag value.
func parseExtent(s string) (*grid.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid extent %q: need 4 comma-separated coordinates", s)
	}
	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid extent coordinate %q", p)
		}
		coords[i] = v
	}
	ext := grid.NewExtent(coords[0], coords[1], coords[2], coords[3])
	if ext.IsDegenerate() {
		return nil, fmt.Errorf("invalid extent %q: zero area", s)
	}
	return &ext, nil
}
