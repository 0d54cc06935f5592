package app

import (
	"errors"

	"github.com/vk/idfcalc/internal/config"
)

// Config holds everything an App instance needs to run: the script to
// execute, an optional settings file, logging choices, and the settings
// given directly on the command line.
type Config struct {
	ScriptPath string
	ConfigPath string

	LogFormat string
	LogLevel  string

	// Flags are the settings supplied as command-line flags. They override
	// the settings file.
	Flags config.Settings
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("ScriptPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
