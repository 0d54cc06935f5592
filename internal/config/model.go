package config

import (
	"context"

	"github.com/vk/idfcalc/internal/grid"
)

// Settings is the unified configuration of a calculator run: where grids
// are read and written, how results are post-processed, and which engine
// policies apply. Pointer fields distinguish "not configured" from a zero
// value.
type Settings struct {
	OutputPath string
	BasePath   string

	Debug    bool
	Quiet    bool
	Verbose  bool
	Metadata bool

	// RoundDecimals rounds every persisted result to this many decimals.
	RoundDecimals *int
	// FixedExtent forces every reconciliation to this output extent.
	FixedExtent *grid.Extent
	// NoDataValue fixes the value the NoData literal evaluates to.
	NoDataValue *float64

	// MaxDepth bounds expression nesting; 0 uses the engine default.
	MaxDepth int
}

// Merge overlays non-zero fields of o onto a copy of s. Used to apply
// command-line flags on top of a loaded settings file.
func (s Settings) Merge(o Settings) Settings {
	if o.OutputPath != "" {
		s.OutputPath = o.OutputPath
	}
	if o.BasePath != "" {
		s.BasePath = o.BasePath
	}
	s.Debug = s.Debug || o.Debug
	s.Quiet = s.Quiet || o.Quiet
	s.Verbose = s.Verbose || o.Verbose
	s.Metadata = s.Metadata || o.Metadata
	if o.RoundDecimals != nil {
		s.RoundDecimals = o.RoundDecimals
	}
	if o.FixedExtent != nil {
		s.FixedExtent = o.FixedExtent
	}
	if o.NoDataValue != nil {
		s.NoDataValue = o.NoDataValue
	}
	if o.MaxDepth != 0 {
		s.MaxDepth = o.MaxDepth
	}
	return s
}

// Loader is the interface for a format-specific settings loader.
type Loader interface {
	// Load reads settings from a file at the given path.
	Load(ctx context.Context, path string) (*Settings, error)
}
