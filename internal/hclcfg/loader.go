// Package hclcfg is the HCL implementation of config.Loader: it reads a
// settings file such as
//
//	settings {
//	  output = "./out"
//	  base   = "./grids"
//	  extent = [180000, 350000, 200000, 370000]
//	  round  = 3
//	}
//
// into the format-agnostic config.Settings model.
package hclcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/idfcalc/internal/config"
	"github.com/vk/idfcalc/internal/ctxlog"
	"github.com/vk/idfcalc/internal/grid"
)

// Loader parses HCL settings files.
type Loader struct{}

// NewLoader creates a new HCL settings loader.
func NewLoader() *Loader {
	return &Loader{}
}

// settingsFile mirrors the HCL structure of a settings file.
type settingsFile struct {
	Settings *settingsBlock `hcl:"settings,block"`
}

type settingsBlock struct {
	Output   *string  `hcl:"output,optional"`
	Base     *string  `hcl:"base,optional"`
	Debug    *bool    `hcl:"debug,optional"`
	Quiet    *bool    `hcl:"quiet,optional"`
	Verbose  *bool    `hcl:"verbose,optional"`
	Metadata *bool    `hcl:"metadata,optional"`
	Round    *int     `hcl:"round,optional"`
	NoData   *float64 `hcl:"nodata,optional"`
	MaxDepth *int     `hcl:"max_depth,optional"`

	// extent is a four-element tuple, decoded by hand through cty so the
	// user can mix integers and floats freely.
	Extent hcl.Expression `hcl:"extent,optional"`
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (*config.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading settings file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, diags)
	}

	var raw settingsFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding settings file %s: %w", path, diags)
	}
	if raw.Settings == nil {
		return nil, fmt.Errorf("settings file %s has no settings block", path)
	}

	s := &config.Settings{}
	b := raw.Settings
	if b.Output != nil {
		s.OutputPath = *b.Output
	}
	if b.Base != nil {
		s.BasePath = *b.Base
	}
	if b.Debug != nil {
		s.Debug = *b.Debug
	}
	if b.Quiet != nil {
		s.Quiet = *b.Quiet
	}
	if b.Verbose != nil {
		s.Verbose = *b.Verbose
	}
	if b.Metadata != nil {
		s.Metadata = *b.Metadata
	}
	s.RoundDecimals = b.Round
	s.NoDataValue = b.NoData
	if b.MaxDepth != nil {
		s.MaxDepth = *b.MaxDepth
	}

	ext, err := decodeExtent(b.Extent)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	s.FixedExtent = ext

	logger.Debug("Settings file loaded.", "path", path)
	return s, nil
}

// decodeExtent evaluates the extent attribute into a grid.Extent. A missing
// attribute yields nil.
func decodeExtent(expr hcl.Expression) (*grid.Extent, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating extent: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	val, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return nil, fmt.Errorf("extent must be a list of numbers: %w", err)
	}
	var coords []float64
	if err := gocty.FromCtyValue(val, &coords); err != nil {
		return nil, fmt.Errorf("extent must be a list of numbers: %w", err)
	}
	if len(coords) != 4 {
		return nil, fmt.Errorf("extent must have exactly 4 coordinates, got %d", len(coords))
	}
	ext := grid.NewExtent(coords[0], coords[1], coords[2], coords[3])
	if ext.IsDegenerate() {
		return nil, fmt.Errorf("extent %s has zero area", ext)
	}
	return &ext, nil
}
