package grid

import (
	"context"
	"fmt"
	"math"
)

// ScaleMethod selects how cell values are combined or distributed when a
// grid is resampled to a different cellsize.
type ScaleMethod int

const (
	// ScaleBlock replicates or picks the covering source cell. Default for
	// downscaling.
	ScaleBlock ScaleMethod = iota + 1
	// ScaleMean averages the covered source cells, ignoring NoData. Default
	// for upscaling.
	ScaleMean
	// ScaleMinimum takes the smallest covered source cell.
	ScaleMinimum
	// ScaleMaximum takes the largest covered source cell.
	ScaleMaximum
	// ScaleSum sums the covered source cells.
	ScaleSum
)

// String names the method the way scripts refer to it.
func (m ScaleMethod) String() string {
	switch m {
	case ScaleBlock:
		return "block"
	case ScaleMean:
		return "mean"
	case ScaleMinimum:
		return "minimum"
	case ScaleMaximum:
		return "maximum"
	case ScaleSum:
		return "sum"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// MethodFromCode maps the numeric method codes accepted by the scale()
// function to a ScaleMethod.
func MethodFromCode(code int) (ScaleMethod, error) {
	m := ScaleMethod(code)
	switch m {
	case ScaleBlock, ScaleMean, ScaleMinimum, ScaleMaximum, ScaleSum:
		return m, nil
	}
	return 0, fmt.Errorf("unknown scale method code %d", code)
}

// scaleFactor validates that target is a whole multiple (or divisor) of the
// current cellsize and returns the integer ratio big/small.
func scaleFactor(big, small float64) (int, error) {
	f := big / small
	n := math.Round(f)
	if n < 1 || math.Abs(f-n) > 1e-9 {
		return 0, fmt.Errorf("cellsize %g is not a whole multiple of %g", big, small)
	}
	return int(n), nil
}

// Downscale refines the grid to a smaller cellsize. Every source cell is
// split into factor x factor target cells; ScaleBlock (the only supported
// downscale method) replicates the source value into each of them.
func (g *Grid) Downscale(ctx context.Context, target float64, method ScaleMethod) (*Grid, error) {
	if g.constant {
		return g.Copy(ctx, g.Name)
	}
	if method != ScaleBlock {
		return nil, fmt.Errorf("downscale supports only the block method, got %s", method)
	}
	factor, err := scaleFactor(g.CSX, target)
	if err != nil {
		return nil, err
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	r := New(g.Name, g.Extent, target, g.NoData)
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			r.SetValue(row, col, g.Value(row/factor, col/factor))
		}
	}
	return r, nil
}

// Upscale coarsens the grid to a larger cellsize, aggregating each
// factor x factor block of source cells with the given method. NoData
// source cells are skipped; a block with no data cells stays NoData.
func (g *Grid) Upscale(ctx context.Context, target float64, method ScaleMethod) (*Grid, error) {
	if g.constant {
		return g.Copy(ctx, g.Name)
	}
	factor, err := scaleFactor(target, g.CSX)
	if err != nil {
		return nil, err
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	ext := g.Extent.Snap(target, target)
	r := New(g.Name, ext, target, g.NoData)
	// Source cell offsets between the snapped result extent and the source
	// extent; nonzero when the source was not aligned to the target size.
	offRow := int(math.Round((ext.YMax - g.Extent.YMax) / g.CSY))
	offCol := int(math.Round((g.Extent.XMin - ext.XMin) / g.CSX))
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			var sum, min, max float64
			var first float64
			n := 0
			for dr := 0; dr < factor; dr++ {
				for dc := 0; dc < factor; dc++ {
					sr := row*factor + dr - offRow
					sc := col*factor + dc - offCol
					if sr < 0 || sc < 0 || sr >= g.NRows() || sc >= g.NCols() {
						continue
					}
					v := g.Value(sr, sc)
					if v == g.NoData {
						continue
					}
					if n == 0 {
						first = v
						min = v
						max = v
					}
					if v < min {
						min = v
					}
					if v > max {
						max = v
					}
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			switch method {
			case ScaleMean:
				r.SetValue(row, col, sum/float64(n))
			case ScaleMinimum:
				r.SetValue(row, col, min)
			case ScaleMaximum:
				r.SetValue(row, col, max)
			case ScaleSum:
				r.SetValue(row, col, sum)
			case ScaleBlock:
				// Block upscaling picks the first covered data cell.
				r.SetValue(row, col, first)
			default:
				return nil, fmt.Errorf("unsupported upscale method %s", method)
			}
		}
	}
	return r, nil
}
