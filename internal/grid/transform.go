package grid

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateClip is returned when clipping would leave a zero-area grid.
var ErrDegenerateClip = errors.New("grid: clip target has zero area")

// colOf maps a world x coordinate to a column index within the grid.
func (g *Grid) colOf(x float64) int {
	return int(math.Round((x - g.Extent.XMin) / g.CSX))
}

// rowOf maps a world y coordinate to a row index within the grid. Row 0 is
// the row just below YMax.
func (g *Grid) rowOf(y float64) int {
	return int(math.Round((g.Extent.YMax - y) / g.CSY))
}

// Clip shrinks the grid to the intersection of its extent with target. A
// target equal to the current extent returns a plain copy. A zero-area
// intersection returns ErrDegenerateClip.
func (g *Grid) Clip(ctx context.Context, target Extent) (*Grid, error) {
	if g.constant {
		return g.Copy(ctx, g.Name)
	}
	sect := g.Extent.Intersect(target).Snap(g.CSX, g.CSY)
	if sect.IsDegenerate() {
		return nil, ErrDegenerateClip
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	r := NewWithCellsizes(g.Name, sect, g.CSX, g.CSY, g.NoData)
	row0 := g.rowOf(sect.YMax)
	col0 := g.colOf(sect.XMin)
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			r.SetValue(row, col, g.Value(row0+row, col0+col))
		}
	}
	return r, nil
}

// Enlarge grows the grid to the union of its extent with target, filling new
// cells with NoData. A target already contained in the extent returns a
// plain copy.
func (g *Grid) Enlarge(ctx context.Context, target Extent) (*Grid, error) {
	if g.constant {
		return g.Copy(ctx, g.Name)
	}
	union := g.Extent.Union(target).Snap(g.CSX, g.CSY)
	if union.Equal(g.Extent) {
		return g.Copy(ctx, g.Name)
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	r := NewWithCellsizes(g.Name, union, g.CSX, g.CSY, g.NoData)
	row0 := r.rowOf(g.Extent.YMax)
	col0 := r.colOf(g.Extent.XMin)
	for row := 0; row < g.NRows(); row++ {
		for col := 0; col < g.NCols(); col++ {
			r.SetValue(row0+row, col0+col, g.Value(row, col))
		}
	}
	return r, nil
}

// Round returns a copy with every cell rounded to the given number of
// decimal places. NoData cells are untouched.
func (g *Grid) Round(ctx context.Context, decimals int) (*Grid, error) {
	if g.constant {
		p := math.Pow(10, float64(decimals))
		return NewConstant(math.Round(g.constVal*p) / p), nil
	}
	r, err := g.Copy(ctx, g.Name)
	if err != nil {
		return nil, err
	}
	p := math.Pow(10, float64(decimals))
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			if v := r.Value(row, col); v != r.NoData {
				r.SetValue(row, col, math.Round(v*p)/p)
			}
		}
	}
	return r, nil
}

// ReplaceValues returns a copy in which every cell with a nonzero mask value
// is replaced by the corresponding cell of val. Mask and val must share
// geometry with g or be constant.
func (g *Grid) ReplaceValues(ctx context.Context, mask, val *Grid) (*Grid, error) {
	r, err := g.Copy(ctx, g.Name)
	if err != nil {
		return nil, err
	}
	for _, o := range []*Grid{mask, val} {
		if err := o.EnsureLoaded(ctx); err != nil {
			return nil, err
		}
		if !o.IsConstant() && !sameGeometry(o, r) {
			return nil, fmt.Errorf("replace operand has mismatched geometry: %s vs %s", o.Extent, r.Extent)
		}
	}
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			m := mask.Value(row, col)
			if !mask.IsConstant() && m == mask.NoData {
				continue
			}
			if m != 0 {
				r.SetValue(row, col, val.Value(row, col))
			}
		}
	}
	return r, nil
}

// BoundingBox trims the grid to the smallest rectangle containing all
// non-NoData cells. A grid with no data cells at all is returned unchanged.
func (g *Grid) BoundingBox(ctx context.Context) (*Grid, error) {
	if g.constant {
		return g.Copy(ctx, g.Name)
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	minRow, minCol := g.NRows(), g.NCols()
	maxRow, maxCol := -1, -1
	for row := 0; row < g.NRows(); row++ {
		for col := 0; col < g.NCols(); col++ {
			if g.IsNoData(row, col) {
				continue
			}
			if row < minRow {
				minRow = row
			}
			if row > maxRow {
				maxRow = row
			}
			if col < minCol {
				minCol = col
			}
			if col > maxCol {
				maxCol = col
			}
		}
	}
	if maxRow < 0 {
		return g.Copy(ctx, g.Name)
	}
	trimmed := Extent{
		XMin: g.Extent.XMin + float64(minCol)*g.CSX,
		YMin: g.Extent.YMax - float64(maxRow+1)*g.CSY,
		XMax: g.Extent.XMin + float64(maxCol+1)*g.CSX,
		YMax: g.Extent.YMax - float64(minRow)*g.CSY,
	}
	return g.Clip(ctx, trimmed)
}

// RedefineNoData remaps the NoData sentinel to newNoData. When the sentinel
// is unchanged the grid itself is returned without copying.
func (g *Grid) RedefineNoData(ctx context.Context, newNoData float64) (*Grid, error) {
	if g.NoData == newNoData {
		return g, nil
	}
	if g.constant {
		c := NewConstant(g.constVal)
		c.NoData = newNoData
		return c, nil
	}
	r, err := g.Copy(ctx, g.Name)
	if err != nil {
		return nil, err
	}
	for row := 0; row < r.NRows(); row++ {
		for col := 0; col < r.NCols(); col++ {
			if r.Value(row, col) == g.NoData {
				r.SetValue(row, col, newNoData)
			}
		}
	}
	r.NoData = newNoData
	return r, nil
}
