package grid

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/idfcalc/internal/ctxlog"
)

// DefaultNoData is the NoData sentinel used for grids created in memory.
const DefaultNoData = -9999.0

// valueState tracks whether the cell matrix of a file-backed grid is
// resident in memory. The two-state form makes "released" and "never
// loaded" the same thing and removes any nil-versus-empty ambiguity.
type valueState int

const (
	valuesUnloaded valueState = iota
	valuesLoaded
)

// Metadata is the optional provenance record attached to a written grid.
type Metadata struct {
	Source    string // the expression the grid was computed from
	CreatedBy string
}

// Grid is a 2D raster of float32 cells, or a dimensionless constant value.
type Grid struct {
	Name     string
	Filename string // backing IDF file; empty for purely in-memory grids
	Extent   Extent
	CSX      float64 // cellsize along x
	CSY      float64 // cellsize along y
	NoData   float64

	constant bool
	constVal float64

	state valueState
	data  []float32 // row-major, row 0 at YMax
}

// New returns an in-memory grid covering ext with square cells of size cs,
// every cell initialized to the NoData sentinel.
func New(name string, ext Extent, cs, noData float64) *Grid {
	return NewWithCellsizes(name, ext, cs, cs, noData)
}

// NewWithCellsizes is New for grids whose cells are not square.
func NewWithCellsizes(name string, ext Extent, csx, csy, noData float64) *Grid {
	g := &Grid{
		Name:   name,
		Extent: ext,
		CSX:    csx,
		CSY:    csy,
		NoData: noData,
		state:  valuesLoaded,
	}
	g.data = make([]float32, g.NRows()*g.NCols())
	nd := float32(noData)
	for i := range g.data {
		g.data[i] = nd
	}
	return g
}

// NewConstant returns a grid holding a single value with no geometry.
// Constant grids broadcast over any extent they are combined with.
func NewConstant(v float64) *Grid {
	return &Grid{
		Name:     fmt.Sprintf("%g", v),
		NoData:   DefaultNoData,
		constant: true,
		constVal: v,
		state:    valuesLoaded,
	}
}

// IsConstant reports whether the grid is a dimensionless constant.
func (g *Grid) IsConstant() bool { return g.constant }

// ConstValue returns the value of a constant grid. It panics on a
// non-constant grid; callers check IsConstant first.
func (g *Grid) ConstValue() float64 {
	if !g.constant {
		panic("grid: ConstValue on non-constant grid")
	}
	return g.constVal
}

// NCols returns the number of cell columns.
func (g *Grid) NCols() int {
	if g.constant {
		return 1
	}
	return int(math.Round(g.Extent.Width() / g.CSX))
}

// NRows returns the number of cell rows.
func (g *Grid) NRows() int {
	if g.constant {
		return 1
	}
	return int(math.Round(g.Extent.Height() / g.CSY))
}

// Value returns the cell value at (row, col). Row 0 is the northernmost
// row. Constant grids return their value for any index. The matrix must be
// resident; use EnsureLoaded first.
func (g *Grid) Value(row, col int) float64 {
	if g.constant {
		return g.constVal
	}
	if g.state != valuesLoaded {
		panic("grid: Value on unloaded grid")
	}
	return float64(g.data[row*g.NCols()+col])
}

// SetValue stores v at (row, col).
func (g *Grid) SetValue(row, col int, v float64) {
	if g.constant {
		panic("grid: SetValue on constant grid")
	}
	g.data[row*g.NCols()+col] = float32(v)
}

// IsNoData reports whether the cell at (row, col) holds the NoData sentinel.
func (g *Grid) IsNoData(row, col int) bool {
	return g.Value(row, col) == g.NoData
}

// Loaded reports whether the cell matrix is resident in memory.
func (g *Grid) Loaded() bool { return g.state == valuesLoaded }

// EnsureLoaded materializes the cell matrix from the backing file if it is
// not already resident. Constant grids and already loaded grids are no-ops.
func (g *Grid) EnsureLoaded(ctx context.Context) error {
	if g.constant || g.state == valuesLoaded {
		return nil
	}
	if g.Filename == "" {
		return fmt.Errorf("grid %q: values released and no backing file to reload from", g.Name)
	}
	ctxlog.FromContext(ctx).Debug("Reloading grid values.", "grid", g.Name, "file", g.Filename)
	return g.loadValues()
}

// ReleaseMemory drops the cell matrix so it can be reloaded lazily later.
// Grids without a backing file keep their values: releasing them would lose
// data. Constant grids have nothing to release.
func (g *Grid) ReleaseMemory() {
	if g.constant || g.Filename == "" {
		return
	}
	g.data = nil
	g.state = valuesUnloaded
}

// Copy returns a deep copy of the grid under a new name. The copy is
// detached from the source's backing file.
func (g *Grid) Copy(ctx context.Context, name string) (*Grid, error) {
	if g.constant {
		c := NewConstant(g.constVal)
		c.Name = name
		return c, nil
	}
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	c := &Grid{
		Name:   name,
		Extent: g.Extent,
		CSX:    g.CSX,
		CSY:    g.CSY,
		NoData: g.NoData,
		state:  valuesLoaded,
		data:   make([]float32, len(g.data)),
	}
	copy(c.data, g.data)
	return c, nil
}

// sameGeometry reports whether two non-constant grids share extent and
// cellsize, i.e. their cells line up one to one.
func sameGeometry(a, b *Grid) bool {
	return a.Extent.Equal(b.Extent) && a.CSX == b.CSX && a.CSY == b.CSY
}
