package grid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// testGrid builds a 4x4 grid with cellsize 1 over (0,0)-(4,4), cell values
// row*10+col, row 0 at the top.
func testGrid(t *testing.T, name string) *Grid {
	t.Helper()
	g := New(name, NewExtent(0, 0, 4, 4), 1, DefaultNoData)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			g.SetValue(row, col, float64(row*10+col))
		}
	}
	return g
}

func TestExtent_Operations(t *testing.T) {
	t.Parallel()

	a := NewExtent(0, 0, 4, 4)
	b := NewExtent(2, 2, 6, 6)

	require.True(t, a.Equal(NewExtent(0, 0, 4, 4)))
	require.False(t, a.Equal(b))
	require.True(t, a.Contains(NewExtent(1, 1, 3, 3)))
	require.False(t, a.Contains(b))
	require.Equal(t, NewExtent(0, 0, 6, 6), a.Union(b))
	require.Equal(t, NewExtent(2, 2, 4, 4), a.Intersect(b))
	require.True(t, a.Intersect(NewExtent(5, 5, 6, 6)).IsDegenerate())
}

func TestExtent_Snap(t *testing.T) {
	t.Parallel()

	e := NewExtent(0.4, 0.6, 3.2, 3.9)
	require.Equal(t, NewExtent(0, 0, 4, 4), e.Snap(1, 1))
	// Already aligned extents are untouched.
	require.Equal(t, NewExtent(0, 0, 4, 4), NewExtent(0, 0, 4, 4).Snap(1, 1))
}

func TestCombine_Arithmetic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := testGrid(t, "a")
	b := testGrid(t, "b")

	sum, err := Combine(ctx, OpAdd, a, b, "sum")
	require.NoError(t, err)
	require.Equal(t, 2.0, sum.Value(0, 1))
	require.Equal(t, 66.0, sum.Value(3, 3))
}

func TestCombine_ConstantBroadcast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	c := NewConstant(2)

	scaled, err := Combine(ctx, OpMul, g, c, "scaled")
	require.NoError(t, err)
	require.False(t, scaled.IsConstant())
	require.Equal(t, g.Extent, scaled.Extent)
	require.Equal(t, 22.0, scaled.Value(1, 1))
}

func TestCombine_BothConstant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, err := Combine(ctx, OpPow, NewConstant(2), NewConstant(10), "r")
	require.NoError(t, err)
	require.True(t, r.IsConstant())
	require.Equal(t, 1024.0, r.ConstValue())
}

func TestCombine_NoDataPropagates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := testGrid(t, "a")
	a.SetValue(2, 2, a.NoData)
	b := testGrid(t, "b")

	sum, err := Combine(ctx, OpAdd, a, b, "sum")
	require.NoError(t, err)
	require.True(t, sum.IsNoData(2, 2))
	require.False(t, sum.IsNoData(2, 3))
}

func TestCombine_DivisionByZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := testGrid(t, "a")
	zero := NewConstant(0)

	q, err := Combine(ctx, OpDiv, a, zero, "q")
	require.NoError(t, err)
	require.True(t, q.IsNoData(1, 1))
}

func TestCombine_Comparison(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	mask, err := Combine(ctx, OpGt, g, NewConstant(15), "mask")
	require.NoError(t, err)
	require.Equal(t, 0.0, mask.Value(0, 0))
	require.Equal(t, 1.0, mask.Value(2, 0))
}

func TestCombine_ComparisonSeesSentinel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	g.SetValue(1, 1, g.NoData)

	mask, err := Combine(ctx, OpEq, g, NewConstant(g.NoData), "mask")
	require.NoError(t, err)
	require.Equal(t, 1.0, mask.Value(1, 1))
	require.Equal(t, 0.0, mask.Value(0, 0))
}

func TestWhere_Selects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	mask, err := Combine(ctx, OpGe, g, NewConstant(20), "mask")
	require.NoError(t, err)

	sel, err := Where(ctx, mask, NewConstant(1), NewConstant(0), "sel")
	require.NoError(t, err)
	require.Equal(t, 0.0, sel.Value(0, 0))
	require.Equal(t, 1.0, sel.Value(2, 0))
}

func TestReplaceValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	mask, err := Combine(ctx, OpGt, g, NewConstant(30), "mask")
	require.NoError(t, err)

	r, err := g.ReplaceValues(ctx, mask, NewConstant(-1))
	require.NoError(t, err)
	require.Equal(t, -1.0, r.Value(3, 1))
	require.Equal(t, 30.0, r.Value(3, 0))
	// The input grid is untouched.
	require.Equal(t, 31.0, g.Value(3, 1))
}

func TestMinMax_Elementwise(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	capped, err := MinMax(ctx, g, NewConstant(10), true, "capped")
	require.NoError(t, err)
	require.Equal(t, 3.0, capped.Value(0, 3))
	require.Equal(t, 10.0, capped.Value(3, 3))
}

func TestClip_And_Enlarge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")

	clipped, err := g.Clip(ctx, NewExtent(1, 1, 3, 3))
	require.NoError(t, err)
	require.Equal(t, NewExtent(1, 1, 3, 3), clipped.Extent)
	require.Equal(t, 2, clipped.NRows())
	// The top-left cell of the clip window was row 1, col 1 in the source.
	require.Equal(t, 11.0, clipped.Value(0, 0))

	enlarged, err := clipped.Enlarge(ctx, g.Extent)
	require.NoError(t, err)
	require.Equal(t, g.Extent, enlarged.Extent)
	require.Equal(t, 11.0, enlarged.Value(1, 1))
	require.True(t, enlarged.IsNoData(0, 0))
}

func TestClip_Degenerate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := testGrid(t, "g")
	_, err := g.Clip(ctx, NewExtent(10, 10, 12, 12))
	require.ErrorIs(t, err, ErrDegenerateClip)
}

func TestRound_Decimals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 1, 1), 1, DefaultNoData)
	g.SetValue(0, 0, 1.23456)

	r, err := g.Round(ctx, 2)
	require.NoError(t, err)
	require.InDelta(t, 1.23, r.Value(0, 0), 1e-6)
}

func TestBoundingBox_Trims(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 4, 4), 1, DefaultNoData)
	g.SetValue(1, 1, 5)
	g.SetValue(2, 2, 7)

	b, err := g.BoundingBox(ctx)
	require.NoError(t, err)
	require.Equal(t, NewExtent(1, 1, 3, 3), b.Extent)
	require.Equal(t, 5.0, b.Value(0, 0))
}

func TestBoundingBox_AllNoData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 2, 2), 1, DefaultNoData)
	b, err := g.BoundingBox(ctx)
	require.NoError(t, err)
	require.Equal(t, g.Extent, b.Extent)
}

func TestRedefineNoData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 2, 2), 1, -9999)
	g.SetValue(0, 0, 3)

	// Unchanged sentinel: no copy at all.
	same, err := g.RedefineNoData(ctx, -9999)
	require.NoError(t, err)
	require.Same(t, g, same)

	r, err := g.RedefineNoData(ctx, -1)
	require.NoError(t, err)
	require.NotSame(t, g, r)
	require.Equal(t, -1.0, r.NoData)
	require.Equal(t, -1.0, r.Value(0, 1))
	require.Equal(t, 3.0, r.Value(0, 0))
}

func TestScale_DownscaleBlock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 2, 2), 1, DefaultNoData)
	g.SetValue(0, 0, 1)
	g.SetValue(0, 1, 2)
	g.SetValue(1, 0, 3)
	g.SetValue(1, 1, 4)

	fine, err := g.Downscale(ctx, 0.5, ScaleBlock)
	require.NoError(t, err)
	require.Equal(t, 4, fine.NCols())
	require.Equal(t, 1.0, fine.Value(0, 0))
	require.Equal(t, 1.0, fine.Value(1, 1))
	require.Equal(t, 2.0, fine.Value(0, 2))
	require.Equal(t, 4.0, fine.Value(3, 3))
}

func TestScale_UpscaleMean(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 2, 2), 1, DefaultNoData)
	g.SetValue(0, 0, 1)
	g.SetValue(0, 1, 2)
	g.SetValue(1, 0, 3)
	g.SetValue(1, 1, 4)

	coarse, err := g.Upscale(ctx, 2, ScaleMean)
	require.NoError(t, err)
	require.Equal(t, 1, coarse.NCols())
	require.Equal(t, 2.5, coarse.Value(0, 0))

	sum, err := g.Upscale(ctx, 2, ScaleSum)
	require.NoError(t, err)
	require.Equal(t, 10.0, sum.Value(0, 0))
}

func TestScale_UpscaleIgnoresNoData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g := New("g", NewExtent(0, 0, 2, 2), 1, DefaultNoData)
	g.SetValue(0, 0, 2)
	g.SetValue(0, 1, 4)
	// The bottom row stays NoData.

	coarse, err := g.Upscale(ctx, 2, ScaleMean)
	require.NoError(t, err)
	require.Equal(t, 3.0, coarse.Value(0, 0))
}
