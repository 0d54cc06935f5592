package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/idfcalc/internal/grid"
)

func TestReconcileTo_IdempotentAtTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ec := newTestContext(nil)

	g := dataGrid(t)

	// Already at the target: the exact same grid comes back, no copy.
	out, err := reconcileTo(ctx, ec, g, g.Extent)
	require.NoError(t, err)
	require.Same(t, g, out)
}

func TestReconcileTo_ConstantExempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ec := newTestContext(nil)

	c := grid.NewConstant(3)
	out, err := reconcileTo(ctx, ec, c, grid.NewExtent(0, 0, 10, 10))
	require.NoError(t, err)
	require.Same(t, c, out)
}

func TestReconcileTo_EnlargeAndClip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ec := newTestContext(nil)

	g := dataGrid(t) // (0,0)-(4,4)

	// Overlapping target: the grid is enlarged, then clipped down.
	target := grid.NewExtent(2, 2, 6, 6)
	out, err := reconcileTo(ctx, ec, g, target)
	require.NoError(t, err)
	require.Equal(t, target, out.Extent)
	// The overlap keeps its values; cells above the source's YMax are NoData.
	// Result row 2 covers world y 3..4, the source's top row.
	require.Equal(t, 2.0, out.Value(2, 0))
	require.Equal(t, 13.0, out.Value(3, 1))
	require.True(t, out.IsNoData(0, 2))
}

func TestReconcileTo_DisjointTargetYieldsDummy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ec := newTestContext(nil)

	g := dataGrid(t)
	out, err := reconcileTo(ctx, ec, g, grid.NewExtent(100, 100, 102, 102))
	require.NoError(t, err)
	require.Equal(t, 1, out.NRows())
	require.Equal(t, 1.0, out.Value(0, 0))
}

func TestTargetExtent_Policies(t *testing.T) {
	t.Parallel()
	ec := newTestContext(nil)

	a := grid.New("a", grid.NewExtent(0, 0, 4, 4), 1, grid.DefaultNoData)
	b := grid.New("b", grid.NewExtent(2, 2, 6, 6), 1, grid.DefaultNoData)
	c := grid.NewConstant(1)

	target, ok := targetExtent(ec, policyFirst, c, a, b)
	require.True(t, ok)
	require.Equal(t, a.Extent, target)

	target, ok = targetExtent(ec, policyUnion, a, b)
	require.True(t, ok)
	require.Equal(t, grid.NewExtent(0, 0, 6, 6), target)

	_, ok = targetExtent(ec, policyFirst, c)
	require.False(t, ok)
}

func TestTargetExtent_FixedOverride(t *testing.T) {
	t.Parallel()
	ec := newTestContext(nil)
	fixed := grid.NewExtent(0, 0, 2, 2)
	ec.FixedExtent = &fixed

	a := grid.New("a", grid.NewExtent(0, 0, 4, 4), 1, grid.DefaultNoData)
	target, ok := targetExtent(ec, policyFirst, a)
	require.True(t, ok)
	require.Equal(t, fixed, target)
}

func TestEvaluate_ReconcilesMismatchedExtents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := grid.New("a", grid.NewExtent(0, 0, 4, 4), 1, grid.DefaultNoData)
	b := grid.New("b", grid.NewExtent(1, 1, 5, 5), 1, grid.DefaultNoData)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			a.SetValue(row, col, 2)
			b.SetValue(row, col, 3)
		}
	}
	ec := newTestContext(mapVars{"A": a, "B": b})

	// B is aligned to A's extent before the merge.
	res, _, err := Evaluate(ctx, ec, "A+B")
	require.NoError(t, err)
	require.Equal(t, a.Extent, res.Extent)
	// The overlap holds the sum; cells B never covered stay NoData.
	require.Equal(t, 5.0, res.Value(1, 1))
	require.True(t, res.IsNoData(3, 0))
}
