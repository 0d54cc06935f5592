package expr

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/vk/idfcalc/internal/ctxlog"
	"github.com/vk/idfcalc/internal/grid"
)

// extentPolicy selects how a reconciliation target is derived from the
// operands when no fixed extent is configured.
type extentPolicy int

const (
	// policyFirst targets the first non-constant operand's extent. Used for
	// arithmetic merges and min/max.
	policyFirst extentPolicy = iota
	// policyUnion targets the union of all non-constant operand extents.
	// Used for if().
	policyUnion
)

// targetExtent computes the extent all operands must be aligned to. The
// second result is false when every operand is constant and no fixed extent
// is configured, in which case no alignment is needed.
func targetExtent(ec *Context, pol extentPolicy, operands ...*grid.Grid) (grid.Extent, bool) {
	if ec.FixedExtent != nil {
		return *ec.FixedExtent, true
	}
	var target grid.Extent
	found := false
	for _, g := range operands {
		if g == nil || g.IsConstant() {
			continue
		}
		if !found {
			target = g.Extent
			found = true
		} else if pol == policyUnion {
			target = target.Union(g.Extent)
		}
		if pol == policyFirst {
			break
		}
	}
	return target, found
}

// reconcilePair aligns both operands of a binary operation to the shared
// target extent.
func reconcilePair(ctx context.Context, ec *Context, a, b *grid.Grid) (*grid.Grid, *grid.Grid, error) {
	target, ok := targetExtent(ec, policyFirst, a, b)
	if !ok {
		return a, b, nil
	}
	a2, err := reconcileTo(ctx, ec, a, target)
	if err != nil {
		return nil, nil, err
	}
	b2, err := reconcileTo(ctx, ec, b, target)
	if err != nil {
		return nil, nil, err
	}
	return a2, b2, nil
}

// reconcileTo returns g aligned to the target extent. Constant grids
// broadcast and are exempt; a grid already at the target is returned
// untouched. Otherwise the grid is enlarged and/or clipped until its extent
// equals the target.
func reconcileTo(ctx context.Context, ec *Context, g *grid.Grid, target grid.Extent) (*grid.Grid, error) {
	if g.IsConstant() || g.Extent.Equal(target) {
		return g, nil
	}
	out := g
	var err error
	if !out.Extent.Contains(target) {
		out, err = out.Enlarge(ctx, target)
		if err != nil {
			return nil, err
		}
	}
	if !target.Contains(out.Extent) {
		out, err = out.Clip(ctx, target)
		if errors.Is(err, grid.ErrDegenerateClip) {
			return degenerateDummy(ctx, ec, g, target), nil
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// degenerateDummy stands in for a clip to a zero-area region: a 1x1 grid
// valued 1. Legacy behavior, kept for script compatibility.
func degenerateDummy(ctx context.Context, ec *Context, g *grid.Grid, target grid.Extent) *grid.Grid {
	ctxlog.FromContext(ctx).Warn("Clip to degenerate extent; substituting 1x1 dummy grid.",
		"grid", g.Name, "target", target.String())
	cs := g.CSX
	if cs <= 0 {
		cs = 1
	}
	dummy := grid.New(ec.nextID(), grid.NewExtent(target.XMin, target.YMin, target.XMin+cs, target.YMin+cs), cs, grid.DefaultNoData)
	dummy.SetValue(0, 0, 1)
	return dummy
}

// debugEmit writes an intermediate grid and its expanded expression text to
// the debug side channel when debug mode is on. Emission failures only warn;
// they never fail the evaluation.
func debugEmit(ctx context.Context, st *state, g *grid.Grid, expanded string) {
	if !st.ec.Debug {
		return
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Intermediate result.", "id", g.Name, "expression", expanded)
	if g.IsConstant() || st.ec.OutputPath == "" {
		return
	}
	dir := filepath.Join(st.ec.OutputPath, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Cannot create debug directory.", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, g.Name+".idf")
	if err := g.Write(ctx, path, &grid.Metadata{Source: expanded}); err != nil {
		logger.Warn("Cannot write debug grid.", "file", path, "error", err)
	}
}
