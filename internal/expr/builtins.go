package expr

import (
	"context"
	"errors"
	"math"

	"github.com/vk/idfcalc/internal/grid"
)

// RegisterBuiltins installs the calculator's named functions into a
// registry. The set is closed; scripts cannot define functions.
func RegisterBuiltins(r *Registry) {
	r.Register(ifFunc{})
	r.Register(minMaxFunc{name: "min", min: true})
	r.Register(minMaxFunc{name: "max"})
	r.Register(roundFunc{})
	r.Register(resizeFunc{name: "enlarge"})
	r.Register(resizeFunc{name: "clip", clip: true})
	r.Register(scaleFunc{})
	r.Register(bboxFunc{})
	r.Register(cellsizeFunc{})
	r.Register(ndFunc{})
}

// resultType tags a computed function result, collapsing to constant when
// the computation produced a plain value.
func resultType(g *grid.Grid, computed Type) Type {
	if g.IsConstant() {
		return TypeConstant
	}
	return computed
}

// ifFunc implements if(cond, then, else): an elementwise selection. With all
// constant arguments it short-circuits to the chosen constant; otherwise all
// three operands are reconciled to the union of the non-constant extents (or
// the fixed extent) and composed cell by cell.
type ifFunc struct{}

func (ifFunc) Name() string { return "if" }

func (ifFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	cond, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	then, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	els, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	ec := call.evalContext()

	if cond.IsConstant() && then.IsConstant() && els.IsConstant() {
		pick := els
		if cond.ConstValue() != 0 {
			pick = then
		}
		return grid.NewConstant(pick.ConstValue()), TypeConstant, nil
	}

	target, ok := targetExtent(ec, policyUnion, cond, then, els)
	if !ok {
		return nil, TypeUndefined, &TypeError{Func: "if", Msg: "no grid operand to derive an extent from"}
	}
	operands := []*grid.Grid{cond, then, els}
	for i, g := range operands {
		if operands[i], err = reconcileTo(ctx, ec, g, target); err != nil {
			return nil, TypeUndefined, err
		}
	}
	res, err := grid.Where(ctx, operands[0], operands[1], operands[2], ec.nextID())
	if err != nil {
		return nil, TypeUndefined, err
	}
	return res, resultType(res, TypeIfThenElse), nil
}

// minMaxFunc implements min(a, b) and max(a, b). Commutative; both operands
// are reconciled to the first non-constant operand's extent.
type minMaxFunc struct {
	name string
	min  bool
}

func (f minMaxFunc) Name() string { return f.name }

func (f minMaxFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	a, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	b, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	ec := call.evalContext()

	if a.IsConstant() && b.IsConstant() {
		v := math.Max(a.ConstValue(), b.ConstValue())
		if f.min {
			v = math.Min(a.ConstValue(), b.ConstValue())
		}
		return grid.NewConstant(v), TypeConstant, nil
	}

	a2, b2, err := reconcilePair(ctx, ec, a, b)
	if err != nil {
		return nil, TypeUndefined, err
	}
	res, err := grid.MinMax(ctx, a2, b2, f.min, ec.nextID())
	if err != nil {
		return nil, TypeUndefined, err
	}
	return res, resultType(res, TypeFunction), nil
}

// roundFunc implements round(grid, decimals). The decimal count must be
// constant.
type roundFunc struct{}

func (roundFunc) Name() string { return "round" }

func (roundFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	decimals, err := call.ConstArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	res, err := g.Round(ctx, int(decimals))
	if err != nil {
		return nil, TypeUndefined, err
	}
	res.Name = call.evalContext().nextID()
	return res, resultType(res, TypeFunction), nil
}

// resizeFunc implements enlarge(grid, ref) and clip(grid, ref). The
// reference is either a grid operand or four constants spelling an extent.
// Resizing to the current extent is a plain copy.
type resizeFunc struct {
	name string
	clip bool
}

func (f resizeFunc) Name() string { return f.name }

func (f resizeFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	target, err := refExtent(ctx, call)
	if err != nil {
		return nil, TypeUndefined, err
	}
	ec := call.evalContext()

	var res *grid.Grid
	if f.clip {
		res, err = g.Clip(ctx, target)
		if errors.Is(err, grid.ErrDegenerateClip) {
			return degenerateDummy(ctx, ec, g, target), TypeFunction, nil
		}
	} else {
		res, err = g.Enlarge(ctx, target)
	}
	if err != nil {
		return nil, TypeUndefined, err
	}
	res.Name = ec.nextID()
	return res, resultType(res, TypeFunction), nil
}

// refExtent reads the reference of enlarge/clip: one grid argument, or four
// constant coordinates.
func refExtent(ctx context.Context, call *Call) (grid.Extent, error) {
	ref, _, err := call.NextArg(ctx)
	if err != nil {
		return grid.Extent{}, err
	}
	if !call.HasMore() {
		if ref.IsConstant() {
			return grid.Extent{}, &TypeError{Func: call.FuncName(), Arg: 2, Msg: "grid reference or four extent coordinates required"}
		}
		if err := call.End(); err != nil {
			return grid.Extent{}, err
		}
		return ref.Extent, nil
	}
	if !ref.IsConstant() {
		return grid.Extent{}, &TypeError{Func: call.FuncName(), Arg: 2, Msg: "extent coordinates must be constant"}
	}
	coords := [4]float64{ref.ConstValue()}
	for i := 1; i < 4; i++ {
		v, err := call.ConstArg(ctx)
		if err != nil {
			return grid.Extent{}, err
		}
		coords[i] = v
	}
	if err := call.End(); err != nil {
		return grid.Extent{}, err
	}
	return grid.NewExtent(coords[0], coords[1], coords[2], coords[3]), nil
}

// scaleFunc implements scale(grid, cellsize[, downMethod[, upMethod]]).
// Whether the up- or downscale path runs depends on comparing the target
// against the source cellsize; equal cellsizes copy.
type scaleFunc struct{}

func (scaleFunc) Name() string { return "scale" }

func (scaleFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	target, err := call.ConstArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if target <= 0 {
		return nil, TypeUndefined, &TypeError{Func: "scale", Arg: 2, Msg: "cellsize must be positive"}
	}

	down, up := grid.ScaleBlock, grid.ScaleMean
	if call.HasMore() {
		code, err := call.ConstArg(ctx)
		if err != nil {
			return nil, TypeUndefined, err
		}
		if down, err = grid.MethodFromCode(int(code)); err != nil {
			return nil, TypeUndefined, &TypeError{Func: "scale", Arg: 3, Msg: err.Error()}
		}
	}
	if call.HasMore() {
		code, err := call.ConstArg(ctx)
		if err != nil {
			return nil, TypeUndefined, err
		}
		if up, err = grid.MethodFromCode(int(code)); err != nil {
			return nil, TypeUndefined, &TypeError{Func: "scale", Arg: 4, Msg: err.Error()}
		}
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	if g.IsConstant() {
		return nil, TypeUndefined, &TypeError{Func: "scale", Arg: 1, Msg: "grid required"}
	}
	ec := call.evalContext()

	var res *grid.Grid
	const eps = 1e-9
	switch {
	case math.Abs(target-g.CSX) < eps:
		res, err = g.Copy(ctx, ec.nextID())
	case target < g.CSX:
		res, err = g.Downscale(ctx, target, down)
	default:
		res, err = g.Upscale(ctx, target, up)
	}
	if err != nil {
		return nil, TypeUndefined, err
	}
	res.Name = ec.nextID()
	return res, resultType(res, TypeFunction), nil
}

// bboxFunc implements bbox(grid): trim to the minimal rectangle holding all
// data cells.
type bboxFunc struct{}

func (bboxFunc) Name() string { return "bbox" }

func (bboxFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	if g.IsConstant() {
		return nil, TypeUndefined, &TypeError{Func: "bbox", Arg: 1, Msg: "grid required"}
	}
	res, err := g.BoundingBox(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	res.Name = call.evalContext().nextID()
	return res, resultType(res, TypeFunction), nil
}

// cellsizeFunc implements cellsize(grid): the x cellsize as a constant.
type cellsizeFunc struct{}

func (cellsizeFunc) Name() string { return "cellsize" }

func (cellsizeFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	if g.IsConstant() {
		return nil, TypeUndefined, &TypeError{Func: "cellsize", Arg: 1, Msg: "grid required"}
	}
	return grid.NewConstant(g.CSX), TypeConstant, nil
}

// ndFunc implements nd(grid, newNoDataOrGrid): remap the NoData sentinel.
// When the second argument is a grid, its sentinel is adopted. The input is
// only copied when the sentinel actually changes.
type ndFunc struct{}

func (ndFunc) Name() string { return "nd" }

func (ndFunc) Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error) {
	g, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	ref, _, err := call.NextArg(ctx)
	if err != nil {
		return nil, TypeUndefined, err
	}
	if err := call.End(); err != nil {
		return nil, TypeUndefined, err
	}
	newNoData := ref.NoData
	if ref.IsConstant() {
		newNoData = ref.ConstValue()
	}
	res, err := g.RedefineNoData(ctx, newNoData)
	if err != nil {
		return nil, TypeUndefined, err
	}
	return res, resultType(res, TypeFunction), nil
}
