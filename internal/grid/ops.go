package grid

import (
	"context"
	"fmt"
	"math"
)

// BinOp identifies an elementwise binary operation between two grids.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpEq
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpAnd
	OpOr
)

// String returns the operator spelling used in expressions.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	}
	return "?"
}

// apply evaluates the operation for a single pair of cell values. Division
// by zero yields NaN, which the caller maps to NoData.
func (op BinOp) apply(x, y float64) float64 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		if y == 0 {
			return math.NaN()
		}
		return x / y
	case OpPow:
		return math.Pow(x, y)
	case OpEq:
		return boolCell(x == y)
	case OpNe:
		return boolCell(x != y)
	case OpGt:
		return boolCell(x > y)
	case OpGe:
		return boolCell(x >= y)
	case OpLt:
		return boolCell(x < y)
	case OpLe:
		return boolCell(x <= y)
	case OpAnd:
		return boolCell(x != 0 && y != 0)
	case OpOr:
		return boolCell(x != 0 || y != 0)
	}
	return math.NaN()
}

func boolCell(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// mask reports whether op yields a 0/1-valued result. Comparisons and
// logical connectives evaluate on raw cell values instead of propagating
// NoData, so a grid can be tested against its own sentinel.
func (op BinOp) mask() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpAnd, OpOr:
		return true
	}
	return false
}

// Combine applies op elementwise to a and b and returns the result as a new
// grid named name. Constant operands broadcast; two constant operands yield
// a constant result. Non-constant operands must already share geometry,
// which the extent reconciler guarantees. For arithmetic ops NoData in
// either operand propagates to the result; mask ops compare raw values.
func Combine(ctx context.Context, op BinOp, a, b *Grid, name string) (*Grid, error) {
	if a.IsConstant() && b.IsConstant() {
		v := op.apply(a.ConstValue(), b.ConstValue())
		if math.IsNaN(v) {
			v = DefaultNoData
		}
		c := NewConstant(v)
		c.Name = name
		return c, nil
	}

	// The result takes its geometry from the first non-constant operand.
	ref := a
	if ref.IsConstant() {
		ref = b
	}
	if !a.IsConstant() && !b.IsConstant() && !sameGeometry(a, b) {
		return nil, fmt.Errorf("operands of %q have mismatched geometry: %s vs %s", op, a.Extent, b.Extent)
	}
	if err := a.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if err := b.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	r := NewWithCellsizes(name, ref.Extent, ref.CSX, ref.CSY, ref.NoData)
	rows, cols := ref.NRows(), ref.NCols()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := a.Value(row, col)
			y := b.Value(row, col)
			if !op.mask() && ((!a.IsConstant() && x == a.NoData) || (!b.IsConstant() && y == b.NoData)) {
				continue // result cell stays NoData
			}
			v := op.apply(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			r.SetValue(row, col, v)
		}
	}
	return r, nil
}

// Where composes an elementwise selection: cells where cond is nonzero take
// their value from a, all others from b. NoData in cond propagates. The
// result takes its geometry from the first non-constant input.
func Where(ctx context.Context, cond, a, b *Grid, name string) (*Grid, error) {
	ref := cond
	for _, g := range []*Grid{cond, a, b} {
		if !g.IsConstant() {
			ref = g
			break
		}
	}
	if ref.IsConstant() {
		// All three constant; the caller's fast path normally handles this.
		if cond.ConstValue() != 0 {
			return NewConstant(a.ConstValue()), nil
		}
		return NewConstant(b.ConstValue()), nil
	}
	for _, g := range []*Grid{cond, a, b} {
		if err := g.EnsureLoaded(ctx); err != nil {
			return nil, err
		}
		if !g.IsConstant() && !sameGeometry(g, ref) {
			return nil, fmt.Errorf("operands of if() have mismatched geometry: %s vs %s", g.Extent, ref.Extent)
		}
	}

	r := NewWithCellsizes(name, ref.Extent, ref.CSX, ref.CSY, ref.NoData)
	rows, cols := ref.NRows(), ref.NCols()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := cond.Value(row, col)
			if !cond.IsConstant() && c == cond.NoData {
				continue
			}
			src := b
			if c != 0 {
				src = a
			}
			v := src.Value(row, col)
			if !src.IsConstant() && v == src.NoData {
				continue
			}
			r.SetValue(row, col, v)
		}
	}
	return r, nil
}

// MinMax applies an elementwise minimum (when min is true) or maximum to a
// and b: it takes a and replaces every cell where b compares tighter.
func MinMax(ctx context.Context, a, b *Grid, min bool, name string) (*Grid, error) {
	if a.IsConstant() && b.IsConstant() {
		v := math.Max(a.ConstValue(), b.ConstValue())
		if min {
			v = math.Min(a.ConstValue(), b.ConstValue())
		}
		c := NewConstant(v)
		c.Name = name
		return c, nil
	}
	// Commutative; keep a non-constant carrier for the copy.
	if a.IsConstant() {
		a, b = b, a
	}
	op := OpGt
	if min {
		op = OpLt
	}
	mask, err := Combine(ctx, op, b, a, name+"_mask")
	if err != nil {
		return nil, err
	}
	r, err := a.ReplaceValues(ctx, mask, b)
	if err != nil {
		return nil, err
	}
	r.Name = name
	return r, nil
}
