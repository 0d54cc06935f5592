package expr

import (
	"context"

	"github.com/vk/idfcalc/internal/grid"
)

// mergeCells folds an ordered cell list into a single cell. Two adjacent
// cells merge iff the left action's priority is at least the right's; when
// the right cell binds tighter, exactly one merge is folded on the right
// side first, then the pair is retried. This realizes left-to-right,
// left-associative, precedence-aware evaluation without a parse tree.
func mergeCells(ctx context.Context, st *state, cells []cell) (cell, error) {
	left := cells[0]
	rest := cells[1:]
	merges := 0
	for len(rest) > 0 {
		right := rest[0]
		if left.act.priority() >= right.act.priority() {
			m, err := mergePair(ctx, st, left, right)
			if err != nil {
				return cell{}, err
			}
			left = m
			rest = rest[1:]
			merges++
			continue
		}
		folded, err := foldOnce(ctx, st, rest)
		if err != nil {
			return cell{}, err
		}
		rest = folded
		merges++
	}
	if left.noData {
		// A lone NoData literal: nothing to borrow a sentinel from.
		left.value = grid.NewConstant(st.ec.noDataLiteral(nil))
		left.noData = false
	}
	if merges > 1 && left.typ != TypeConstant {
		left.typ = TypeComplex
	}
	return left, nil
}

// foldOnce performs exactly one merge somewhere in the head of cells,
// recursing right while the successor binds tighter.
func foldOnce(ctx context.Context, st *state, cells []cell) ([]cell, error) {
	left, right := cells[0], cells[1]
	if left.act.priority() >= right.act.priority() {
		m, err := mergePair(ctx, st, left, right)
		if err != nil {
			return nil, err
		}
		return append([]cell{m}, cells[2:]...), nil
	}
	folded, err := foldOnce(ctx, st, cells[1:])
	if err != nil {
		return nil, err
	}
	return append([]cell{left}, folded...), nil
}

// mergePair applies the left cell's operator to both values and returns the
// merged cell carrying the right cell's action.
func mergePair(ctx context.Context, st *state, left, right cell) (cell, error) {
	ec := st.ec

	// The NoData literal takes the other operand's sentinel at merge time,
	// so a grid can be tested against its own NoData value.
	if left.noData {
		left.value = grid.NewConstant(ec.noDataLiteral(right.value))
	}
	if right.noData {
		right.value = grid.NewConstant(ec.noDataLiteral(left.value))
	}

	op, ok := left.act.binOp()
	if !ok {
		return cell{}, &SyntaxError{Expr: st.cur.src, Msg: "cannot merge on operator " + string(left.act)}
	}

	a, b, err := reconcilePair(ctx, ec, left.value, right.value)
	if err != nil {
		return cell{}, err
	}
	id := ec.nextID()
	res, err := grid.Combine(ctx, op, a, b, id)
	if err != nil {
		return cell{}, err
	}

	// A constant result can only come from constant operands, however they
	// were bound; such merges cost no grid I/O and stay Constant.
	typ := TypeArithmetic
	if res.IsConstant() {
		typ = TypeConstant
	}
	merged := cell{
		value: res,
		expr:  left.expr + string(left.act) + right.expr,
		act:   right.act,
		id:    id,
		depth: left.depth,
		typ:   typ,
	}
	debugEmit(ctx, st, res, merged.expr)
	return merged, nil
}

// noDataLiteral returns the value the NoData literal stands for when merged
// against other. The configured override wins; otherwise the other
// operand's sentinel is used, falling back to the default.
func (ec *Context) noDataLiteral(other *grid.Grid) float64 {
	if ec.NoDataValue != nil {
		return *ec.NoDataValue
	}
	if other != nil {
		return other.NoData
	}
	return grid.DefaultNoData
}
