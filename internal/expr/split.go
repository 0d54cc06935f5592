package expr

import (
	"context"
	"strconv"
	"strings"

	"github.com/vk/idfcalc/internal/grid"
)

// operatorChars are the bytes that can begin an operator.
const operatorChars = "*/+-^><=!&|"

// action is the operator trailing a cell, or actionEnd for the final cell.
type action string

const actionEnd action = ""

// priority orders operators for the merger. Higher binds tighter; comparisons
// bind tighter than the logical connectives so a chained condition like
// 1>0&&2>1 groups as (1>0)&&(2>1). The end sentinel has the lowest priority
// so the final cell never merges away.
func (a action) priority() int {
	switch a {
	case "^":
		return 5
	case "*", "/":
		return 4
	case "+", "-":
		return 3
	case "==", "!=", ">", ">=", "<", "<=":
		return 2
	case "&&", "||":
		return 1
	case actionEnd:
		return 0
	default:
		return 1
	}
}

// binOp maps an action to its grid operation.
func (a action) binOp() (grid.BinOp, bool) {
	switch a {
	case "+":
		return grid.OpAdd, true
	case "-":
		return grid.OpSub, true
	case "*":
		return grid.OpMul, true
	case "/":
		return grid.OpDiv, true
	case "^":
		return grid.OpPow, true
	case "==":
		return grid.OpEq, true
	case "!=":
		return grid.OpNe, true
	case ">":
		return grid.OpGt, true
	case ">=":
		return grid.OpGe, true
	case "<":
		return grid.OpLt, true
	case "<=":
		return grid.OpLe, true
	case "&&":
		return grid.OpAnd, true
	case "||":
		return grid.OpOr, true
	}
	return 0, false
}

// cell pairs a resolved operand with the operator that follows it.
type cell struct {
	value  *grid.Grid
	token  string
	expr   string // expanded source text, placeholders restored
	act    action
	id     string
	depth  int
	typ    Type
	noData bool // operand was the NoData literal; resolved at merge time
}

// state bundles what one evaluation threads through the recursion: the
// shared context, the cursor, and the placeholder table.
type state struct {
	ec   *Context
	cur  *cursor
	prep *prepared
}

// evalSub splits and merges one (sub)expression, stopping before any byte in
// terms. It is the recursion point for parenthesized groups and function
// arguments.
func evalSub(ctx context.Context, st *state, terms string, depth int) (*grid.Grid, Type, error) {
	cells, err := split(ctx, st, terms, depth)
	if err != nil {
		return nil, TypeUndefined, err
	}
	res, err := mergeCells(ctx, st, cells)
	if err != nil {
		return nil, TypeUndefined, err
	}
	return res.value, res.typ, nil
}

// stillCollecting reports whether ch extends the current token. A leading
// '-' is part of the token (unary minus), as are '+' and '-' directly after
// the exponent marker of a number in scientific notation.
func stillCollecting(tok []byte, ch byte, terms string) bool {
	if strings.IndexByte(terms, ch) >= 0 || ch == '(' {
		return false
	}
	if strings.IndexByte(operatorChars, ch) < 0 {
		return true
	}
	if ch == '-' && len(tok) == 0 {
		return true
	}
	if (ch == '+' || ch == '-') && len(tok) > 0 {
		last := tok[len(tok)-1]
		if (last == 'E' || last == 'e') && numericStart(tok) {
			return true
		}
	}
	return false
}

// numericStart reports whether the token so far could be a number literal.
func numericStart(tok []byte) bool {
	c := tok[0]
	return c >= '0' && c <= '9' || c == '-' || c == '.'
}

// split tokenizes one expression level into an ordered cell list. The cursor
// stops at (without consuming) the first byte in terms, or at the end of the
// text when terms is empty.
func split(ctx context.Context, st *state, terms string, depth int) ([]cell, error) {
	if depth > st.ec.MaxDepth {
		return nil, &SyntaxError{Expr: st.cur.src, Msg: "expression nesting exceeds maximum depth " + strconv.Itoa(st.ec.MaxDepth)}
	}

	var cells []cell
	var tok []byte
	for {
		ch, ok := st.cur.peek()
		if ok && stillCollecting(tok, ch, terms) {
			st.cur.next()
			tok = append(tok, ch)
			continue
		}

		// Token boundary: resolve the operand.
		var c cell
		var err error
		if ok && ch == '(' {
			c, err = resolveParen(ctx, st, string(tok), depth)
		} else if len(tok) == 0 {
			err = &SyntaxError{Expr: st.cur.src, Msg: "missing operand"}
		} else {
			c, err = resolveToken(ctx, st, string(tok), depth)
		}
		if err != nil {
			return nil, err
		}

		// Determine the trailing action.
		ch, ok = st.cur.peek()
		switch {
		case !ok || strings.IndexByte(terms, ch) >= 0:
			c.act = actionEnd
		default:
			act, err := readOperator(st)
			if err != nil {
				return nil, err
			}
			c.act = act
		}
		cells = append(cells, c)
		if c.act == actionEnd {
			return cells, nil
		}
		tok = tok[:0]
	}
}

// readOperator consumes a one- or two-byte operator at the cursor.
func readOperator(st *state) (action, error) {
	first, _ := st.cur.next()
	if second, ok := st.cur.peek(); ok {
		two := action([]byte{first, second})
		switch two {
		case "==", "!=", ">=", "<=", "&&", "||":
			st.cur.next()
			return two, nil
		}
	}
	switch first {
	case '*', '/', '+', '-', '^', '>', '<':
		return action([]byte{first}), nil
	}
	return actionEnd, &SyntaxError{Expr: st.cur.src, Msg: "invalid operator " + string(first)}
}

// resolveParen handles a '(' at a token boundary: a plain group when no
// token precedes it, otherwise a function call named by the token.
func resolveParen(ctx context.Context, st *state, name string, depth int) (cell, error) {
	st.cur.next() // consume '('
	start := st.cur.pos

	if name == "" {
		g, typ, err := evalSub(ctx, st, ")", depth+1)
		if err != nil {
			return cell{}, err
		}
		st.cur.next() // consume ')'
		return cell{
			value: g,
			expr:  "(" + st.prep.restore(st.cur.slice(start, st.cur.pos-1)) + ")",
			depth: depth,
			typ:   typ,
		}, nil
	}

	fn, ok := st.ec.Funcs.Lookup(name)
	if !ok {
		return cell{}, &ResolutionError{Token: name}
	}
	call := newCall(st, strings.ToLower(name), depth+1)
	g, typ, err := fn.Eval(ctx, call)
	if err != nil {
		return cell{}, err
	}
	expanded := name + "(" + st.prep.restore(st.cur.slice(start, st.cur.pos-1)) + ")"
	debugEmit(ctx, st, g, expanded)
	return cell{
		value: g,
		token: name,
		expr:  expanded,
		id:    g.Name,
		depth: depth,
		typ:   typ,
	}, nil
}

// resolveToken resolves a bare token: the NoData literal, a number, a bound
// variable (directly or through a placeholder), or a grid filename.
func resolveToken(ctx context.Context, st *state, tok string, depth int) (cell, error) {
	c := cell{token: tok, expr: st.prep.restore(tok), depth: depth}

	if strings.EqualFold(tok, "NoData") {
		// Resolved at merge time against the other operand's sentinel.
		c.noData = true
		c.typ = TypeConstant
		c.id = st.ec.nextID()
		return c, nil
	}

	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		c.value = grid.NewConstant(v)
		c.typ = TypeConstant
		c.id = st.ec.nextID()
		return c, nil
	}

	// A leading '-' negates whatever the rest resolves to.
	negated := false
	name := tok
	if strings.HasPrefix(name, "-") {
		negated = true
		name = name[1:]
	}

	g, typ, err := lookupOperand(ctx, st, name)
	if err != nil {
		return cell{}, err
	}
	if g == nil {
		return cell{}, &ResolutionError{Token: tok}
	}
	if negated {
		g, err = grid.Combine(ctx, grid.OpMul, grid.NewConstant(-1), g, st.ec.nextID())
		if err != nil {
			return cell{}, err
		}
	}
	c.value = g
	c.typ = typ
	c.id = st.ec.nextID()
	return c, nil
}

// lookupOperand tries variable and file resolution for a name. A nil grid
// with nil error means the name matched nothing.
func lookupOperand(ctx context.Context, st *state, name string) (*grid.Grid, Type, error) {
	if orig, ok := st.prep.variable(name); ok {
		name = orig
	}
	if st.ec.Vars != nil {
		g, ok, err := st.ec.Vars.ResolveVariable(ctx, name)
		if err != nil {
			return nil, TypeUndefined, err
		}
		if ok {
			// The variable is about to be used numerically, so force its
			// values to materialize now.
			if err := g.EnsureLoaded(ctx); err != nil {
				return nil, TypeUndefined, err
			}
			return g, TypeVariable, nil
		}
	}
	if strings.HasSuffix(strings.ToLower(name), ".idf") {
		g, err := st.ec.OpenGridFile(ctx, name)
		if err != nil {
			return nil, TypeUndefined, err
		}
		return g, TypeFile, nil
	}
	return nil, TypeUndefined, nil
}
