package expr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/idfcalc/internal/grid"
)

// Function is a named expression function such as min or clip. Eval consumes
// the function's argument list through the Call and returns the computed
// grid with its provenance type. Function names are case-insensitive.
type Function interface {
	Name() string
	Eval(ctx context.Context, call *Call) (*grid.Grid, Type, error)
}

// Registry maps function names to their implementations for a single
// evaluation context instance.
type Registry struct {
	funcs map[string]Function
}

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Register adds a function to the registry. Registering the same name twice
// is a programmer error and panics.
func (r *Registry) Register(fn Function) {
	name := strings.ToLower(fn.Name())
	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("expression function %q already registered", name))
	}
	slog.Debug("Registering expression function.", "name", name)
	r.funcs[name] = fn
}

// Lookup resolves a function by name.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.funcs[strings.ToLower(name)]
	return fn, ok
}

// Names returns the registered function names, for error messages.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// Call gives a Function sequential access to its argument list. Each NextArg
// evaluates one argument expression, recursing through the splitter and
// merger, and consumes the ',' or ')' that terminates it.
type Call struct {
	st    *state
	fn    string
	depth int
	n     int
	more  bool // the previous terminator was ',' (or the list hasn't started)
}

func newCall(st *state, fn string, depth int) *Call {
	return &Call{st: st, fn: fn, depth: depth, more: true}
}

// FuncName returns the name the function was invoked under.
func (c *Call) FuncName() string { return c.fn }

// HasMore reports whether another argument follows.
func (c *Call) HasMore() bool { return c.more }

// NextArg evaluates the next argument. Asking for an argument that is not
// there is a TypeError.
func (c *Call) NextArg(ctx context.Context) (*grid.Grid, Type, error) {
	if !c.more {
		return nil, TypeUndefined, &TypeError{Func: c.fn, Arg: c.n + 1, Msg: "missing argument"}
	}
	g, typ, err := evalSub(ctx, c.st, ",)", c.depth)
	if err != nil {
		return nil, TypeUndefined, err
	}
	term, ok := c.st.cur.next()
	if !ok {
		return nil, TypeUndefined, &SyntaxError{Expr: c.st.cur.src, Msg: "unterminated argument list of " + c.fn}
	}
	c.more = term == ','
	c.n++
	return g, typ, nil
}

// ConstArg evaluates the next argument and requires it to be constant.
func (c *Call) ConstArg(ctx context.Context) (float64, error) {
	g, _, err := c.NextArg(ctx)
	if err != nil {
		return 0, err
	}
	if !g.IsConstant() {
		return 0, &TypeError{Func: c.fn, Arg: c.n, Msg: "constant value required"}
	}
	return g.ConstValue(), nil
}

// End asserts the argument list is exhausted. A trailing ',' means the
// caller passed more arguments than the function takes.
func (c *Call) End() error {
	if c.more {
		return &TypeError{Func: c.fn, Msg: fmt.Sprintf("too many arguments, expected %d", c.n)}
	}
	return nil
}

// evalContext exposes the evaluation context to builtins.
func (c *Call) evalContext() *Context { return c.st.ec }
