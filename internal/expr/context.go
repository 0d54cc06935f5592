package expr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/idfcalc/internal/grid"
)

// DefaultMaxDepth bounds expression nesting. The legacy calculator relied on
// stack exhaustion; here exceeding the bound is an ordinary syntax error.
const DefaultMaxDepth = 128

// VariableResolver supplies the currently bound script variables to the
// engine. The interpreter's binding table implements it.
type VariableResolver interface {
	// ResolveVariable returns the grid bound to name, if any.
	ResolveVariable(ctx context.Context, name string) (*grid.Grid, bool, error)
	// VariableNames returns all currently bound names.
	VariableNames() []string
}

// Context carries the shared, read-mostly evaluation state that the legacy
// calculator kept in process globals: configuration, the function registry,
// the variable resolver, and the expression counter. One Context belongs to
// one interpreter instance, so test runs stay isolated.
type Context struct {
	Funcs *Registry
	Vars  VariableResolver

	// BasePath resolves relative grid file references; OutputPath receives
	// debug grids.
	BasePath   string
	OutputPath string

	// FixedExtent, when set, overrides every reconciliation target.
	FixedExtent *grid.Extent
	// NoDataValue, when set, fixes the value the NoData literal resolves to
	// instead of the other operand's sentinel.
	NoDataValue *float64

	Debug    bool
	Quiet    bool
	MaxDepth int

	counter uint64
}

// NewContext returns an evaluation context with the given registry and
// variable resolver and the default depth limit.
func NewContext(funcs *Registry, vars VariableResolver) *Context {
	return &Context{
		Funcs:    funcs,
		Vars:     vars,
		MaxDepth: DefaultMaxDepth,
	}
}

// nextID returns a fresh expression id. The counter never resets during a
// run; it numbers every resolved token and every merge.
func (ec *Context) nextID() string {
	ec.counter++
	return fmt.Sprintf("expr%04d", ec.counter)
}

// Counter returns the number of ids handed out so far.
func (ec *Context) Counter() uint64 { return ec.counter }

// OpenGridFile opens a referenced grid file, resolving relative paths
// against BasePath. A missing file is a MissingFileError, or a quiet stop
// when quiet mode is active. The interpreter also uses it for bare-filename
// assignments that bypass the expression engine.
func (ec *Context) OpenGridFile(ctx context.Context, ref string) (*grid.Grid, error) {
	path := ref
	if !filepath.IsAbs(path) && ec.BasePath != "" {
		path = filepath.Join(ec.BasePath, path)
	}
	g, err := grid.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if ec.Quiet {
				return nil, fmt.Errorf("grid file %q not found: %w", path, ErrQuietStop)
			}
			return nil, &MissingFileError{Path: path, Err: err}
		}
		return nil, err
	}
	return g, nil
}
