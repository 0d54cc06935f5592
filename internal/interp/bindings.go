package interp

import (
	"context"
	"sort"

	"github.com/vk/idfcalc/internal/expr"
	"github.com/vk/idfcalc/internal/grid"
)

// Binding records a script variable: the grid it owns, how the grid came to
// be, and whether it already lives on disk. Rebinding a name replaces the
// entry; there is never more than one live binding per name.
type Binding struct {
	Name      string
	Grid      *grid.Grid
	Type      expr.Type
	Subdir    string // optional subdirectory prefix from the assignment
	Persisted bool
}

// Bindings is the variable table for one interpreter instance. It
// implements expr.VariableResolver.
type Bindings struct {
	m map[string]*Binding
}

// NewBindings returns an empty variable table.
func NewBindings() *Bindings {
	return &Bindings{m: make(map[string]*Binding)}
}

// Bind installs or replaces the binding for b.Name.
func (bs *Bindings) Bind(b *Binding) {
	bs.m[b.Name] = b
}

// Get returns the binding for name.
func (bs *Bindings) Get(name string) (*Binding, bool) {
	b, ok := bs.m[name]
	return b, ok
}

// Len returns the number of live bindings.
func (bs *Bindings) Len() int { return len(bs.m) }

// VariableNames returns all bound names, sorted for determinism.
func (bs *Bindings) VariableNames() []string {
	names := make([]string, 0, len(bs.m))
	for name := range bs.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveVariable returns the grid bound to name.
func (bs *Bindings) ResolveVariable(_ context.Context, name string) (*grid.Grid, bool, error) {
	b, ok := bs.m[name]
	if !ok {
		return nil, false, nil
	}
	return b.Grid, true, nil
}

// Owns reports whether g is the grid of any live binding. The interpreter
// copies such grids before rebinding them under another name, so every
// binding keeps exclusive ownership of its grid.
func (bs *Bindings) Owns(g *grid.Grid) bool {
	for _, b := range bs.m {
		if b.Grid == g {
			return true
		}
	}
	return false
}

// ReleaseAll drops the in-memory cell matrices of every bound grid that has
// a backing file. Headers stay; values reload lazily on the next reference.
func (bs *Bindings) ReleaseAll() {
	for _, b := range bs.m {
		b.Grid.ReleaseMemory()
	}
}
