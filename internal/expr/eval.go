package expr

import (
	"context"

	"github.com/vk/idfcalc/internal/grid"
)

// Evaluate runs the full pipeline over one expression: preprocess, split,
// merge. The returned Type records the result's provenance, which the
// interpreter uses for its persistence decision.
func Evaluate(ctx context.Context, ec *Context, expression string) (*grid.Grid, Type, error) {
	var names []string
	if ec.Vars != nil {
		names = ec.Vars.VariableNames()
	}
	prep, err := prepare(expression, names)
	if err != nil {
		return nil, TypeUndefined, err
	}
	st := &state{ec: ec, cur: newCursor(prep.expr), prep: prep}
	return evalSub(ctx, st, "", 1)
}
