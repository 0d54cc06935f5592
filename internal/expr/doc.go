// Package expr implements the grid expression engine: a split-and-merge
// evaluator for arithmetic, comparison, and logical expressions over grids,
// constants, and named functions.
//
// Evaluation has two phases. The splitter walks the cleaned expression text
// with an owned cursor and produces an ordered list of cells, each pairing a
// resolved operand grid with the operator that follows it; parenthesized
// groups and function calls recurse back into the splitter. The merger then
// folds the cell list left to right under operator precedence into a single
// result grid, aligning operand extents before every binary operation.
//
// There is no parse tree: precedence is realized by the merger's fold order
// alone, which mirrors the legacy calculator this engine replaces.
package expr
