// Package grid implements the raster grid value type consumed by the
// expression engine: a rectangular matrix of float32 cells with a spatial
// extent, square-ish cellsizes, and a NoData sentinel.
//
// Grids come in two flavours. A file-backed grid knows its source IDF file
// and materializes its cell matrix lazily on first use; the matrix can be
// released again to bound peak memory, and reloads transparently on the next
// access. A constant grid carries a single value with no geometry at all and
// broadcasts over any extent it is combined with.
//
// Arithmetic operations propagate NoData: a cell that is NoData in either
// operand is NoData in the result. Comparisons and logical connectives
// evaluate on raw cell values instead, so a grid can be tested against its
// own sentinel.
package grid
