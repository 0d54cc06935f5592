package grid

import (
	"fmt"
	"math"
)

// Extent is a rectangular spatial bounding box in world coordinates.
type Extent struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// NewExtent returns the extent spanning the given corner coordinates.
func NewExtent(xmin, ymin, xmax, ymax float64) Extent {
	return Extent{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
}

// Width returns the horizontal size of the extent.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns the vertical size of the extent.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// IsDegenerate reports whether the extent has zero or negative area.
func (e Extent) IsDegenerate() bool {
	return e.Width() <= 0 || e.Height() <= 0
}

// Equal reports whether the two extents coincide within a small tolerance.
func (e Extent) Equal(o Extent) bool {
	const eps = 1e-6
	return math.Abs(e.XMin-o.XMin) < eps &&
		math.Abs(e.YMin-o.YMin) < eps &&
		math.Abs(e.XMax-o.XMax) < eps &&
		math.Abs(e.YMax-o.YMax) < eps
}

// Contains reports whether o lies fully inside e (borders included).
func (e Extent) Contains(o Extent) bool {
	const eps = 1e-6
	return o.XMin >= e.XMin-eps && o.YMin >= e.YMin-eps &&
		o.XMax <= e.XMax+eps && o.YMax <= e.YMax+eps
}

// Union returns the smallest extent covering both e and o.
func (e Extent) Union(o Extent) Extent {
	return Extent{
		XMin: math.Min(e.XMin, o.XMin),
		YMin: math.Min(e.YMin, o.YMin),
		XMax: math.Max(e.XMax, o.XMax),
		YMax: math.Max(e.YMax, o.YMax),
	}
}

// Intersect returns the overlap of e and o. The result may be degenerate
// when the extents do not overlap.
func (e Extent) Intersect(o Extent) Extent {
	return Extent{
		XMin: math.Max(e.XMin, o.XMin),
		YMin: math.Max(e.YMin, o.YMin),
		XMax: math.Min(e.XMax, o.XMax),
		YMax: math.Min(e.YMax, o.YMax),
	}
}

// Snap aligns the extent outward to whole multiples of the given cellsizes,
// anchored at the origin. Snapping an already aligned extent is a no-op.
func (e Extent) Snap(csx, csy float64) Extent {
	return Extent{
		XMin: math.Floor(e.XMin/csx) * csx,
		YMin: math.Floor(e.YMin/csy) * csy,
		XMax: math.Ceil(e.XMax/csx) * csx,
		YMax: math.Ceil(e.YMax/csy) * csy,
	}
}

// String renders the extent as "(xmin,ymin)-(xmax,ymax)".
func (e Extent) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", e.XMin, e.YMin, e.XMax, e.YMax)
}
