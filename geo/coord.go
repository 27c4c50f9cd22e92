// Package geo provides the lat-lng and projected-rectangular coordinate
// primitives shared by the station registry, raster grids, and the
// regionalizer.
package geo

import (
	"math"

	"github.com/ctessum/geom/proj"
)

// epsilon is the tolerance used for coordinate equality comparisons.
const epsilon = 1e-6

// CoordSystem identifies a projected coordinate reference system.
type CoordSystem int

const (
	// LatLngWGS84 is unprojected geographic WGS84.
	LatLngWGS84 CoordSystem = iota
	// UTM21S is UTM zone 21 south.
	UTM21S
	// GK5 is Gauss-Krueger zone 5.
	GK5
	// UTM32N is UTM zone 32 north.
	UTM32N
)

func (cs CoordSystem) String() string {
	switch cs {
	case LatLngWGS84:
		return "LatLng-WGS84"
	case UTM21S:
		return "UTM21S"
	case GK5:
		return "GK5"
	case UTM32N:
		return "UTM32N"
	default:
		return "unknown"
	}
}

// proj4 returns the proj4 definition string for cs, used to build a
// *proj.SR on demand for coordinate transforms via github.com/ctessum/geom/proj.
func (cs CoordSystem) proj4() string {
	switch cs {
	case UTM21S:
		return "+proj=utm +zone=21 +south +datum=WGS84 +units=m +no_defs"
	case GK5:
		return "+proj=tmerc +lat_0=0 +lon_0=15 +k=1 +x_0=5500000 +y_0=0 +ellps=bessel +units=m +no_defs"
	case UTM32N:
		return "+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs"
	default:
		return "+proj=longlat +datum=WGS84 +no_defs"
	}
}

// SR returns the projection handle for cs, built lazily from its proj4
// definition. Callers use this to feed github.com/ctessum/geom/proj
// transforms between a station's LatLng and a grid's working CRS.
func (cs CoordSystem) SR() (*proj.SR, error) {
	return proj.Parse(cs.proj4())
}

// LatLng is a geographic coordinate in decimal degrees.
type LatLng struct {
	Lat, Lng float64
}

// Equals reports whether l and o are the same point within epsilon.
func (l LatLng) Equals(o LatLng) bool {
	return math.Abs(l.Lat-o.Lat) < epsilon && math.Abs(l.Lng-o.Lng) < epsilon
}

// DistanceTo returns the Euclidean distance between l and o in the lat-lng
// plane (degrees), deliberately planar rather than geodesic: nearest-station
// selection compares candidates by this distance, not a great-circle one.
func (l LatLng) DistanceTo(o LatLng) float64 {
	dlat := l.Lat - o.Lat
	dlng := l.Lng - o.Lng
	return math.Sqrt(dlat*dlat + dlng*dlng)
}

// RC is a projected rectangular coordinate (e.g. UTM easting/northing,
// meters).
type RC struct {
	R, H float64 // easting (r), northing (h)
}

// Equals reports whether r and o are the same point within epsilon.
func (r RC) Equals(o RC) bool {
	return math.Abs(r.R-o.R) < epsilon && math.Abs(r.H-o.H) < epsilon
}

// DistanceTo returns the planar distance between r and o in the units of
// the projected coordinate system (typically meters).
func (r RC) DistanceTo(o RC) float64 {
	dr := r.R - o.R
	dh := r.H - o.H
	return math.Sqrt(dr*dr + dh*dh)
}

// RcRect is an axis-aligned rectangle in projected coordinates, stored as
// its top-left and bottom-right corners (north-west and south-east in a
// standard north-up raster).
type RcRect struct {
	TL, BR RC
}

// NewRcRect builds a rectangle from its top-left and bottom-right corners.
func NewRcRect(tl, br RC) RcRect {
	return RcRect{TL: tl, BR: br}
}

// TR returns the top-right corner.
func (r RcRect) TR() RC { return RC{R: r.BR.R, H: r.TL.H} }

// BL returns the bottom-left corner.
func (r RcRect) BL() RC { return RC{R: r.TL.R, H: r.BR.H} }

// Vertices returns the four corners in TL, TR, BR, BL order.
func (r RcRect) Vertices() [4]RC {
	return [4]RC{r.TL, r.TR(), r.BR, r.BL()}
}

// IsEmpty reports whether the rectangle has zero or negative area.
func (r RcRect) IsEmpty() bool {
	return r.BR.R <= r.TL.R || r.TL.H <= r.BR.H
}

// Width returns the rectangle's horizontal extent.
func (r RcRect) Width() float64 { return r.BR.R - r.TL.R }

// Height returns the rectangle's vertical extent.
func (r RcRect) Height() float64 { return r.TL.H - r.BR.H }

// Contains reports whether p lies within r, inclusive of the top-left
// corner and exclusive of the bottom-right corner when exclusiveBR is
// true (matching the half-open convention used for raster cell lookup);
// otherwise the test is fully inclusive.
func (r RcRect) Contains(p RC, exclusiveBR bool) bool {
	if exclusiveBR {
		return p.R >= r.TL.R && p.R < r.BR.R && p.H <= r.TL.H && p.H > r.BR.H
	}
	return p.R >= r.TL.R && p.R <= r.BR.R && p.H <= r.TL.H && p.H >= r.BR.H
}

// Intersects reports whether r and o overlap.
func (r RcRect) Intersects(o RcRect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.TL.R < o.BR.R && o.TL.R < r.BR.R && r.BR.H < o.TL.H && o.BR.H < r.TL.H
}

// Intersection returns the overlapping rectangle of r and o, and whether
// one exists.
func (r RcRect) Intersection(o RcRect) (RcRect, bool) {
	if !r.Intersects(o) {
		return RcRect{}, false
	}
	tl := RC{R: math.Max(r.TL.R, o.TL.R), H: math.Min(r.TL.H, o.TL.H)}
	br := RC{R: math.Min(r.BR.R, o.BR.R), H: math.Max(r.BR.H, o.BR.H)}
	return RcRect{TL: tl, BR: br}, true
}

// ContainsRect reports whether o is fully contained within r.
func (r RcRect) ContainsRect(o RcRect) bool {
	return o.TL.R >= r.TL.R && o.BR.R <= r.BR.R && o.TL.H <= r.TL.H && o.BR.H >= r.BR.H
}

// ExpandedByKM returns a copy of r expanded outward by km kilometers on
// every side (r is assumed to be in meters, matching the regionalizer's
// border-expansion step).
func (r RcRect) ExpandedByKM(km float64) RcRect {
	m := km * 1000
	return RcRect{
		TL: RC{R: r.TL.R - m, H: r.TL.H + m},
		BR: RC{R: r.BR.R + m, H: r.BR.H - m},
	}
}
