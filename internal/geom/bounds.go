// Package geom implements the pure geometric predicates this spec needs:
// geographic bounding boxes and the adjacency resolver that maps a tile's
// eight halo quadrants to the neighboring tile (local or remote) that
// supplies them (spec.md §4.3).
package geom

// Bounds is a geographic bounding box in decimal degrees, matching the
// (top, bottom, left, right) fields carried on the wire (spec.md §6).
type Bounds struct {
	North, South, East, West float64
}

// CenterLat returns the bounding box's midpoint latitude.
func (b Bounds) CenterLat() float64 {
	return (b.North + b.South) / 2
}

// CenterLon returns the bounding box's midpoint longitude.
func (b Bounds) CenterLon() float64 {
	return (b.East + b.West) / 2
}

// Contains reports whether (lat, lon) falls within b, inclusive of edges.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// AlignsNorth reports whether other lies directly north of b: other's
// south edge coincides with b's north edge, within eps, and their
// longitude spans overlap. Used by the stitcher to walk tiles by
// coincident edges (spec.md §4.7).
func (b Bounds) AlignsNorth(other Bounds, eps float64) bool {
	return approxEqual(other.South, b.North, eps) && lonSpansOverlap(b, other)
}

// AlignsEast reports whether other lies directly east of b.
func (b Bounds) AlignsEast(other Bounds, eps float64) bool {
	return approxEqual(other.West, b.East, eps) && latSpansOverlap(b, other)
}

func lonSpansOverlap(a, b Bounds) bool {
	return a.West < b.East && b.West < a.East
}

func latSpansOverlap(a, b Bounds) bool {
	return a.South < b.North && b.South < a.North
}

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
