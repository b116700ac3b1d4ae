package geom

import "github.com/relief-render/reliefrender/internal/wire"

// ProbeEpsilon is how far outside a tile's box a quadrant's probe point is
// placed. It only needs to land inside the true neighbor and outside the
// tile itself; the exact magnitude is not protocol-visible.
const ProbeEpsilon = 1e-6

// Neighbor is one candidate tile considered as the supplier of a halo
// quadrant. ID is opaque to this package — the caller's own tile index or
// remote-tile key — and is returned unchanged in a match.
type Neighbor struct {
	Bounds Bounds
	ID     any
}

// Resolve decides, for each of the eight halo quadrants of box, which
// member of neighbors (if any) supplies it. Matching uses a point-in-box
// probe placed just outside box in the quadrant's direction; the first
// neighbor in iteration order whose box contains the probe wins
// (spec.md §4.3's documented tie-break). A quadrant with no match is left
// nil: the caller leaves that halo region permanently unset, not an error.
func Resolve(box Bounds, neighbors []Neighbor) [8]*Neighbor {
	var out [8]*Neighbor
	midLat := box.CenterLat()
	midLon := box.CenterLon()

	probes := [8][2]float64{
		wire.QuadrantN:  {box.North + ProbeEpsilon, midLon},
		wire.QuadrantS:  {box.South - ProbeEpsilon, midLon},
		wire.QuadrantE:  {midLat, box.East + ProbeEpsilon},
		wire.QuadrantW:  {midLat, box.West - ProbeEpsilon},
		wire.QuadrantNE: {box.North + ProbeEpsilon, box.East + ProbeEpsilon},
		wire.QuadrantNW: {box.North + ProbeEpsilon, box.West - ProbeEpsilon},
		wire.QuadrantSE: {box.South - ProbeEpsilon, box.East + ProbeEpsilon},
		wire.QuadrantSW: {box.South - ProbeEpsilon, box.West - ProbeEpsilon},
	}

	for _, q := range wire.AllQuadrants {
		lat, lon := probes[q][0], probes[q][1]
		for i := range neighbors {
			if neighbors[i].Bounds.Contains(lat, lon) {
				n := neighbors[i]
				out[q] = &n
				break
			}
		}
	}
	return out
}
