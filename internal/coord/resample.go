package coord

import (
	"fmt"
	"math"

	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/store"
)

// ResampleToGeographic reprojects a tile decoded on a projected CRS's
// native, uniformly-spaced pixel grid (e.g. Swiss LV95 meters) onto a new
// matrix of the same dimensions sampled on a uniform WGS84 degree grid,
// used when a worker is started with the -projection flag (spec.md §4.6
// step 4). For each output cell, the target lon/lat is projected back into
// the source CRS and bilinearly sampled from the original grid; a tile
// already in EPSG:4326 never needs this and should skip the call.
func ResampleToGeographic(m *store.Matrix, epsg int, originX, originY, pixelSizeX, pixelSizeY float64, mapFrame int) (*store.Matrix, geom.Bounds, error) {
	proj := ForEPSG(epsg)
	if proj == nil {
		return nil, geom.Bounds{}, fmt.Errorf("resample: unsupported source EPSG:%d", epsg)
	}

	width, height := m.Width, m.Height
	minX := originX
	maxY := originY
	maxX := originX + float64(width)*pixelSizeX
	minY := originY - float64(height)*pixelSizeY

	corners := [4][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}}
	bounds := geom.Bounds{North: -90, South: 90, East: -180, West: 180}
	for _, c := range corners {
		lon, lat := proj.ToWGS84(c[0], c[1])
		if lat > bounds.North {
			bounds.North = lat
		}
		if lat < bounds.South {
			bounds.South = lat
		}
		if lon > bounds.East {
			bounds.East = lon
		}
		if lon < bounds.West {
			bounds.West = lon
		}
	}

	degX := (bounds.East - bounds.West) / float64(width)
	degY := (bounds.North - bounds.South) / float64(height)

	out := store.NewMatrix(height, width, mapFrame)
	minElev, maxElev := m.MaxElevation, m.MinElevation // placeholders, recomputed below
	first := true

	for row := 0; row < height; row++ {
		lat := bounds.North - (float64(row)+0.5)*degY
		for col := 0; col < width; col++ {
			lon := bounds.West + (float64(col)+0.5)*degX
			x, y := proj.FromWGS84(lon, lat)

			fc := (x - minX) / pixelSizeX
			fr := (maxY - y) / pixelSizeY
			v := bilinearSample(m, fr, fc)

			out.Set(row, col, v)
			if first {
				minElev, maxElev = int32(v), int32(v)
				first = false
			} else if int32(v) < minElev {
				minElev = int32(v)
			} else if int32(v) > maxElev {
				maxElev = int32(v)
			}
		}
	}
	out.MinElevation = minElev
	out.MaxElevation = maxElev
	out.HorizontalScale = degX
	out.VerticalScale = degY

	return out, bounds, nil
}

// bilinearSample samples m's own pixels (not its halo, unfilled at decode
// time) at fractional row/col, clamping to the source grid's edges.
func bilinearSample(m *store.Matrix, fr, fc float64) int16 {
	r0 := int(math.Floor(fr))
	c0 := int(math.Floor(fc))
	r1, c1 := r0+1, c0+1

	r0 = clamp(r0, 0, m.Height-1)
	r1 = clamp(r1, 0, m.Height-1)
	c0 = clamp(c0, 0, m.Width-1)
	c1 = clamp(c1, 0, m.Width-1)

	dr := fr - math.Floor(fr)
	dc := fc - math.Floor(fc)

	v00 := float64(m.At(r0, c0))
	v10 := float64(m.At(r0, c1))
	v01 := float64(m.At(r1, c0))
	v11 := float64(m.At(r1, c1))

	top := v00*(1-dc) + v10*dc
	bot := v01*(1-dc) + v11*dc
	return int16(math.Round(top*(1-dr) + bot*dr))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
