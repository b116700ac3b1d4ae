package cog

import (
	"fmt"

	"github.com/relief-render/reliefrender/internal/coord"
	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/store"
	"github.com/relief-render/reliefrender/internal/worker"
)

// Decoder implements worker.Decoder: it memory-maps a GeoTIFF file, reads
// its single-band elevation raster, and places it inside a MapFrame-wide
// halo matrix ready for peer halo exchange (spec.md §4.6 step 4).
type Decoder struct{}

// Decode opens path, decodes its elevation samples, and returns them as a
// halo-sized matrix plus the raster's WGS84 bounding box and pixel scale.
func (Decoder) Decode(path string, mapFrame int) (worker.Decoded, error) {
	r, err := Open(path)
	if err != nil {
		return worker.Decoded{}, err
	}
	defer r.Close()

	samples, err := r.ReadElevation()
	if err != nil {
		return worker.Decoded{}, err
	}

	w, h := r.Width(), r.Height()
	matrix := store.NewMatrix(h, w, mapFrame)

	minElev, maxElev := int32(samples[0]), int32(samples[0])
	for row := 0; row < h; row++ {
		base := row * w
		for col := 0; col < w; col++ {
			v := samples[base+col]
			matrix.Set(row, col, v)
			if int32(v) < minElev {
				minElev = int32(v)
			}
			if int32(v) > maxElev {
				maxElev = int32(v)
			}
		}
	}
	matrix.MinElevation = minElev
	matrix.MaxElevation = maxElev

	bounds, err := boundsToWGS84(r)
	if err != nil {
		return worker.Decoded{}, err
	}

	scaleX, scaleY := pixelScaleDegrees(r, bounds, w, h)

	d := worker.Decoded{
		Matrix:      matrix,
		Bounds:      bounds,
		PixelScaleX: scaleX,
		PixelScaleY: scaleY,
	}

	if epsg := r.EPSG(); epsg != 0 && epsg != 4326 {
		geoInfo := r.GeoInfo()
		d.SourceEPSG = epsg
		d.OriginX = geoInfo.OriginX
		d.OriginY = geoInfo.OriginY
		d.NativeScaleX = geoInfo.PixelSizeX
		d.NativeScaleY = geoInfo.PixelSizeY
	}

	return d, nil
}

// boundsToWGS84 converts the raster's native-CRS bounding box corners into
// a WGS84 geom.Bounds, the only coordinate system the wire protocol and
// adjacency resolver understand (spec.md §6's top/bottom/left/right
// fields). A raster already in EPSG:4326 passes through unchanged.
func boundsToWGS84(r *Reader) (geom.Bounds, error) {
	minX, minY, maxX, maxY := r.BoundsInCRS()
	epsg := r.EPSG()
	if epsg == 0 || epsg == 4326 {
		return geom.Bounds{North: maxY, South: minY, East: maxX, West: minX}, nil
	}

	proj := coord.ForEPSG(epsg)
	if proj == nil {
		return geom.Bounds{}, fmt.Errorf("%s: unsupported source EPSG:%d", r.Path(), epsg)
	}

	corners := [4][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}}
	b := geom.Bounds{North: -90, South: 90, East: -180, West: 180}
	for _, c := range corners {
		lon, lat := proj.ToWGS84(c[0], c[1])
		if lat > b.North {
			b.North = lat
		}
		if lat < b.South {
			b.South = lat
		}
		if lon > b.East {
			b.East = lon
		}
		if lon < b.West {
			b.West = lon
		}
	}
	return b, nil
}

// pixelScaleDegrees returns the raster's per-pixel resolution in decimal
// degrees (spec.md's glossary definition, used by the projection resampler
// to size its output grid). A raster already in EPSG:4326 reports its
// native pixel size directly; a projected source reports the WGS84
// bounding box spread divided by pixel count, an approximation adequate
// for choosing a resample grid resolution.
func pixelScaleDegrees(r *Reader, bounds geom.Bounds, w, h int) (x, y float64) {
	if epsg := r.EPSG(); epsg == 0 || epsg == 4326 {
		geoInfo := r.GeoInfo()
		return geoInfo.PixelSizeX, geoInfo.PixelSizeY
	}
	if w == 0 || h == 0 {
		return 0, 0
	}
	return (bounds.East - bounds.West) / float64(w), (bounds.North - bounds.South) / float64(h)
}
