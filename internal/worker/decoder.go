package worker

import (
	"github.com/relief-render/reliefrender/internal/geom"
	"github.com/relief-render/reliefrender/internal/store"
)

// Decoded is one source raster turned into an elevation matrix plus the
// georeferencing internal/cog recovers from it.
type Decoded struct {
	Matrix      *store.Matrix
	Bounds      geom.Bounds
	PixelScaleX float64
	PixelScaleY float64

	// Source CRS fields, populated whenever the raster isn't already
	// EPSG:4326. The orchestrator uses these to resample onto a uniform
	// WGS84 grid when the worker was started with -projection; ignored
	// otherwise, since Bounds/Matrix already stand on their own.
	SourceEPSG   int
	OriginX      float64
	OriginY      float64
	NativeScaleX float64
	NativeScaleY float64
}

// Decoder turns a local GeoTIFF path into a halo-sized elevation matrix
// and its bounding box. internal/cog implements this; kept as an
// interface here so the orchestrator's state machine can be tested
// without real raster files.
type Decoder interface {
	Decode(path string, mapFrame int) (Decoded, error)
}
