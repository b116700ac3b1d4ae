// Package cog implements a memory-mapped GeoTIFF reader for the
// single-band signed-16-bit elevation rasters a worker receives in its
// tiff push (spec.md §4.6). Tiled and strip-based layouts are both
// supported; overview pyramids are not read since a per-job elevation
// raster never carries them.
package cog

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Reader provides access to one elevation GeoTIFF's full-resolution raster.
// The file is memory-mapped for lock-free concurrent access.
type Reader struct {
	data  []byte // memory-mapped file contents
	bo    binary.ByteOrder
	ifd   IFD
	geo   GeoInfo
	path  string
	strip *stripLayout // non-nil for strip-based TIFFs
}

// stripLayout stores the original strip layout for strip-based TIFFs.
type stripLayout struct {
	offsets      []uint64
	byteCounts   []uint64
	rowsPerStrip uint32
}

// Open opens a GeoTIFF file by memory-mapping it and parsing its structure.
// If a TFW (TIFF World File) sidecar is found, it is used for georeferencing
// when the TIFF lacks embedded GeoTIFF tags.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mmapFile(f.Fd(), int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	ifds, bo, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		munmapFile(data)
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		munmapFile(data)
		return nil, fmt.Errorf("%s: no IFDs found", path)
	}

	first := ifds[0]

	var sl *stripLayout
	if first.TileWidth == 0 || first.TileHeight == 0 {
		if len(first.StripOffsets) == 0 {
			munmapFile(data)
			return nil, fmt.Errorf("%s: no tile or strip layout found", path)
		}
		rps := first.RowsPerStrip
		if rps == 0 {
			rps = first.Height
		}
		sl = &stripLayout{
			offsets:      first.StripOffsets,
			byteCounts:   first.StripByteCounts,
			rowsPerStrip: rps,
		}
	}

	switch first.Compression {
	case 1, 5, 8, 32946:
		// Supported: None, LZW, Deflate/zlib.
	default:
		munmapFile(data)
		return nil, fmt.Errorf("%s: unsupported compression type %d for elevation data", path, first.Compression)
	}

	geo := parseGeoInfo(&first)

	if geo.PixelSizeX == 0 && geo.PixelSizeY == 0 {
		if tfwPath := findTFW(path); tfwPath != "" {
			tfw, err := parseTFW(tfwPath)
			if err != nil {
				munmapFile(data)
				return nil, err
			}
			geo = tfw.toGeoInfo()
		}
	}

	if geo.EPSG == 0 && geo.PixelSizeX > 0 {
		geo.EPSG = inferEPSG(geo, first.Width, first.Height)
	}

	return &Reader{
		data:  data,
		bo:    bo,
		ifd:   first,
		geo:   geo,
		path:  path,
		strip: sl,
	}, nil
}

// Close unmaps the memory-mapped file.
func (r *Reader) Close() error {
	if r.data != nil {
		err := munmapFile(r.data)
		r.data = nil
		return err
	}
	return nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// GeoInfo returns the parsed geographic metadata.
func (r *Reader) GeoInfo() GeoInfo {
	return r.geo
}

// Width returns the raster width in pixels.
func (r *Reader) Width() int {
	return int(r.ifd.Width)
}

// Height returns the raster height in pixels.
func (r *Reader) Height() int {
	return int(r.ifd.Height)
}

// EPSG returns the detected EPSG code.
func (r *Reader) EPSG() int {
	return r.geo.EPSG
}

// NoData returns the GDAL nodata string, or "" if not set.
func (r *Reader) NoData() string {
	return strings.TrimRight(r.ifd.NoData, "\x00")
}

// BoundsInCRS returns the bounding box in the source CRS: (left, bottom,
// right, top) of the pixel grid's outer edge.
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	minX = r.geo.OriginX
	maxY = r.geo.OriginY
	maxX = minX + float64(r.ifd.Width)*r.geo.PixelSizeX
	minY = maxY - float64(r.ifd.Height)*r.geo.PixelSizeY
	return
}

// ReadElevation decodes the full raster into a row-major signed-16-bit
// slice of Width()*Height() samples (first band only, for multi-band
// sources). Nodata pixels, if a GDAL nodata value is present, are left as
// the raw stored value; the caller decides how to treat them.
func (r *Reader) ReadElevation() ([]int16, error) {
	if r.strip != nil {
		return r.readElevationStrips()
	}
	return r.readElevationTiles()
}

func (r *Reader) readElevationTiles() ([]int16, error) {
	ifd := &r.ifd
	tw := int(ifd.TileWidth)
	th := int(ifd.TileHeight)
	w, h := int(ifd.Width), int(ifd.Height)
	tilesAcross := ifd.TilesAcross()
	tilesDown := ifd.TilesDown()
	spp := int(ifd.SamplesPerPixel)

	out := make([]int16, w*h)

	for row := 0; row < tilesDown; row++ {
		for col := 0; col < tilesAcross; col++ {
			idx := row*tilesAcross + col
			if idx >= len(ifd.TileOffsets) || idx >= len(ifd.TileByteCounts) {
				return nil, fmt.Errorf("tile index %d out of range", idx)
			}
			offset, size := ifd.TileOffsets[idx], ifd.TileByteCounts[idx]
			if size == 0 {
				continue // empty tile: leave as zero elevation
			}
			end := offset + size
			if end > uint64(len(r.data)) {
				return nil, fmt.Errorf("tile data [%d:%d] exceeds file size %d", offset, end, len(r.data))
			}
			chunk, err := decompressChunk(ifd.Compression, r.data[offset:end])
			if err != nil {
				return nil, fmt.Errorf("decompressing tile (%d,%d): %w", col, row, err)
			}
			if ifd.Predictor == 2 {
				undoHorizontalDifferencing16(chunk, tw, spp, r.bo)
			}
			samples, err := samplesToInt16(chunk, ifd, tw, th, r.bo)
			if err != nil {
				return nil, err
			}

			tileMinX, tileMinY := col*tw, row*th
			for y := 0; y < th; y++ {
				gy := tileMinY + y
				if gy >= h {
					break
				}
				for x := 0; x < tw; x++ {
					gx := tileMinX + x
					if gx >= w {
						continue
					}
					out[gy*w+gx] = samples[(y*tw+x)*spp]
				}
			}
		}
	}
	return out, nil
}

func (r *Reader) readElevationStrips() ([]int16, error) {
	ifd := &r.ifd
	sl := r.strip
	w, h := int(ifd.Width), int(ifd.Height)
	spp := int(ifd.SamplesPerPixel)

	out := make([]int16, w*h)
	row := 0

	for s := 0; s < len(sl.offsets); s++ {
		offset, size := sl.offsets[s], sl.byteCounts[s]
		stripRows := int(sl.rowsPerStrip)
		if row+stripRows > h {
			stripRows = h - row
		}
		if size == 0 {
			row += stripRows
			continue
		}
		end := offset + size
		if end > uint64(len(r.data)) {
			return nil, fmt.Errorf("strip %d data [%d:%d] exceeds file size %d", s, offset, end, len(r.data))
		}
		chunk, err := decompressChunk(ifd.Compression, r.data[offset:end])
		if err != nil {
			return nil, fmt.Errorf("decompressing strip %d: %w", s, err)
		}
		if ifd.Predictor == 2 {
			undoHorizontalDifferencing16(chunk, w, spp, r.bo)
		}
		samples, err := samplesToInt16(chunk, ifd, w, stripRows, r.bo)
		if err != nil {
			return nil, err
		}
		for y := 0; y < stripRows; y++ {
			gy := row + y
			for x := 0; x < w; x++ {
				out[gy*w+x] = samples[(y*w+x)*spp]
			}
		}
		row += stripRows
	}
	return out, nil
}

// decompressChunk decompresses one tile's or strip's raw bytes according to
// the IFD's compression tag.
func decompressChunk(compression uint16, data []byte) ([]byte, error) {
	switch compression {
	case 1:
		return data, nil
	case 5:
		return decompressTIFFLZW(data)
	case 8, 32946:
		return decompressDeflate(data)
	default:
		return nil, fmt.Errorf("unsupported compression: %d", compression)
	}
}

// decompressDeflate decompresses deflate/zlib compressed data. TIFF
// compression 8 uses zlib format (deflate with zlib header); falls back to
// raw deflate if zlib fails, since some writers omit the zlib header.
func decompressDeflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		defer zr.Close()
		if result, err := io.ReadAll(zr); err == nil {
			return result, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return io.ReadAll(fr)
}

// undoHorizontalDifferencing16 reverses TIFF predictor=2 (horizontal
// differencing) for 16-bit samples: each sample is stored as the
// difference from the previous sample in the same row.
func undoHorizontalDifferencing16(data []byte, width, samplesPerPixel int, bo binary.ByteOrder) {
	rowBytes := width * samplesPerPixel * 2
	for off := 0; off+rowBytes <= len(data); off += rowBytes {
		row := data[off : off+rowBytes]
		for i := samplesPerPixel; i < width*samplesPerPixel; i++ {
			cur := bo.Uint16(row[i*2 : i*2+2])
			prev := bo.Uint16(row[(i-samplesPerPixel)*2 : (i-samplesPerPixel)*2+2])
			bo.PutUint16(row[i*2:i*2+2], cur+prev)
		}
	}
}

// samplesToInt16 extracts the first band of raw decompressed bytes as
// signed 16-bit samples, converting from whatever SampleFormat/BitsPerSample
// the source uses (8/16/32-bit integer, or 32-bit/64-bit float rounded to
// the nearest integer) into the int16 cells the tile store expects.
func samplesToInt16(data []byte, ifd *IFD, w, h int, bo binary.ByteOrder) ([]int16, error) {
	spp := int(ifd.SamplesPerPixel)
	pixelCount := w * h

	bps := 16
	if len(ifd.BitsPerSample) > 0 {
		bps = int(ifd.BitsPerSample[0])
	}
	format := uint16(2) // default: signed integer
	if len(ifd.SampleFormat) > 0 {
		format = ifd.SampleFormat[0]
	}

	bytesPerSample := bps / 8
	expected := pixelCount * spp * bytesPerSample
	if len(data) < expected {
		return nil, fmt.Errorf("elevation data too short: got %d, need %d", len(data), expected)
	}

	out := make([]int16, pixelCount*spp)
	for i := range out {
		off := i * bytesPerSample
		switch {
		case format == 3 && bps == 32:
			bits := bo.Uint32(data[off : off+4])
			out[i] = int16(math.Round(float64(math.Float32frombits(bits))))
		case format == 3 && bps == 64:
			bits := bo.Uint64(data[off : off+8])
			out[i] = int16(math.Round(math.Float64frombits(bits)))
		case bps == 16:
			out[i] = int16(bo.Uint16(data[off : off+2]))
		case bps == 8:
			out[i] = int16(data[off])
		case bps == 32:
			out[i] = int16(int32(bo.Uint32(data[off : off+4])))
		default:
			return nil, fmt.Errorf("unsupported sample format: %d bits, format %d", bps, format)
		}
	}
	return out, nil
}
