package cog

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// tag is one inline TIFF directory entry: every tag this builder emits has
// a count of 1 so its value always fits in the 4-byte inline field.
type tag struct {
	id    uint16
	typ   uint16
	count uint32
	value uint32
}

// buildTIFF assembles a minimal little-endian classic TIFF: header, one
// IFD of inline-valued entries, then payload immediately after. Any tag
// whose value should point at payload (StripOffsets/TileOffsets) must be
// passed with value 0 and patched in by the caller using payloadOffset,
// since the offset depends on the IFD's own size.
func buildTIFF(tags []tag, payload []byte) []byte {
	const headerSize = 8
	ifdSize := 2 + 12*len(tags) + 4

	buf := make([]byte, 0, headerSize+ifdSize+len(payload))
	buf = append(buf, 'I', 'I')
	buf = appendUint16(buf, 42)
	buf = appendUint32(buf, uint32(headerSize))

	buf = appendUint16(buf, uint16(len(tags)))
	for _, t := range tags {
		buf = appendUint16(buf, t.id)
		buf = appendUint16(buf, t.typ)
		buf = appendUint32(buf, t.count)
		buf = appendUint32(buf, t.value)
	}
	buf = appendUint32(buf, 0) // no next IFD

	buf = append(buf, payload...)
	return buf
}

func payloadOffset(tags []tag) uint32 {
	const headerSize = 8
	return uint32(headerSize + 2 + 12*len(tags) + 4)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func samplesToLEBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// encodePredictorRows applies TIFF predictor=2 (horizontal differencing)
// per row, matching what undoHorizontalDifferencing16 must reverse.
func encodePredictorRows(samples []int16, width int) []int16 {
	out := make([]int16, len(samples))
	copy(out, samples)
	for row := 0; row*width < len(samples); row++ {
		base := row * width
		for x := width - 1; x >= 1; x-- {
			out[base+x] = int16(uint16(samples[base+x]) - uint16(samples[base+x-1]))
		}
	}
	return out
}

func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elev.tif")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test TIFF: %v", err)
	}
	return path
}

func baseStripTags(width, height, compression, predictor uint32, stripOffset, stripSize uint32) []tag {
	tags := []tag{
		{tagImageWidth, dtLong, 1, width},
		{tagImageLength, dtLong, 1, height},
		{tagBitsPerSample, dtShort, 1, 16},
		{tagCompression, dtShort, 1, compression},
		{tagPhotometric, dtShort, 1, 1},
		{tagStripOffsets, dtLong, 1, stripOffset},
		{tagSamplesPerPixel, dtShort, 1, 1},
		{tagRowsPerStrip, dtLong, 1, height},
		{tagStripByteCounts, dtLong, 1, stripSize},
		{tagPlanarConfig, dtShort, 1, 1},
		{tagSampleFormat, dtShort, 1, 2},
	}
	if predictor != 0 {
		tags = append(tags, tag{tagPredictor, dtShort, 1, predictor})
	}
	return tags
}

func TestDecodeUncompressedStrip(t *testing.T) {
	width, height := 4, 2
	samples := []int16{100, 105, 90, 80, -10, 0, 10, 20}
	payload := samplesToLEBytes(samples)

	tags := baseStripTags(uint32(width), uint32(height), 1, 0, 0, uint32(len(payload)))
	off := payloadOffset(tags)
	tags[5].value = off // tagStripOffsets

	path := writeTestFile(t, buildTIFF(tags, payload))

	d, err := Decoder{}.Decode(path, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Matrix.Width != width || d.Matrix.Height != height {
		t.Fatalf("matrix size = %dx%d, want %dx%d", d.Matrix.Width, d.Matrix.Height, width, height)
	}
	for i, want := range samples {
		row, col := i/width, i%width
		if got := d.Matrix.At(row, col); got != want {
			t.Errorf("At(%d,%d) = %d, want %d", row, col, got, want)
		}
	}
	if d.Matrix.MinElevation != -10 || d.Matrix.MaxElevation != 105 {
		t.Errorf("min/max = %d/%d, want -10/105", d.Matrix.MinElevation, d.Matrix.MaxElevation)
	}
	if d.SourceEPSG != 0 {
		t.Errorf("SourceEPSG = %d, want 0 (no geo tags present)", d.SourceEPSG)
	}
}

func TestDecodeDeflateStrip(t *testing.T) {
	width, height := 3, 3
	samples := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9}
	raw := samplesToLEBytes(samples)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	payload := compressed.Bytes()

	tags := baseStripTags(uint32(width), uint32(height), 8, 0, 0, uint32(len(payload)))
	tags[5].value = payloadOffset(tags)

	path := writeTestFile(t, buildTIFF(tags, payload))

	d, err := Decoder{}.Decode(path, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range samples {
		row, col := i/width, i%width
		if got := d.Matrix.At(row, col); got != want {
			t.Errorf("At(%d,%d) = %d, want %d", row, col, got, want)
		}
	}
}

func TestDecodePredictorReversal(t *testing.T) {
	width, height := 4, 2
	samples := []int16{100, 105, 90, 250, -10, 0, 10, 20}
	encoded := encodePredictorRows(samples, width)
	payload := samplesToLEBytes(encoded)

	tags := baseStripTags(uint32(width), uint32(height), 1, 2, 0, uint32(len(payload)))
	tags[5].value = payloadOffset(tags)

	path := writeTestFile(t, buildTIFF(tags, payload))

	d, err := Decoder{}.Decode(path, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range samples {
		row, col := i/width, i%width
		if got := d.Matrix.At(row, col); got != want {
			t.Errorf("predictor-reversed At(%d,%d) = %d, want %d", row, col, got, want)
		}
	}
}

func TestDecodeTiledSingleTile(t *testing.T) {
	width, height := 4, 4
	samples := make([]int16, width*height)
	for i := range samples {
		samples[i] = int16(i * 10)
	}
	payload := samplesToLEBytes(samples)

	tags := []tag{
		{tagImageWidth, dtLong, 1, uint32(width)},
		{tagImageLength, dtLong, 1, uint32(height)},
		{tagBitsPerSample, dtShort, 1, 16},
		{tagCompression, dtShort, 1, 1},
		{tagPhotometric, dtShort, 1, 1},
		{tagSamplesPerPixel, dtShort, 1, 1},
		{tagPlanarConfig, dtShort, 1, 1},
		{tagSampleFormat, dtShort, 1, 2},
		{tagTileWidth, dtLong, 1, uint32(width)},
		{tagTileLength, dtLong, 1, uint32(height)},
		{tagTileOffsets, dtLong, 1, 0},
		{tagTileByteCounts, dtLong, 1, uint32(len(payload))},
	}
	off := payloadOffset(tags)
	for i := range tags {
		if tags[i].id == tagTileOffsets {
			tags[i].value = off
		}
	}

	path := writeTestFile(t, buildTIFF(tags, payload))

	d, err := Decoder{}.Decode(path, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range samples {
		row, col := i/width, i%width
		if got := d.Matrix.At(row, col); got != want {
			t.Errorf("tiled At(%d,%d) = %d, want %d", row, col, got, want)
		}
	}
}

func TestDecodeUnsupportedCompressionFails(t *testing.T) {
	width, height := 2, 2
	payload := samplesToLEBytes([]int16{1, 2, 3, 4})
	tags := baseStripTags(uint32(width), uint32(height), 7 /* JPEG, unsupported */, 0, 0, uint32(len(payload)))
	tags[5].value = payloadOffset(tags)

	path := writeTestFile(t, buildTIFF(tags, payload))

	if _, err := (Decoder{}).Decode(path, 0); err == nil {
		t.Fatal("expected error decoding JPEG-compressed elevation data, got nil")
	}
}
