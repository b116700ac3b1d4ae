package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ColorRecord is one (elevation, RGB, alpha) stop, as carried inside an
// Init frame. 16 bytes: elevation(i32), r,g,b,pad(u8 x4), alpha(f64).
type ColorRecord struct {
	Elevation int32
	R, G, B   uint8
	Alpha     float64
}

const colorRecordSize = 16

func (c ColorRecord) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.Elevation))
	buf[4] = c.R
	buf[5] = c.G
	buf[6] = c.B
	buf[7] = 0
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(c.Alpha))
}

func getColorRecord(buf []byte) ColorRecord {
	return ColorRecord{
		Elevation: int32(binary.LittleEndian.Uint32(buf[0:4])),
		R:         buf[4],
		G:         buf[5],
		B:         buf[6],
		Alpha:     math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
	}
}

// Init is the first frame the primary sends to each worker: the color
// scheme, the output scale, and processing flags.
type Init struct {
	IsAbsolute   bool
	ShowWater    bool
	WorkerIndex  uint8
	Relief       bool
	Projection   bool
	Scale        float64
	WaterColor   *ColorRecord // present iff ShowWater
	Colors       []ColorRecord
}

// Encode serializes an Init frame payload.
func (m Init) Encode() []byte {
	n := len(m.Colors)
	if m.WaterColor != nil {
		n++
	}
	buf := make([]byte, 11+8+n*colorRecordSize)
	buf[0] = boolByte(m.IsAbsolute)
	buf[1] = boolByte(m.ShowWater)
	buf[2] = uint8(len(m.Colors))
	buf[3] = m.WorkerIndex
	buf[4] = boolByte(m.Relief)
	buf[5] = boolByte(m.Projection)
	// buf[6:11] padding
	binary.LittleEndian.PutUint64(buf[11:19], math.Float64bits(m.Scale))

	off := 19
	if m.WaterColor != nil {
		m.WaterColor.put(buf[off : off+colorRecordSize])
		off += colorRecordSize
	}
	for _, c := range m.Colors {
		c.put(buf[off : off+colorRecordSize])
		off += colorRecordSize
	}
	return buf
}

// DecodeInit parses an Init frame payload.
func DecodeInit(payload []byte) (Init, error) {
	if len(payload) < 19 {
		return Init{}, errors.Wrap(ErrTruncated, "Init")
	}
	m := Init{
		IsAbsolute:  payload[0] != 0,
		ShowWater:   payload[1] != 0,
		WorkerIndex: payload[3],
		Relief:      payload[4] != 0,
		Projection:  payload[5] != 0,
		Scale:       math.Float64frombits(binary.LittleEndian.Uint64(payload[11:19])),
	}
	numColors := int(payload[2])

	off := 19
	if m.ShowWater {
		if len(payload) < off+colorRecordSize {
			return Init{}, errors.Wrap(ErrTruncated, "Init water record")
		}
		c := getColorRecord(payload[off : off+colorRecordSize])
		m.WaterColor = &c
		off += colorRecordSize
	}

	m.Colors = make([]ColorRecord, numColors)
	for i := 0; i < numColors; i++ {
		if len(payload) < off+colorRecordSize {
			return Init{}, errors.Wrap(ErrTruncated, "Init color record")
		}
		m.Colors[i] = getColorRecord(payload[off : off+colorRecordSize])
		off += colorRecordSize
	}
	return m, nil
}

// Nodes lists every worker's network address, transmitted once after Init.
type Nodes struct {
	Addresses []string
}

func (m Nodes) Encode() []byte {
	size := 3
	for _, a := range m.Addresses {
		size += 2 + len(a)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(m.Addresses)))
	off := 3
	for _, a := range m.Addresses {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(a)))
		off += 2
		copy(buf[off:], a)
		off += len(a)
	}
	return buf
}

func DecodeNodes(payload []byte) (Nodes, error) {
	if len(payload) < 3 {
		return Nodes{}, errors.Wrap(ErrTruncated, "Nodes")
	}
	count := binary.LittleEndian.Uint16(payload[1:3])
	m := Nodes{Addresses: make([]string, 0, count)}
	off := 3
	for i := uint16(0); i < count; i++ {
		if len(payload) < off+2 {
			return Nodes{}, errors.Wrap(ErrTruncated, "Nodes entry length")
		}
		l := int(binary.LittleEndian.Uint16(payload[off : off+2]))
		off += 2
		if len(payload) < off+l {
			return Nodes{}, errors.Wrap(ErrTruncated, "Nodes entry bytes")
		}
		m.Addresses = append(m.Addresses, string(payload[off:off+l]))
		off += l
	}
	return m, nil
}

// Tiff carries one job's source data to its assigned worker: inline bytes,
// a URL to fetch, or an empty marker that ends the job stream.
type Tiff struct {
	Contents TiffContents
	Name     string
	FileSize uint32
	JobID    uint16
	Data     []byte // present iff Contents == TiffData; Name holds the URL iff TiffURL
}

func (m Tiff) Encode() []byte {
	nameLen := len(m.Name)
	size := 11 + nameLen // fixed fields end with pad(2)
	if m.Contents == TiffData {
		size += len(m.Data)
	}
	buf := make([]byte, size)
	buf[0] = byte(m.Contents)
	binary.LittleEndian.PutUint16(buf[1:3], uint16(nameLen))
	binary.LittleEndian.PutUint32(buf[3:7], m.FileSize)
	binary.LittleEndian.PutUint16(buf[7:9], m.JobID)
	off := 11
	copy(buf[off:], m.Name)
	off += nameLen
	if m.Contents == TiffData {
		copy(buf[off:], m.Data)
	}
	return buf
}

func DecodeTiff(payload []byte) (Tiff, error) {
	if len(payload) < 11 {
		return Tiff{}, errors.Wrap(ErrTruncated, "Tiff")
	}
	m := Tiff{
		Contents: TiffContents(payload[0]),
		FileSize: binary.LittleEndian.Uint32(payload[3:7]),
		JobID:    binary.LittleEndian.Uint16(payload[7:9]),
	}
	nameLen := int(binary.LittleEndian.Uint16(payload[1:3]))
	off := 11
	if len(payload) < off+nameLen {
		return Tiff{}, errors.Wrap(ErrTruncated, "Tiff name")
	}
	m.Name = string(payload[off : off+nameLen])
	off += nameLen
	if m.Contents == TiffData {
		if len(payload) < off+int(m.FileSize) {
			return Tiff{}, errors.Wrap(ErrTruncated, "Tiff data")
		}
		m.Data = payload[off : off+int(m.FileSize)]
	}
	return m, nil
}

// StatusChange announces a job's (or, with JobID == GlobalJobID, a
// worker's) progress and its current bounding box.
type StatusChange struct {
	Status   Status
	JobID    uint16
	SenderID uint16
	Top, Bottom, Left, Right float64
}

func (m StatusChange) Encode() []byte {
	buf := make([]byte, 11+32)
	buf[0] = byte(m.Status)
	binary.LittleEndian.PutUint16(buf[1:3], m.JobID)
	binary.LittleEndian.PutUint16(buf[3:5], m.SenderID)
	putF64(buf[11:19], m.Top)
	putF64(buf[19:27], m.Bottom)
	putF64(buf[27:35], m.Left)
	putF64(buf[35:43], m.Right)
	return buf
}

func DecodeStatusChange(payload []byte) (StatusChange, error) {
	if len(payload) < 43 {
		return StatusChange{}, errors.Wrap(ErrTruncated, "StatusChange")
	}
	return StatusChange{
		Status:   Status(payload[0]),
		JobID:    binary.LittleEndian.Uint16(payload[1:3]),
		SenderID: binary.LittleEndian.Uint16(payload[3:5]),
		Top:      getF64(payload[11:19]),
		Bottom:   getF64(payload[19:27]),
		Left:     getF64(payload[27:35]),
		Right:    getF64(payload[35:43]),
	}, nil
}

// ReqEdge asks a peer for the halo strip/corner of one of its tiles.
type ReqEdge struct {
	Quadrant        Quadrant
	RequestingJobID uint16
	RequestedJobID  uint16
}

func (m ReqEdge) Encode() []byte {
	buf := make([]byte, 11)
	buf[0] = byte(m.Quadrant)
	binary.LittleEndian.PutUint16(buf[1:3], m.RequestingJobID)
	binary.LittleEndian.PutUint16(buf[3:5], m.RequestedJobID)
	return buf
}

func DecodeReqEdge(payload []byte) (ReqEdge, error) {
	if len(payload) < 11 {
		return ReqEdge{}, errors.Wrap(ErrTruncated, "ReqEdge")
	}
	return ReqEdge{
		Quadrant:        Quadrant(payload[0]),
		RequestingJobID: binary.LittleEndian.Uint16(payload[1:3]),
		RequestedJobID:  binary.LittleEndian.Uint16(payload[3:5]),
	}, nil
}

// SendEdge replies to a ReqEdge with the requested cells, signed 16-bit
// elevation values in row-major order.
type SendEdge struct {
	Quadrant        Quadrant
	RequestingJobID uint16
	RequestedJobID  uint16
	Cells           []int16
}

func (m SendEdge) Encode() []byte {
	buf := make([]byte, 11+len(m.Cells)*2)
	buf[0] = byte(m.Quadrant)
	binary.LittleEndian.PutUint16(buf[1:3], m.RequestingJobID)
	binary.LittleEndian.PutUint16(buf[3:5], m.RequestedJobID)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(len(m.Cells)))
	off := 11
	for _, v := range m.Cells {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(v))
		off += 2
	}
	return buf
}

func DecodeSendEdge(payload []byte) (SendEdge, error) {
	if len(payload) < 11 {
		return SendEdge{}, errors.Wrap(ErrTruncated, "SendEdge")
	}
	m := SendEdge{
		Quadrant:        Quadrant(payload[0]),
		RequestingJobID: binary.LittleEndian.Uint16(payload[1:3]),
		RequestedJobID:  binary.LittleEndian.Uint16(payload[3:5]),
	}
	count := binary.LittleEndian.Uint32(payload[5:9])
	if uint64(len(payload)) < uint64(11)+uint64(count)*2 {
		return SendEdge{}, errors.Wrap(ErrTruncated, "SendEdge cells")
	}
	m.Cells = make([]int16, count)
	off := 11
	for i := range m.Cells {
		m.Cells[i] = int16(binary.LittleEndian.Uint16(payload[off : off+2]))
		off += 2
	}
	return m, nil
}

// MinMax broadcasts one worker's local elevation extremes.
type MinMax struct {
	Min, Max int32
}

func (m MinMax) Encode() []byte {
	buf := make([]byte, 11)
	binary.LittleEndian.PutUint32(buf[3:7], uint32(m.Min))
	binary.LittleEndian.PutUint32(buf[7:11], uint32(m.Max))
	return buf
}

func DecodeMinMax(payload []byte) (MinMax, error) {
	if len(payload) < 11 {
		return MinMax{}, errors.Wrap(ErrTruncated, "MinMax")
	}
	return MinMax{
		Min: int32(binary.LittleEndian.Uint32(payload[3:7])),
		Max: int32(binary.LittleEndian.Uint32(payload[7:11])),
	}, nil
}

// Png returns one job's rendered tile to the primary.
type Png struct {
	JobID     uint16
	ImgHeight uint32
	ImgWidth  uint32
	Top, Bottom, Left, Right float64
	Data      []byte
}

func (m Png) Encode() []byte {
	buf := make([]byte, 43+len(m.Data))
	binary.LittleEndian.PutUint16(buf[0:2], m.JobID)
	binary.LittleEndian.PutUint32(buf[3:7], m.ImgHeight)
	binary.LittleEndian.PutUint32(buf[7:11], m.ImgWidth)
	putF64(buf[11:19], m.Top)
	putF64(buf[19:27], m.Bottom)
	putF64(buf[27:35], m.Left)
	putF64(buf[35:43], m.Right)
	copy(buf[43:], m.Data)
	return buf
}

func DecodePng(payload []byte) (Png, error) {
	if len(payload) < 43 {
		return Png{}, errors.Wrap(ErrTruncated, "Png")
	}
	return Png{
		JobID:     binary.LittleEndian.Uint16(payload[0:2]),
		ImgHeight: binary.LittleEndian.Uint32(payload[3:7]),
		ImgWidth:  binary.LittleEndian.Uint32(payload[7:11]),
		Top:       getF64(payload[11:19]),
		Bottom:    getF64(payload[19:27]),
		Left:      getF64(payload[27:35]),
		Right:     getF64(payload[35:43]),
		Data:      payload[43:],
	}, nil
}

// UiUpdate is an advisory progress notification; it carries no bounding box.
type UiUpdate struct {
	Status Status
	JobID  uint16
}

func (m UiUpdate) Encode() []byte {
	buf := make([]byte, 3)
	buf[0] = byte(m.Status)
	binary.LittleEndian.PutUint16(buf[1:3], m.JobID)
	return buf
}

func DecodeUiUpdate(payload []byte) (UiUpdate, error) {
	if len(payload) < 3 {
		return UiUpdate{}, errors.Wrap(ErrTruncated, "UiUpdate")
	}
	return UiUpdate{
		Status: Status(payload[0]),
		JobID:  binary.LittleEndian.Uint16(payload[1:3]),
	}, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func putF64(buf []byte, v float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}

func getF64(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}
