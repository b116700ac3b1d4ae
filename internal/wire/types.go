// Package wire implements the on-wire binary framing shared by the
// primary↔worker and peer↔peer protocols: a 4-byte little-endian length
// (counting the length field itself), a 1-byte type tag, and a
// type-specific payload. All multi-byte integers are little-endian;
// floating-point fields are IEEE-754 binary64.
package wire

// Type identifies a frame's payload layout. Values are protocol-visible.
type Type uint8

const (
	TypeInit         Type = 0x01
	TypeNodes        Type = 0x02
	TypeTiff         Type = 0x03
	TypeStatusChange Type = 0x04
	TypeReqEdge      Type = 0x05
	TypeSendEdge     Type = 0x06
	TypeMinMax       Type = 0x07
	TypePng          Type = 0x08
	TypeEnd          Type = 0x09
	TypeUiUpdate     Type = 0x10
)

func (t Type) String() string {
	switch t {
	case TypeInit:
		return "Init"
	case TypeNodes:
		return "Nodes"
	case TypeTiff:
		return "Tiff"
	case TypeStatusChange:
		return "StatusChange"
	case TypeReqEdge:
		return "ReqEdge"
	case TypeSendEdge:
		return "SendEdge"
	case TypeMinMax:
		return "MinMax"
	case TypePng:
		return "Png"
	case TypeEnd:
		return "End"
	case TypeUiUpdate:
		return "UiUpdate"
	default:
		return "Unknown"
	}
}

// Status is the job/worker progress code carried by StatusChange and
// UiUpdate frames. It advances monotonically; see spec.md §3.
type Status uint8

const (
	StatusPending Status = iota
	StatusInProgress
	StatusLoaded
	StatusRendering
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusLoaded:
		return "LOADED"
	case StatusRendering:
		return "RENDERING"
	case StatusComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Quadrant identifies one of a tile's eight halo regions.
type Quadrant uint8

const (
	QuadrantN Quadrant = iota
	QuadrantS
	QuadrantE
	QuadrantW
	QuadrantNE
	QuadrantNW
	QuadrantSE
	QuadrantSW
)

// AllQuadrants lists the eight quadrants in a fixed, deterministic order.
var AllQuadrants = [8]Quadrant{
	QuadrantN, QuadrantS, QuadrantE, QuadrantW,
	QuadrantNE, QuadrantNW, QuadrantSE, QuadrantSW,
}

func (q Quadrant) String() string {
	switch q {
	case QuadrantN:
		return "N"
	case QuadrantS:
		return "S"
	case QuadrantE:
		return "E"
	case QuadrantW:
		return "W"
	case QuadrantNE:
		return "NE"
	case QuadrantNW:
		return "NW"
	case QuadrantSE:
		return "SE"
	case QuadrantSW:
		return "SW"
	default:
		return "?"
	}
}

// Opposite returns the quadrant on the receiving tile's halo that the
// sending tile's data is written into: a request for the sender's N edge
// fills the requester's S halo, and so on.
func (q Quadrant) Opposite() Quadrant {
	switch q {
	case QuadrantN:
		return QuadrantS
	case QuadrantS:
		return QuadrantN
	case QuadrantE:
		return QuadrantW
	case QuadrantW:
		return QuadrantE
	case QuadrantNE:
		return QuadrantSW
	case QuadrantNW:
		return QuadrantSE
	case QuadrantSE:
		return QuadrantNW
	case QuadrantSW:
		return QuadrantNE
	default:
		return q
	}
}

// TiffContents selects which variant of a Tiff frame's payload is present.
type TiffContents uint8

const (
	TiffData  TiffContents = 1
	TiffURL   TiffContents = 2
	TiffEmpty TiffContents = 3
)

// GlobalJobID is the sentinel job id meaning "this StatusChange/UiUpdate
// describes the worker as a whole, not one job".
const GlobalJobID uint16 = 0xFFFF

// PrimaryWorkerPort is the default primary↔worker listen port.
const PrimaryWorkerPort = 51777

// PeerExchangePort is the default peer↔peer listen port.
const PeerExchangePort = 51778
