package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds the total frame length (including the 4-byte length
// field itself) that ReadFrame will accept. Not part of the core contract
// (spec.md §5 notes timeouts/hardening are implementation choices); this
// guards against a corrupt length field causing an unbounded allocation.
const MaxFrameSize = 256 << 20 // 256 MiB, comfortably above a Png frame's payload

// headerSize is the 4-byte length prefix plus the 1-byte type tag.
const headerSize = 5

// Sentinel errors for malformed frames (spec.md §4.1, §7 BadFrame).
var (
	ErrShortRead = errors.New("wire: connection closed mid-frame")
	ErrTruncated = errors.New("wire: frame shorter than its type tag requires")
	ErrBadType   = errors.New("wire: unknown frame type tag")
	ErrTooLarge  = errors.New("wire: frame length exceeds maximum")
)

// ReadFrame reads one complete frame from r: a 4-byte little-endian length
// (counting itself), a 1-byte type tag, and the remaining payload. It never
// inspects type-specific fields until the full payload is buffered, so a
// truncated read always surfaces as ErrShortRead rather than a partial
// decode.
func ReadFrame(r io.Reader) (Type, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(ErrShortRead, err.Error())
	}

	total := binary.LittleEndian.Uint32(lenBuf[:])
	if total > MaxFrameSize {
		return 0, nil, ErrTooLarge
	}
	if total < headerSize {
		return 0, nil, ErrTruncated
	}

	rest := make([]byte, total-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return 0, nil, errors.Wrap(ErrShortRead, err.Error())
	}

	t := Type(rest[0])
	if !validType(t) {
		return 0, nil, errors.Wrapf(ErrBadType, "tag 0x%02x", rest[0])
	}

	return t, rest[1:], nil
}

func validType(t Type) bool {
	switch t {
	case TypeInit, TypeNodes, TypeTiff, TypeStatusChange, TypeReqEdge,
		TypeSendEdge, TypeMinMax, TypePng, TypeEnd, TypeUiUpdate:
		return true
	default:
		return false
	}
}

// WriteFrame writes one complete frame to w. It builds the whole frame in
// memory before issuing a single Write call, so a concurrent writer on the
// same connection (guarded by the caller's send-lock, see internal/netconn)
// never observes a partial frame.
func WriteFrame(w io.Writer, t Type, payload []byte) error {
	total := headerSize + len(payload)
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	buf[4] = byte(t)
	copy(buf[5:], payload)

	_, err := w.Write(buf)
	if err != nil {
		return errors.Wrap(err, "wire: write frame")
	}
	return nil
}
