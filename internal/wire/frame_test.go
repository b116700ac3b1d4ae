package wire

import (
	"bytes"
	"io"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{1, 2, 3, 4, 5}
	if err := WriteFrame(&buf, TypePng, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	typ, got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if typ != TypePng {
		t.Errorf("type = %v, want Png", typ)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %v, want %v", got, payload)
	}
}

func TestReadFrameShortRead(t *testing.T) {
	r := bytes.NewReader([]byte{9, 0, 0}) // fewer than 4 length bytes
	_, _, err := ReadFrame(r)
	if err == nil {
		t.Fatal("expected error on short read")
	}
}

func TestReadFrameEOF(t *testing.T) {
	r := bytes.NewReader(nil)
	_, _, err := ReadFrame(r)
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReadFrameBadType(t *testing.T) {
	var buf bytes.Buffer
	// Hand-craft a frame with an unknown type tag.
	buf.Write([]byte{6, 0, 0, 0, 0xFF})
	_, _, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expected ErrBadType")
	}
}

func TestReadFrameTruncatedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{2, 0, 0, 0}) // total=2, shorter than the 5-byte header
	_, _, err := ReadFrame(&buf)
	if err == nil {
		t.Fatal("expected ErrTruncated")
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, _, err := ReadFrame(&buf)
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestTwoFramesInSequence(t *testing.T) {
	var buf bytes.Buffer
	WriteFrame(&buf, TypeEnd, nil)
	WriteFrame(&buf, TypeMinMax, MinMax{Min: -5, Max: 100}.Encode())

	typ1, p1, err := ReadFrame(&buf)
	if err != nil || typ1 != TypeEnd || len(p1) != 0 {
		t.Fatalf("first frame: type=%v payload=%v err=%v", typ1, p1, err)
	}
	typ2, p2, err := ReadFrame(&buf)
	if err != nil || typ2 != TypeMinMax {
		t.Fatalf("second frame: type=%v err=%v", typ2, err)
	}
	mm, err := DecodeMinMax(p2)
	if err != nil || mm.Min != -5 || mm.Max != 100 {
		t.Fatalf("MinMax = %+v, err=%v", mm, err)
	}
}
