// Package container reads the low-level structures image files are built
// from: JPEG segments, PNG chunks, RIFF chunks and ISOBMFF boxes. It also
// locates the EXIF and ICC payloads carried inside them.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// JPEG markers used by the readers.
const (
	MarkerSOF0  = 0xC0
	MarkerSOF2  = 0xC2
	MarkerSOS   = 0xDA
	MarkerAPP0  = 0xE0
	MarkerAPP1  = 0xE1
	MarkerAPP2  = 0xE2
	MarkerAPP13 = 0xED
	MarkerAPP14 = 0xEE
	MarkerCOM   = 0xFE
)

// Well-known APP segment prefixes.
var (
	PrefixExif      = []byte("Exif\x00\x00")
	PrefixXMP       = []byte("http://ns.adobe.com/xap/1.0/\x00")
	PrefixICC       = []byte("ICC_PROFILE\x00")
	PrefixJFIF      = []byte("JFIF\x00")
	PrefixPhotoshop = []byte("Photoshop 3.0\x00")
	PrefixAdobe     = []byte("Adobe")
)

// ErrNotJPEG is returned when the SOI marker is missing.
var ErrNotJPEG = errors.New("not a JPEG")

// Segment is one marker segment of a JPEG header.
type Segment struct {
	Marker byte
	Data   []byte
}

// ReadJPEGSegments returns the header segments of a JPEG stream, stopping at
// the start of scan. A truncated stream yields the segments read so far.
func ReadJPEGSegments(r io.Reader) ([]Segment, error) {
	br := &byteReader{r: r}
	soi := make([]byte, 2)
	if _, err := io.ReadFull(r, soi); err != nil {
		return nil, fmt.Errorf("reading SOI: %w", err)
	}
	if soi[0] != 0xFF || soi[1] != 0xD8 {
		return nil, ErrNotJPEG
	}

	var segs []Segment
	for {
		b, err := br.ReadByte()
		if err != nil {
			return segs, nil
		}
		if b != 0xFF {
			return segs, fmt.Errorf("expected marker, found 0x%02X", b)
		}
		marker, err := br.ReadByte()
		for err == nil && marker == 0xFF {
			marker, err = br.ReadByte()
		}
		if err != nil {
			return segs, nil
		}
		// Standalone markers carry no length.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD8) {
			continue
		}
		if marker == 0xD9 {
			return segs, nil
		}

		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return segs, nil
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf)) - 2
		if segLen < 0 {
			return segs, fmt.Errorf("invalid length for marker 0x%02X", marker)
		}
		data := make([]byte, segLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return segs, nil
		}
		segs = append(segs, Segment{Marker: marker, Data: data})
		// Stop at SOS (start of scan)
		if marker == MarkerSOS {
			return segs, nil
		}
	}
}

// FindSegment returns the payload after prefix of the first segment with
// the given marker and prefix, or nil.
func FindSegment(segs []Segment, marker byte, prefix []byte) []byte {
	for _, s := range segs {
		if s.Marker == marker && bytes.HasPrefix(s.Data, prefix) {
			return s.Data[len(prefix):]
		}
	}
	return nil
}

// FindSegments returns the payloads after prefix of every matching segment.
func FindSegments(segs []Segment, marker byte, prefix []byte) [][]byte {
	var out [][]byte
	for _, s := range segs {
		if s.Marker == marker && bytes.HasPrefix(s.Data, prefix) {
			out = append(out, s.Data[len(prefix):])
		}
	}
	return out
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}
