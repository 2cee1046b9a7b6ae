package container

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// ErrNoExif means the file carries no EXIF block.
var ErrNoExif = errors.New("no EXIF data")

var (
	tiffLE = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBE = []byte{0x4D, 0x4D, 0x00, 0x2A}
)

// ExifPayload returns the EXIF block of an image in a form accepted by
// goexif: either "Exif\x00\x00" followed by a TIFF stream, or a bare TIFF
// stream. TIFF-based files are returned whole.
func ExifPayload(id core.FormatID, data []byte) ([]byte, error) {
	switch {
	case core.IsTIFFBased(id):
		return data, nil
	case id == core.FmtJPEG:
		segs, err := ReadJPEGSegments(bytes.NewReader(data))
		if err != nil && len(segs) == 0 {
			return nil, err
		}
		if p := FindSegment(segs, MarkerAPP1, PrefixExif); p != nil {
			return append(append([]byte(nil), PrefixExif...), p...), nil
		}
	case id == core.FmtPNG:
		chunks, err := ReadPNGChunks(data)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Type == "eXIf" {
				return c.Data, nil
			}
		}
	case id == core.FmtWebP:
		chunks, err := ReadRIFFChunks(data)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Type == "EXIF" {
				return c.Data, nil
			}
		}
	case id == core.FmtHEIC:
		if p := scanExifHeader(data); p != nil {
			return p, nil
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", ErrNoExif, id)
	}
	return nil, ErrNoExif
}

// scanExifHeader finds an "Exif\x00\x00" marker directly followed by a
// TIFF header. HEIF stores the block as an item whose location is given
// by the iloc box; the marker scan finds it without resolving items.
func scanExifHeader(data []byte) []byte {
	for off := 0; ; {
		i := bytes.Index(data[off:], PrefixExif)
		if i < 0 {
			return nil
		}
		start := off + i
		rest := data[start+len(PrefixExif):]
		if bytes.HasPrefix(rest, tiffLE) || bytes.HasPrefix(rest, tiffBE) {
			return data[start:]
		}
		off = start + 1
	}
}
