package container

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// ErrNoProfile means the file embeds no ICC profile.
var ErrNoProfile = errors.New("no ICC profile")

// tagICCProfile is the TIFF tag holding an embedded profile.
const tagICCProfile = 0x8773

// ICCProfile returns the embedded ICC profile of an image.
func ICCProfile(id core.FormatID, data []byte) ([]byte, error) {
	switch {
	case id == core.FmtJPEG:
		segs, err := ReadJPEGSegments(bytes.NewReader(data))
		if err != nil && len(segs) == 0 {
			return nil, err
		}
		return joinICCChunks(FindSegments(segs, MarkerAPP2, PrefixICC))
	case id == core.FmtPNG:
		chunks, err := ReadPNGChunks(data)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Type != "iCCP" {
				continue
			}
			// Format: name\0 method compressed-profile
			null := bytes.IndexByte(c.Data, 0)
			if null < 0 || null+2 > len(c.Data) {
				return nil, fmt.Errorf("malformed iCCP chunk")
			}
			return Inflate(c.Data[null+2:])
		}
	case id == core.FmtWebP:
		chunks, err := ReadRIFFChunks(data)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Type == "ICCP" {
				return c.Data, nil
			}
		}
	case core.IsTIFFBased(id):
		t, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if len(t.Dirs) == 0 {
			return nil, ErrNoProfile
		}
		for _, tag := range t.Dirs[0].Tags {
			if tag.Id == tagICCProfile {
				return tag.Val, nil
			}
		}
	case id == core.FmtHEIC:
		var prof []byte
		WalkBoxes(data, func(b Box) bool {
			if b.Type == "colr" && len(b.Payload) > 4 {
				switch string(b.Payload[:4]) {
				case "prof", "rICC":
					prof = b.Payload[4:]
					return false
				}
			}
			return true
		})
		if prof != nil {
			return prof, nil
		}
	}
	return nil, ErrNoProfile
}

// joinICCChunks reassembles a profile split over several APP2 segments.
// Each chunk starts with its sequence number and the chunk count.
func joinICCChunks(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrNoProfile
	}
	type part struct {
		seq  byte
		data []byte
	}
	parts := make([]part, 0, len(chunks))
	for _, c := range chunks {
		if len(c) < 2 {
			return nil, fmt.Errorf("truncated ICC chunk")
		}
		parts = append(parts, part{seq: c[0], data: c[2:]})
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].seq < parts[j].seq })

	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(p.data)
	}
	return buf.Bytes(), nil
}
