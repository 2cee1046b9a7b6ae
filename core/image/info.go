package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/container"
)

// NamespaceInfo prefixes container info items.
const NamespaceInfo = "INFO"

// Info reports the container's own metadata items: JFIF and Adobe
// markers, comments, PNG text chunks, XMP packets and IPTC records.
type Info struct{}

// NewInfo returns the container info extractor.
func NewInfo() *Info { return &Info{} }

func (*Info) Namespace() string { return NamespaceInfo }

func (i *Info) Extract(_ context.Context, path string) (*core.Set, error) {
	data, id, err := load(path)
	if err != nil {
		return nil, err
	}
	set := core.NewSet()
	switch id {
	case core.FmtJPEG:
		err = jpegInfo(data, set)
	case core.FmtPNG:
		err = pngInfo(data, set)
	case core.FmtWebP:
		err = webpInfo(data, set)
	case core.FmtBMP:
		err = bmpInfo(data, set)
	case core.FmtHEIC:
		if b := container.Brand(data); b != "" {
			set.Add(infoKey("brand"), core.String(strings.TrimSpace(b)))
		}
	}
	return set, err
}

func infoKey(name string) string { return core.Key(NamespaceInfo, name) }

func dpiPair(x, y float64) core.Value {
	return core.List(core.Float(x), core.Float(y))
}

// ─── JPEG ────────────────────────────────────────────────────────────────────

func jpegInfo(data []byte, set *core.Set) error {
	segs, err := container.ReadJPEGSegments(bytes.NewReader(data))
	if err != nil && len(segs) == 0 {
		return err
	}

	if jfif := container.FindSegment(segs, container.MarkerAPP0, container.PrefixJFIF); len(jfif) >= 7 {
		set.Add(infoKey("jfif"), core.Int(int64(binary.BigEndian.Uint16(jfif[0:2]))))
		set.Add(infoKey("jfif_version"), core.List(core.Int(int64(jfif[0])), core.Int(int64(jfif[1]))))
		unit := jfif[2]
		x := binary.BigEndian.Uint16(jfif[3:5])
		y := binary.BigEndian.Uint16(jfif[5:7])
		set.Add(infoKey("jfif_unit"), core.Int(int64(unit)))
		set.Add(infoKey("jfif_density"), core.List(core.Int(int64(x)), core.Int(int64(y))))
		switch unit {
		case 1:
			set.Add(infoKey("dpi"), dpiPair(float64(x), float64(y)))
		case 2:
			set.Add(infoKey("dpi"), dpiPair(round2(float64(x)*2.54), round2(float64(y)*2.54)))
		}
	}

	if adobe := container.FindSegment(segs, container.MarkerAPP14, container.PrefixAdobe); len(adobe) >= 7 {
		set.Add(infoKey("adobe"), core.Int(int64(binary.BigEndian.Uint16(adobe[0:2]))))
		set.Add(infoKey("adobe_transform"), core.Int(int64(adobe[6])))
	}

	var comments []string
	for _, c := range container.FindSegments(segs, container.MarkerCOM, nil) {
		comments = append(comments, strings.ToValidUTF8(string(c), "�"))
	}
	if len(comments) > 0 {
		set.Add(infoKey("comment"), core.String(strings.Join(comments, "\n")))
	}

	for _, s := range segs {
		if s.Marker == container.MarkerSOF2 {
			set.Add(infoKey("progressive"), core.Bool(true))
			set.Add(infoKey("progression"), core.Bool(true))
			break
		}
	}

	if xmp := container.FindSegment(segs, container.MarkerAPP1, container.PrefixXMP); len(xmp) > 0 {
		parseXMP(xmp).addTo(set, infoKey("XMP_"))
	}
	if ps := container.FindSegment(segs, container.MarkerAPP13, container.PrefixPhotoshop); len(ps) > 0 {
		parseIPTC(ps).addTo(set, infoKey("IPTC_"))
	}
	return nil
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

func pngInfo(data []byte, set *core.Set) error {
	chunks, err := container.ReadPNGChunks(data)
	if err != nil {
		return err
	}

	var errs []string
	for _, c := range chunks {
		switch c.Type {
		case "tEXt":
			// Format: keyword\0value
			null := bytes.IndexByte(c.Data, 0)
			if null > 0 {
				set.Add(infoKey(string(c.Data[:null])), core.String(latin1(c.Data[null+1:])))
			}
		case "zTXt":
			// Format: keyword\0method compressed-text
			null := bytes.IndexByte(c.Data, 0)
			if null <= 0 || null+2 > len(c.Data) {
				continue
			}
			text, err := container.Inflate(c.Data[null+2:])
			if err != nil {
				errs = append(errs, fmt.Sprintf("zTXt %q: %v", c.Data[:null], err))
				continue
			}
			set.Add(infoKey(string(c.Data[:null])), core.String(latin1(text)))
		case "iTXt":
			key, text, err := parseITXt(c.Data)
			if err != nil {
				errs = append(errs, fmt.Sprintf("iTXt: %v", err))
				continue
			}
			if key == "XML:com.adobe.xmp" {
				parseXMP([]byte(text)).addTo(set, infoKey("XMP_"))
				continue
			}
			set.Add(infoKey(key), core.String(text))
		case "pHYs":
			if len(c.Data) == 9 {
				x := binary.BigEndian.Uint32(c.Data[0:4])
				y := binary.BigEndian.Uint32(c.Data[4:8])
				if c.Data[8] == 1 {
					set.Add(infoKey("dpi"), dpiPair(round2(float64(x)*0.0254), round2(float64(y)*0.0254)))
				} else {
					set.Add(infoKey("aspect"), core.List(core.Int(int64(x)), core.Int(int64(y))))
				}
			}
		case "gAMA":
			if len(c.Data) == 4 {
				set.Add(infoKey("gamma"), core.Float(float64(binary.BigEndian.Uint32(c.Data))/100000))
			}
		case "sRGB":
			if len(c.Data) == 1 {
				set.Add(infoKey("srgb"), core.Int(int64(c.Data[0])))
			}
		case "tIME":
			if len(c.Data) == 7 {
				year := binary.BigEndian.Uint16(c.Data[0:2])
				set.Add(infoKey("LastModified"), core.String(fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
					year, c.Data[2], c.Data[3], c.Data[4], c.Data[5], c.Data[6])))
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// parseITXt splits an iTXt chunk:
// keyword\0 flag method language\0 translated-keyword\0 text
func parseITXt(b []byte) (string, string, error) {
	null := bytes.IndexByte(b, 0)
	if null <= 0 || null+3 > len(b) {
		return "", "", fmt.Errorf("malformed chunk")
	}
	key := string(b[:null])
	compressed := b[null+1] == 1
	rest := b[null+3:]
	for i := 0; i < 2; i++ {
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			return "", "", fmt.Errorf("malformed chunk %q", key)
		}
		rest = rest[n+1:]
	}
	if compressed {
		out, err := container.Inflate(rest)
		if err != nil {
			return "", "", fmt.Errorf("%q: %w", key, err)
		}
		rest = out
	}
	return key, strings.ToValidUTF8(string(rest), "�"), nil
}

func latin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// ─── WebP ────────────────────────────────────────────────────────────────────

func webpInfo(data []byte, set *core.Set) error {
	chunks, err := container.ReadRIFFChunks(data)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		switch c.Type {
		case "VP8 ", "VP8L", "VP8X":
			set.Add(infoKey("encoding"), core.String(strings.TrimSpace(c.Type)))
			if c.Type == "VP8X" && len(c.Data) >= 1 {
				set.Add(infoKey("animation"), core.Bool(c.Data[0]&0x02 != 0))
				set.Add(infoKey("alpha"), core.Bool(c.Data[0]&0x10 != 0))
			}
		case "XMP ":
			parseXMP(c.Data).addTo(set, infoKey("XMP_"))
		case "ANIM":
			if len(c.Data) >= 6 {
				set.Add(infoKey("loop"), core.Int(int64(binary.LittleEndian.Uint16(c.Data[4:6]))))
			}
		}
	}
	return nil
}

// ─── BMP ─────────────────────────────────────────────────────────────────────

func bmpInfo(data []byte, set *core.Set) error {
	if len(data) < 54 {
		return fmt.Errorf("file too short for BMP header")
	}
	bpp := binary.LittleEndian.Uint16(data[28:30])
	compression := binary.LittleEndian.Uint32(data[30:34])
	xppm := int32(binary.LittleEndian.Uint32(data[38:42]))
	yppm := int32(binary.LittleEndian.Uint32(data[42:46]))

	set.Add(infoKey("bits_per_pixel"), core.Int(int64(bpp)))
	set.Add(infoKey("compression"), core.Int(int64(compression)))
	if xppm > 0 && yppm > 0 {
		set.Add(infoKey("dpi"), dpiPair(round2(float64(xppm)*0.0254), round2(float64(yppm)*0.0254)))
	}
	return nil
}
