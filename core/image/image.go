// Package image extracts container-level metadata from image files:
// basic properties (IMAGE), the embedded ICC profile (ICC) and the
// container's own info items such as JFIF, PNG text chunks, XMP and
// IPTC (INFO).
package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/container"
)

// ──────────────────────────────────────────────────────────────────────────────
// Properties
// ──────────────────────────────────────────────────────────────────────────────

// NamespaceImage prefixes the basic image properties.
const NamespaceImage = "IMAGE"

// Properties reports format, color mode and dimensions.
type Properties struct{}

// NewProperties returns the basic properties extractor.
func NewProperties() *Properties { return &Properties{} }

func (*Properties) Namespace() string { return NamespaceImage }

func (p *Properties) Extract(_ context.Context, path string) (*core.Set, error) {
	data, id, err := load(path)
	if err != nil {
		return nil, err
	}

	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if id == core.FmtHEIC {
			return heifProperties(data)
		}
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	return propertySet(strings.ToUpper(format), modeName(cfg.ColorModel), cfg.Width, cfg.Height), nil
}

func propertySet(format, mode string, w, h int) *core.Set {
	set := core.NewSet()
	set.Add(core.Key(NamespaceImage, "FORMAT"), core.String(format))
	if mode != "" {
		set.Add(core.Key(NamespaceImage, "MODE"), core.String(mode))
	}
	set.Add(core.Key(NamespaceImage, "SIZE"), core.List(core.Int(int64(w)), core.Int(int64(h))))
	set.Add(core.Key(NamespaceImage, "WIDTH"), core.Int(int64(w)))
	set.Add(core.Key(NamespaceImage, "HEIGHT"), core.Int(int64(h)))
	return set
}

// heifProperties reads dimensions from the first ispe property box.
func heifProperties(data []byte) (*core.Set, error) {
	p, ok := container.FindBox(data, "ispe")
	if !ok || len(p) < 12 {
		return nil, errors.New("HEIF image has no spatial extents property")
	}
	w := binary.BigEndian.Uint32(p[4:8])
	h := binary.BigEndian.Uint32(p[8:12])
	return propertySet("HEIF", "", int(w), int(h)), nil
}

func modeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA"
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA;16"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel:
		return "YCbCr"
	case color.NYCbCrAModel:
		return "YCbCrA"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	return fmt.Sprintf("%T", m)
}

// load reads path and identifies its format.
func load(path string) ([]byte, core.FormatID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.FmtUnknown, err
	}
	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	return data, core.DetectBytes(path, head), nil
}
