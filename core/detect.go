package core

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FormatID enumerates every recognised image format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtBMP  FormatID = "bmp"
	FmtHEIC FormatID = "heic"
	FmtNEF  FormatID = "nef"
	FmtCR2  FormatID = "cr2"
	FmtARW  FormatID = "arw"

	FmtUnknown FormatID = "unknown"
)

// ImageExtensions is the default set of extensions the batch driver
// processes. Matching is case-insensitive.
var ImageExtensions = []string{
	".jpg", ".jpeg", ".tiff", ".tif", ".png", ".bmp",
	".heic", ".heif", ".nef", ".cr2", ".arw",
}

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".gif":  FmtGIF,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".bmp":  FmtBMP,
	".heic": FmtHEIC,
	".heif": FmtHEIC,
	".nef":  FmtNEF,
	".cr2":  FmtCR2,
	".arw":  FmtARW,
}

// HasExtension reports whether name ends with one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// DetectBytes identifies a format from the leading bytes of a file, using
// the extension of name to tell TIFF-based raw formats apart.
func DetectBytes(name string, head []byte) FormatID {
	id := detectMagic(head)
	ext, known := extMap[strings.ToLower(filepath.Ext(name))]
	if id == FmtTIFF && known && IsTIFFBased(ext) {
		return ext
	}
	if id != FmtUnknown {
		return id
	}
	if known {
		return ext
	}
	return FmtUnknown
}

// IsTIFFBased reports whether id stores its metadata in TIFF IFDs.
func IsTIFFBased(id FormatID) bool {
	switch id {
	case FmtTIFF, FmtNEF, FmtCR2, FmtARW:
		return true
	}
	return false
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a")):
		return FmtGIF
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// CR2: TIFF header followed by "CR" at offset 8
	case len(b) >= 10 && bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) && b[8] == 'C' && b[9] == 'R':
		return FmtCR2
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// BMP: 42 4D
	case b[0] == 0x42 && b[1] == 0x4D:
		return FmtBMP
	// HEIF family: ftyp box at offset 4
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectHEIFBrand(b)
	}
	return FmtUnknown
}

func detectHEIFBrand(b []byte) FormatID {
	switch string(b[8:12]) {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "mif1", "msf1", "avif":
		return FmtHEIC
	}
	return FmtUnknown
}
