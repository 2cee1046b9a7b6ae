// Package testimage builds small but structurally valid image files for
// tests: TIFF/EXIF blocks, JPEG and PNG containers and ICC profiles.
package testimage

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"sort"
	"time"
)

// TIFF field types.
const (
	TypeByte      = 1
	TypeASCII     = 2
	TypeShort     = 3
	TypeLong      = 4
	TypeRational  = 5
	TypeUndefined = 7
)

// Pointer and thumbnail tags.
const (
	TagExifIFD      = 0x8769
	TagGPSIFD       = 0x8825
	TagInteropIFD   = 0xA005
	TagThumbOffset  = 0x0201
	TagThumbLength  = 0x0202
	TagICCProfile   = 0x8773
	TagMake         = 0x010F
	TagModel        = 0x0110
	TagDateTime     = 0x0132
	TagXPTitle      = 0x9C9B
	TagExifVersion  = 0x9000
	TagUserComment  = 0x9286
	TagGPSLatRef    = 0x0001
	TagGPSLat       = 0x0002
	TagGPSVersionID = 0x0000
	TagInteropIndex = 0x0001
)

var le = binary.LittleEndian

// Tag is one IFD entry with its already encoded value bytes.
type Tag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Value []byte
}

// ASCII returns a NUL-terminated ASCII tag.
func ASCII(id uint16, s string) Tag {
	v := append([]byte(s), 0)
	return Tag{ID: id, Type: TypeASCII, Count: uint32(len(v)), Value: v}
}

// Short returns a SHORT tag with one or more values.
func Short(id uint16, vals ...uint16) Tag {
	v := make([]byte, 2*len(vals))
	for i, x := range vals {
		le.PutUint16(v[2*i:], x)
	}
	return Tag{ID: id, Type: TypeShort, Count: uint32(len(vals)), Value: v}
}

// Long returns a LONG tag with one or more values.
func Long(id uint16, vals ...uint32) Tag {
	v := make([]byte, 4*len(vals))
	for i, x := range vals {
		le.PutUint32(v[4*i:], x)
	}
	return Tag{ID: id, Type: TypeLong, Count: uint32(len(vals)), Value: v}
}

// Rational returns a RATIONAL tag from numerator/denominator pairs.
func Rational(id uint16, pairs ...uint32) Tag {
	v := make([]byte, 4*len(pairs))
	for i, x := range pairs {
		le.PutUint32(v[4*i:], x)
	}
	return Tag{ID: id, Type: TypeRational, Count: uint32(len(pairs) / 2), Value: v}
}

// Bytes returns a BYTE tag.
func Bytes(id uint16, b []byte) Tag {
	return Tag{ID: id, Type: TypeByte, Count: uint32(len(b)), Value: b}
}

// Undefined returns an UNDEFINED tag.
func Undefined(id uint16, b []byte) Tag {
	return Tag{ID: id, Type: TypeUndefined, Count: uint32(len(b)), Value: b}
}

// Exif describes the directories of a little-endian TIFF stream.
type Exif struct {
	IFD0      []Tag
	Exif      []Tag
	GPS       []Tag
	Interop   []Tag
	IFD1      []Tag
	Thumbnail []byte
}

// TIFF encodes e as a TIFF stream. Pointer tags are added as needed.
func (e Exif) TIFF() []byte {
	ifd0 := append([]Tag(nil), e.IFD0...)
	exifDir := append([]Tag(nil), e.Exif...)
	ifd1 := append([]Tag(nil), e.IFD1...)
	if len(e.Interop) > 0 {
		exifDir = append(exifDir, Long(TagInteropIFD, 0))
	}
	if len(exifDir) > 0 {
		ifd0 = append(ifd0, Long(TagExifIFD, 0))
	}
	if len(e.GPS) > 0 {
		ifd0 = append(ifd0, Long(TagGPSIFD, 0))
	}
	if len(e.Thumbnail) > 0 {
		ifd1 = append(ifd1, Long(TagThumbOffset, 0), Long(TagThumbLength, uint32(len(e.Thumbnail))))
	}

	off0 := uint32(8)
	offExif := off0 + dirSize(ifd0)
	offGPS := offExif + dirSize(exifDir)
	offInterop := offGPS + dirSize(e.GPS)
	offIFD1 := offInterop + dirSize(e.Interop)
	offThumb := offIFD1 + dirSize(ifd1)

	if len(exifDir) > 0 {
		setLong(ifd0, TagExifIFD, offExif)
	}
	if len(e.GPS) > 0 {
		setLong(ifd0, TagGPSIFD, offGPS)
	}
	if len(e.Interop) > 0 {
		setLong(exifDir, TagInteropIFD, offInterop)
	}
	if len(e.Thumbnail) > 0 {
		setLong(ifd1, TagThumbOffset, offThumb)
	}

	next := uint32(0)
	if len(ifd1) > 0 {
		next = offIFD1
	}

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 0x2A, 0x00})
	writeU32(&buf, off0)
	buf.Write(encodeDir(off0, ifd0, next))
	buf.Write(encodeDir(offExif, exifDir, 0))
	buf.Write(encodeDir(offGPS, e.GPS, 0))
	buf.Write(encodeDir(offInterop, e.Interop, 0))
	buf.Write(encodeDir(offIFD1, ifd1, 0))
	buf.Write(e.Thumbnail)
	return buf.Bytes()
}

func setLong(tags []Tag, id uint16, v uint32) {
	for i := range tags {
		if tags[i].ID == id {
			le.PutUint32(tags[i].Value, v)
		}
	}
}

func dirSize(tags []Tag) uint32 {
	if len(tags) == 0 {
		return 0
	}
	n := uint32(2 + 12*len(tags) + 4)
	for _, t := range tags {
		if len(t.Value) > 4 {
			n += uint32(len(t.Value) + len(t.Value)%2)
		}
	}
	return n
}

func encodeDir(base uint32, tags []Tag, next uint32) []byte {
	if len(tags) == 0 {
		return nil
	}
	sorted := append([]Tag(nil), tags...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf, data bytes.Buffer
	writeU16(&buf, uint16(len(sorted)))
	dataOff := base + uint32(2+12*len(sorted)+4)
	for _, t := range sorted {
		writeU16(&buf, t.ID)
		writeU16(&buf, t.Type)
		writeU32(&buf, t.Count)
		if len(t.Value) <= 4 {
			v := make([]byte, 4)
			copy(v, t.Value)
			buf.Write(v)
			continue
		}
		writeU32(&buf, dataOff+uint32(data.Len()))
		data.Write(t.Value)
		if len(t.Value)%2 == 1 {
			data.WriteByte(0)
		}
	}
	writeU32(&buf, next)
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func writeU16(b *bytes.Buffer, v uint16) {
	var x [2]byte
	le.PutUint16(x[:], v)
	b.Write(x[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var x [4]byte
	le.PutUint32(x[:], v)
	b.Write(x[:])
}

// ─── JPEG ────────────────────────────────────────────────────────────────────

// JPEGOptions controls the segments written by JPEG.
type JPEGOptions struct {
	Width, Height int
	TIFF          []byte // EXIF block without the "Exif\0\0" prefix
	ICC           []byte
	Comment       string
	XMP           string
}

// JPEG returns a JPEG header stream that image.DecodeConfig accepts.
func JPEG(o JPEGOptions) []byte {
	if o.Width == 0 {
		o.Width, o.Height = 4, 3
	}
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	segment(&buf, 0xE0, []byte("JFIF\x00\x01\x01\x01\x00\x48\x00\x48\x00\x00"))
	if o.TIFF != nil {
		segment(&buf, 0xE1, append([]byte("Exif\x00\x00"), o.TIFF...))
	}
	if o.XMP != "" {
		segment(&buf, 0xE1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), o.XMP...))
	}
	if o.ICC != nil {
		p := append([]byte("ICC_PROFILE\x00\x01\x01"), o.ICC...)
		segment(&buf, 0xE2, p)
	}
	if o.Comment != "" {
		segment(&buf, 0xFE, []byte(o.Comment))
	}
	sof := []byte{8, byte(o.Height >> 8), byte(o.Height), byte(o.Width >> 8), byte(o.Width), 3,
		1, 0x11, 0,
		2, 0x11, 0,
		3, 0x11, 0}
	segment(&buf, 0xC0, sof)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

func segment(b *bytes.Buffer, marker byte, data []byte) {
	b.Write([]byte{0xFF, marker, byte((len(data) + 2) >> 8), byte(len(data) + 2)})
	b.Write(data)
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

// PNGChunk is an ancillary chunk inserted after IHDR.
type PNGChunk struct {
	Type string
	Data []byte
}

// PNG encodes a small RGBA image and inserts chunks after IHDR.
func PNG(width, height int, chunks ...PNGChunk) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var enc bytes.Buffer
	if err := png.Encode(&enc, img); err != nil {
		panic(err)
	}
	raw := enc.Bytes()
	const afterIHDR = 8 + 4 + 4 + 13 + 4

	var out bytes.Buffer
	out.Write(raw[:afterIHDR])
	for _, c := range chunks {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(c.Data)))
		out.Write(l[:])
		out.WriteString(c.Type)
		out.Write(c.Data)
		crc := crc32.NewIEEE()
		crc.Write([]byte(c.Type))
		crc.Write(c.Data)
		binary.BigEndian.PutUint32(l[:], crc.Sum32())
		out.Write(l[:])
	}
	out.Write(raw[afterIHDR:])
	return out.Bytes()
}

// TextChunk returns a Latin-1 tEXt chunk.
func TextChunk(keyword, text string) PNGChunk {
	return PNGChunk{Type: "tEXt", Data: append(append([]byte(keyword), 0), text...)}
}

// ─── ICC ─────────────────────────────────────────────────────────────────────

// ICCOptions controls the profile written by ICC.
type ICCOptions struct {
	Created     time.Time
	Description string
	Extra       []byte // appended after the tag data
}

// ICC returns a minimal version 4 display profile.
func ICC(o ICCOptions) []byte {
	be := binary.BigEndian
	hdr := make([]byte, 128)
	copy(hdr[4:8], "lcms")
	be.PutUint32(hdr[8:12], 0x04300000)
	copy(hdr[12:16], "mntr")
	copy(hdr[16:20], "RGB ")
	copy(hdr[20:24], "XYZ ")
	if c := o.Created; !c.IsZero() {
		for i, v := range []int{c.Year(), int(c.Month()), c.Day(), c.Hour(), c.Minute(), c.Second()} {
			be.PutUint16(hdr[24+2*i:], uint16(v))
		}
	}
	copy(hdr[36:40], "acsp")
	copy(hdr[40:44], "APPL")
	copy(hdr[48:52], "ACME")

	var tags bytes.Buffer
	var data []byte
	if o.Description != "" {
		desc := []byte("desc\x00\x00\x00\x00")
		var n [4]byte
		be.PutUint32(n[:], uint32(len(o.Description)+1))
		desc = append(desc, n[:]...)
		desc = append(desc, o.Description...)
		desc = append(desc, 0)
		tags.Write([]byte{0, 0, 0, 1})
		tags.WriteString("desc")
		var x [8]byte
		be.PutUint32(x[0:4], 128+4+12)
		be.PutUint32(x[4:8], uint32(len(desc)))
		tags.Write(x[:])
		data = desc
	} else {
		tags.Write([]byte{0, 0, 0, 0})
	}

	out := append(hdr, tags.Bytes()...)
	out = append(out, data...)
	out = append(out, o.Extra...)
	be.PutUint32(out[0:4], uint32(len(out)))
	return out
}
