package exiftag

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/text/encoding/unicode"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// tagValue converts a decoded TIFF tag into a metadata value.
func tagValue(tag *tiff.Tag, order binary.ByteOrder) core.Value {
	switch {
	case tag.Id >= 0x9C9B && tag.Id <= 0x9C9F:
		// Windows XP* tags are UTF-16LE stored as BYTE arrays.
		if s, ok := decodeUTF16(tag.Val, binary.LittleEndian); ok {
			return core.String(s)
		}
	case tag.Id == tagUserComment:
		if v, ok := userComment(tag.Val, order); ok {
			return v
		}
	}

	n := int(tag.Count)
	switch tag.Format() {
	case tiff.StringVal:
		s, _ := tag.StringVal()
		return core.String(s)
	case tiff.IntVal:
		vals := make([]core.Value, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				break
			}
			vals = append(vals, core.Int(v))
		}
		return collapse(vals)
	case tiff.RatVal:
		vals := make([]core.Value, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			vals = append(vals, core.Rational(num, den))
		}
		return collapse(vals)
	case tiff.FloatVal:
		vals := make([]core.Value, 0, n)
		for i := 0; i < n; i++ {
			f, err := tag.Float(i)
			if err != nil {
				break
			}
			vals = append(vals, core.Float(f))
		}
		return collapse(vals)
	}
	return core.Binary(tag.Val)
}

func collapse(vals []core.Value) core.Value {
	if len(vals) == 1 {
		return vals[0]
	}
	return core.List(vals...)
}

// userComment decodes the 8-byte character code prefix of UserComment.
func userComment(b []byte, order binary.ByteOrder) (core.Value, bool) {
	if len(b) < 8 {
		return core.Value{}, false
	}
	code, body := string(bytes.TrimRight(b[:8], "\x00 ")), b[8:]
	switch code {
	case "ASCII", "":
		return core.String(strings.TrimRight(string(bytes.TrimRight(body, "\x00")), " ")), true
	case "UNICODE":
		if s, ok := decodeUTF16(body, order); ok {
			return core.String(s), true
		}
	}
	return core.Value{}, false
}

func decodeUTF16(b []byte, order binary.ByteOrder) (string, bool) {
	endian := unicode.LittleEndian
	if order == binary.BigEndian {
		endian = unicode.BigEndian
	}
	out, err := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(string(out), "\x00"), true
}
