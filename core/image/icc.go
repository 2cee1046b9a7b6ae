package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/container"
)

// NamespaceICC prefixes the ICC profile entries.
const NamespaceICC = "ICC"

// iccHeaderSize is the fixed header length of every ICC profile.
const iccHeaderSize = 128

var (
	iccDatePattern        = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}`)
	iccTimePattern        = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	iccProfileDatePattern = regexp.MustCompile(`(?i)profile_date_time[:\s]+([^\n]+)`)
)

var profileClasses = map[string]string{
	"scnr": "Input",
	"mntr": "Display",
	"prtr": "Output",
	"link": "DeviceLink",
	"spac": "ColorSpace",
	"abst": "Abstract",
	"nmcl": "NamedColor",
}

var renderingIntents = []string{"Perceptual", "Relative Colorimetric", "Saturation", "Absolute Colorimetric"}

// Profile reports the embedded ICC profile. The header creation time is
// emitted before any other timestamp so it is the first profile date seen.
type Profile struct{}

// NewProfile returns the ICC profile extractor.
func NewProfile() *Profile { return &Profile{} }

func (*Profile) Namespace() string { return NamespaceICC }

func (p *Profile) Extract(_ context.Context, path string) (*core.Set, error) {
	data, id, err := load(path)
	if err != nil {
		return nil, err
	}
	prof, err := container.ICCProfile(id, data)
	if errors.Is(err, container.ErrNoProfile) {
		return core.NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	return profileSet(prof), nil
}

func iccKey(name string) string { return core.Key(NamespaceICC, "PROFILE_"+name) }

func profileSet(prof []byte) *core.Set {
	set := core.NewSet()
	set.Add(iccKey("PRESENT"), core.Bool(true))
	set.Add(iccKey("SIZE"), core.Int(int64(len(prof))))

	if len(prof) >= iccHeaderSize {
		if dt, ok := headerDateTime(prof[24:36]); ok {
			set.Add(iccKey("DATE_TIME"), core.String(dt))
		}
		set.Add(iccKey("VERSION"), core.String(fmt.Sprintf("%d.%d.%d", prof[8], prof[9]>>4, prof[9]&0x0F)))
		class := signature(prof[12:16])
		if name, ok := profileClasses[class]; ok {
			class = name
		}
		set.Add(iccKey("CLASS"), core.String(class))
		set.Add(iccKey("COLOR_SPACE"), core.String(signature(prof[16:20])))
		set.Add(iccKey("CONNECTION_SPACE"), core.String(signature(prof[20:24])))
		addSignature(set, "CMM", prof[4:8])
		addSignature(set, "PLATFORM", prof[40:44])
		addSignature(set, "MANUFACTURER", prof[48:52])
		if intent := binary.BigEndian.Uint32(prof[64:68]); int(intent) < len(renderingIntents) {
			set.Add(iccKey("RENDERING_INTENT"), core.String(renderingIntents[intent]))
		}
		tags := readTagTable(prof)
		if s, ok := tags.text(prof, "desc"); ok {
			set.Add(iccKey("DESCRIPTION"), core.String(s))
		}
		if s, ok := tags.text(prof, "cprt"); ok {
			set.Add(iccKey("COPYRIGHT"), core.String(s))
		}
	}

	// Full timestamps go before the date-only and time-only matches.
	text := asciiOnly(prof)
	if m := iccProfileDatePattern.FindStringSubmatch(text); m != nil {
		set.Add(iccKey("DATE_TIME_TEXT"), core.String(strings.TrimSpace(m[1])))
	}
	if m := iccDatePattern.FindString(text); m != "" {
		set.Add(iccKey("DATE"), core.String(m))
	}
	if m := iccTimePattern.FindString(text); m != "" {
		set.Add(iccKey("TIME"), core.String(m))
	}
	return set
}

// headerDateTime decodes the dateTimeNumber of the profile header.
func headerDateTime(b []byte) (string, bool) {
	var f [6]uint16
	for i := range f {
		f[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	if f[0] == 0 || f[1] == 0 || f[1] > 12 || f[2] == 0 || f[2] > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", f[0], f[1], f[2], f[3], f[4], f[5]), true
}

func signature(b []byte) string {
	return strings.TrimRight(string(bytes.TrimRight(b, "\x00")), " ")
}

func addSignature(set *core.Set, name string, b []byte) {
	if s := signature(b); s != "" {
		set.Add(iccKey(name), core.String(s))
	}
}

// asciiOnly drops every non-ASCII byte.
func asciiOnly(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c < 0x80 {
			out = append(out, c)
		}
	}
	return string(out)
}

type iccTag struct {
	offset, size uint32
}

type tagTable map[string]iccTag

func readTagTable(prof []byte) tagTable {
	t := tagTable{}
	if len(prof) < iccHeaderSize+4 {
		return t
	}
	n := int(binary.BigEndian.Uint32(prof[iccHeaderSize:]))
	for i := 0; i < n; i++ {
		off := iccHeaderSize + 4 + 12*i
		if off+12 > len(prof) {
			break
		}
		t[string(prof[off:off+4])] = iccTag{
			offset: binary.BigEndian.Uint32(prof[off+4:]),
			size:   binary.BigEndian.Uint32(prof[off+8:]),
		}
	}
	return t
}

// text decodes a textDescriptionType, multiLocalizedUnicodeType or
// textType element.
func (t tagTable) text(prof []byte, sig string) (string, bool) {
	tag, ok := t[sig]
	if !ok || uint64(tag.offset)+uint64(tag.size) > uint64(len(prof)) || tag.size < 12 {
		return "", false
	}
	el := prof[tag.offset : tag.offset+tag.size]
	switch string(el[:4]) {
	case "desc":
		n := binary.BigEndian.Uint32(el[8:12])
		if uint64(12)+uint64(n) > uint64(len(el)) {
			return "", false
		}
		return strings.TrimRight(string(el[12:12+n]), "\x00"), true
	case "text":
		return strings.TrimRight(string(el[8:]), "\x00"), true
	case "mluc":
		if len(el) < 28 {
			return "", false
		}
		// First record: language, country, length, offset.
		n := binary.BigEndian.Uint32(el[20:24])
		off := binary.BigEndian.Uint32(el[24:28])
		if uint64(off)+uint64(n) > uint64(len(el)) {
			return "", false
		}
		out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(el[off : off+n])
		if err != nil {
			return "", false
		}
		return strings.TrimRight(string(out), "\x00"), true
	}
	return "", false
}
