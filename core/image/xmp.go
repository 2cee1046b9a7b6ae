package image

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"strings"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// fieldList collects repeated values per name while keeping the order in
// which names first appear.
type fieldList struct {
	names  []string
	values map[string][]string
}

func newFieldList() *fieldList {
	return &fieldList{values: make(map[string][]string)}
}

func (f *fieldList) add(name, val string) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = append(f.values[name], val)
}

// addTo writes every field to set under prefix. Repeated fields become lists.
func (f *fieldList) addTo(set *core.Set, prefix string) {
	for _, n := range f.names {
		vals := f.values[n]
		if len(vals) == 1 {
			set.Add(prefix+n, core.String(vals[0]))
			continue
		}
		items := make([]core.Value, len(vals))
		for i, v := range vals {
			items[i] = core.String(v)
		}
		set.Add(prefix+n, core.List(items...))
	}
}

// ─── XMP ─────────────────────────────────────────────────────────────────────

// rdfContainers are the RDF collection elements whose items are named
// after the enclosing property.
var rdfContainers = map[string]bool{"Seq": true, "Bag": true, "Alt": true}

func parseXMP(data []byte) *fieldList {
	fields := newFieldList()
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	var stack []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			// Also capture attributes as fields
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || strings.HasPrefix(attr.Name.Local, "xmlns") || attr.Name.Local == "about" {
					continue
				}
				if attr.Value != "" {
					fields.add(attr.Name.Local, attr.Value)
				}
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" || len(stack) == 0 {
				continue
			}
			name := stack[len(stack)-1]
			if name == "li" && len(stack) >= 3 && rdfContainers[stack[len(stack)-2]] {
				name = stack[len(stack)-3]
			}
			if name != "xmpmeta" && name != "RDF" && name != "Description" {
				fields.add(name, val)
			}
		}
	}
	return fields
}

// ─── IPTC ────────────────────────────────────────────────────────────────────

var iptcFieldNames = map[byte]string{
	0x05: "ObjectName",
	0x0F: "Category",
	0x14: "SupplementalCategory",
	0x19: "Keywords",
	0x1E: "ReleaseDate",
	0x23: "ReleaseTime",
	0x28: "SpecialInstructions",
	0x37: "DateCreated",
	0x3C: "TimeCreated",
	0x3E: "DigitalCreationDate",
	0x3F: "DigitalCreationTime",
	0x50: "Byline",
	0x55: "BylineTitle",
	0x5A: "City",
	0x5F: "Province",
	0x65: "Country",
	0x67: "OriginalTransmissionReference",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "CopyrightNotice",
	0x76: "Contact",
	0x78: "Caption",
	0x7A: "CaptionWriter",
}

// parseIPTC walks the Photoshop image resource blocks of an APP13 segment
// and decodes the IPTC-NAA resource (0x0404).
func parseIPTC(data []byte) *fieldList {
	fields := newFieldList()
	i := 0
	for i+8 < len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			break
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if resType == 0x0404 && blockLen >= 0 && i+blockLen <= len(data) {
			parseIPTCBlock(data[i:i+blockLen], fields)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}
	return fields
}

func parseIPTCBlock(data []byte, fields *fieldList) {
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		record, dataset := data[i+1], data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			break
		}
		if name, ok := iptcFieldNames[dataset]; ok && record == 2 {
			fields.add(name, strings.ToValidUTF8(string(data[i:i+length]), "�"))
		}
		i += length
	}
}
