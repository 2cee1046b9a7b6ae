package container

import (
	"encoding/binary"
)

// Box is an ISOBMFF box with its payload (header excluded).
type Box struct {
	Type    string
	Payload []byte
}

// boxContainers lists boxes whose payload is a sequence of child boxes.
// The value is the number of bytes preceding the children.
var boxContainers = map[string]int{
	"meta": 4, // full box: version + flags
	"iprp": 0,
	"ipco": 0,
	"moov": 0,
	"trak": 0,
	"mdia": 0,
	"minf": 0,
	"udta": 0,
}

// WalkBoxes visits every box of data depth-first, descending into known
// container boxes. Returning false from fn stops the walk.
func WalkBoxes(data []byte, fn func(Box) bool) {
	walkBoxes(data, fn, 0)
}

func walkBoxes(data []byte, fn func(Box) bool, depth int) bool {
	if depth > 8 {
		return true
	}
	for off := 0; off+8 <= len(data); {
		size := uint64(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		hdr := uint64(8)
		switch size {
		case 0:
			size = uint64(len(data) - off)
		case 1:
			// 64-bit size
			if off+16 > len(data) {
				return true
			}
			size = binary.BigEndian.Uint64(data[off+8 : off+16])
			hdr = 16
		}
		if size < hdr || size > uint64(len(data)-off) {
			return true
		}
		payload := data[off+int(hdr) : off+int(size)]
		if !fn(Box{Type: typ, Payload: payload}) {
			return false
		}
		if skip, ok := boxContainers[typ]; ok && len(payload) >= skip {
			if !walkBoxes(payload[skip:], fn, depth+1) {
				return false
			}
		}
		off += int(size)
	}
	return true
}

// FindBox returns the payload of the first box of the given type.
func FindBox(data []byte, typ string) ([]byte, bool) {
	var found []byte
	ok := false
	WalkBoxes(data, func(b Box) bool {
		if b.Type == typ {
			found, ok = b.Payload, true
			return false
		}
		return true
	})
	return found, ok
}

// Brand returns the major brand of the ftyp box, if any.
func Brand(data []byte) string {
	p, ok := FindBox(data, "ftyp")
	if !ok || len(p) < 4 {
		return ""
	}
	return string(p[:4])
}
