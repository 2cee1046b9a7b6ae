package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// ErrNotPNG is returned when the PNG signature is missing.
var ErrNotPNG = errors.New("not a valid PNG")

// maxInflate bounds decompressed PNG text and profile chunks.
const maxInflate = 16 << 20

// Chunk is a typed data block of a PNG or RIFF container.
type Chunk struct {
	Type string
	Data []byte
}

// ReadPNGChunks returns every chunk up to IEND. A chunk whose declared
// length runs past the end of data ends the walk; the chunks read so far
// are returned.
func ReadPNGChunks(data []byte) ([]Chunk, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, ErrNotPNG
	}

	var chunks []Chunk
	offset := len(pngSignature)
	for offset+8 <= len(data) {
		length := int64(binary.BigEndian.Uint32(data[offset : offset+4]))
		typ := string(data[offset+4 : offset+8])
		offset += 8
		// data plus the trailing CRC
		if length+4 > int64(len(data)-offset) {
			break
		}
		chunks = append(chunks, Chunk{Type: typ, Data: data[offset : offset+int(length)]})
		offset += int(length) + 4
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

// Inflate decompresses a zlib stream as used by zTXt, iTXt and iCCP.
func Inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxInflate))
}
