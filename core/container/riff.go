package container

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrNotWebP is returned when the RIFF/WEBP header is missing.
var ErrNotWebP = errors.New("not a WebP file")

// ReadRIFFChunks splits a WebP file into its top-level chunks.
func ReadRIFFChunks(data []byte) ([]Chunk, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return nil, ErrNotWebP
	}

	var chunks []Chunk
	offset := 12 // skip RIFF header
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if size < 0 || offset+size > len(data) {
			break
		}
		chunks = append(chunks, Chunk{Type: id, Data: data[offset : offset+size]})
		offset += size
		if size%2 != 0 {
			offset++ // padding
		}
	}
	return chunks, nil
}
