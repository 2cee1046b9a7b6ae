package container

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/internal/testimage"
)

func sampleTIFF() []byte {
	return testimage.Exif{
		IFD0: []testimage.Tag{testimage.ASCII(testimage.TagMake, "Acme")},
	}.TIFF()
}

func TestReadJPEGSegments(t *testing.T) {
	t.Parallel()

	data := testimage.JPEG(testimage.JPEGOptions{TIFF: sampleTIFF(), Comment: "hello"})
	segs, err := ReadJPEGSegments(bytes.NewReader(data))
	require.NoError(t, err)

	var markers []byte
	for _, s := range segs {
		markers = append(markers, s.Marker)
	}
	assert.Equal(t, []byte{MarkerAPP0, MarkerAPP1, MarkerCOM, MarkerSOF0}, markers)
	assert.Equal(t, []byte("hello"), FindSegment(segs, MarkerCOM, nil))
	assert.NotNil(t, FindSegment(segs, MarkerAPP1, PrefixExif))
	assert.Nil(t, FindSegment(segs, MarkerAPP1, PrefixXMP))
}

func TestReadJPEGSegments_NotJPEG(t *testing.T) {
	t.Parallel()

	_, err := ReadJPEGSegments(bytes.NewReader([]byte("GIF89a")))
	assert.ErrorIs(t, err, ErrNotJPEG)
}

func TestReadPNGChunks(t *testing.T) {
	t.Parallel()

	data := testimage.PNG(2, 2, testimage.TextChunk("Author", "Wile"))
	chunks, err := ReadPNGChunks(data)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(chunks), 4)
	assert.Equal(t, "IHDR", chunks[0].Type)
	assert.Equal(t, "tEXt", chunks[1].Type)
	assert.Equal(t, "IEND", chunks[len(chunks)-1].Type)

	_, err = ReadPNGChunks([]byte("GIF89a"))
	assert.ErrorIs(t, err, ErrNotPNG)
}

// Not parallel: AllocsPerRun counts process-wide allocations.
func TestReadPNGChunks_OversizedLength(t *testing.T) {
	sig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	huge := append(append([]byte(nil), sig...), 0x40, 0x00, 0x00, 0x00, 't', 'E', 'X', 't', 'x')

	chunks, err := ReadPNGChunks(huge)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	allocs := testing.AllocsPerRun(10, func() { _, _ = ReadPNGChunks(huge) })
	assert.LessOrEqual(t, allocs, 1.0)

	// A valid chunk before the bad header is kept.
	png := testimage.PNG(2, 2)
	truncated := append(append([]byte(nil), png[:8+8+13+4]...), 0xFF, 0xFF, 0xFF, 0xF0, 'z', 'T', 'X', 't')
	chunks, err = ReadPNGChunks(truncated)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "IHDR", chunks[0].Type)

	_, err = ICCProfile(core.FmtPNG, huge)
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestExifPayload(t *testing.T) {
	t.Parallel()

	tiff := sampleTIFF()

	jpeg := testimage.JPEG(testimage.JPEGOptions{TIFF: tiff})
	p, err := ExifPayload(core.FmtJPEG, jpeg)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte(nil), PrefixExif...), tiff...), p)

	p, err = ExifPayload(core.FmtTIFF, tiff)
	require.NoError(t, err)
	assert.Equal(t, tiff, p)

	png := testimage.PNG(1, 1, testimage.PNGChunk{Type: "eXIf", Data: tiff})
	p, err = ExifPayload(core.FmtPNG, png)
	require.NoError(t, err)
	assert.Equal(t, tiff, p)

	heic := append([]byte("\x00\x00\x00\x10ftypheic\x00\x00\x00\x00junkExif\x00\x00"), tiff...)
	p, err = ExifPayload(core.FmtHEIC, heic)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(p, PrefixExif))

	_, err = ExifPayload(core.FmtJPEG, testimage.JPEG(testimage.JPEGOptions{}))
	assert.ErrorIs(t, err, ErrNoExif)

	_, err = ExifPayload(core.FmtBMP, []byte("BM"))
	assert.ErrorIs(t, err, ErrNoExif)
}

func TestICCProfile(t *testing.T) {
	t.Parallel()

	prof := testimage.ICC(testimage.ICCOptions{Created: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)})

	got, err := ICCProfile(core.FmtJPEG, testimage.JPEG(testimage.JPEGOptions{ICC: prof}))
	require.NoError(t, err)
	assert.Equal(t, prof, got)

	tiff := testimage.Exif{IFD0: []testimage.Tag{testimage.Undefined(testimage.TagICCProfile, prof)}}.TIFF()
	got, err = ICCProfile(core.FmtTIFF, tiff)
	require.NoError(t, err)
	assert.Equal(t, prof, got)

	_, err = ICCProfile(core.FmtPNG, testimage.PNG(1, 1))
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestJoinICCChunks_Ordering(t *testing.T) {
	t.Parallel()

	got, err := joinICCChunks([][]byte{
		{2, 2, 'c', 'd'},
		{1, 2, 'a', 'b'},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), got)
}

func TestWalkBoxes(t *testing.T) {
	t.Parallel()

	box := func(typ string, payload []byte) []byte {
		b := make([]byte, 8, 8+len(payload))
		binary.BigEndian.PutUint32(b, uint32(8+len(payload)))
		copy(b[4:], typ)
		return append(b, payload...)
	}
	ispe := box("ispe", []byte{0, 0, 0, 0, 0, 0, 0, 64, 0, 0, 0, 48})
	colr := box("colr", append([]byte("prof"), 1, 2, 3))
	ipco := box("ipco", append(ispe, colr...))
	iprp := box("iprp", ipco)
	meta := box("meta", append([]byte{0, 0, 0, 0}, iprp...))
	file := append(box("ftyp", []byte("heic\x00\x00\x00\x00")), meta...)

	assert.Equal(t, "heic", Brand(file))

	p, ok := FindBox(file, "ispe")
	require.True(t, ok)
	assert.Len(t, p, 12)

	prof, err := ICCProfile(core.FmtHEIC, file)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, prof)

	_, ok = FindBox(file, "mdat")
	assert.False(t, ok)
}
