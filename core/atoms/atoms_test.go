package atoms

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/internal/testimage"
)

// id3v23 builds an ID3v2.3 tag holding Latin-1 text frames.
func id3v23(frames map[string]string) []byte {
	var body []byte
	for _, id := range []string{"TIT2", "TPE1", "TYER"} {
		text, ok := frames[id]
		if !ok {
			continue
		}
		data := append([]byte{0}, text...)
		hdr := make([]byte, 10)
		copy(hdr, id)
		binary.BigEndian.PutUint32(hdr[4:8], uint32(len(data)))
		body = append(body, hdr...)
		body = append(body, data...)
	}
	n := len(body)
	out := []byte{'I', 'D', '3', 3, 0, 0,
		byte(n >> 21 & 0x7F), byte(n >> 14 & 0x7F), byte(n >> 7 & 0x7F), byte(n & 0x7F)}
	return append(out, body...)
}

func TestReader_ID3(t *testing.T) {
	t.Parallel()

	data := append(id3v23(map[string]string{"TIT2": "Sunset", "TPE1": "Acme", "TYER": "2024"}),
		testimage.JPEG(testimage.JPEGOptions{})...)
	path := filepath.Join(t.TempDir(), "tagged.jpg")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	set, err := New().Extract(context.Background(), path)
	require.NoError(t, err)

	v, ok := set.Get("ATOM_Format")
	require.True(t, ok)
	assert.Equal(t, "ID3v2.3", v.String())

	v, ok = set.Get("ATOM_Title")
	require.True(t, ok)
	assert.Equal(t, "Sunset", v.String())

	v, ok = set.Get("ATOM_Artist")
	require.True(t, ok)
	assert.Equal(t, "Acme", v.String())

	v, ok = set.Get("ATOM_TIT2")
	require.True(t, ok)
	assert.Equal(t, "Sunset", v.String())
}

func TestReader_NoTagsIsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plain.jpg")
	require.NoError(t, os.WriteFile(path, testimage.JPEG(testimage.JPEGOptions{}), 0o644))

	set, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestReader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"TIT2", "TIT2"},
		{"\xa9nam", "nam"},
		{"TXXX:shot date", "TXXX_shot_date"},
		{"\xa9", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanName(tt.in), tt.in)
	}
}

func TestRawValue(t *testing.T) {
	t.Parallel()

	v, ok := rawValue([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, core.KindList, v.Kind())
	assert.Equal(t, "[a, b]", v.String())

	_, ok = rawValue("")
	assert.False(t, ok)

	v, ok = rawValue([]byte{0xFF, 0x00, 0x01})
	require.True(t, ok)
	assert.Equal(t, core.KindBinary, v.Kind())
}
