package aggregate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/config"
	"github.com/ankit-chaubey/exif-extractor/core/exiftag"
	"github.com/ankit-chaubey/exif-extractor/core/exiftool"
	"github.com/ankit-chaubey/exif-extractor/core/rawscan"
	"github.com/ankit-chaubey/exif-extractor/internal/testimage"
)

// fake is a scripted extractor.
type fake struct {
	ns      string
	entries [][2]string
	err     error
	panics  bool
	calls   int
}

func (f *fake) Namespace() string { return f.ns }

func (f *fake) Extract(context.Context, string) (*core.Set, error) {
	f.calls++
	if f.panics {
		panic("corrupt input")
	}
	if f.entries == nil {
		return nil, f.err
	}
	set := core.NewSet()
	for _, e := range f.entries {
		set.Add(e[0], core.String(e[1]))
	}
	return set, f.err
}

func tempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func value(t *testing.T, s *core.Set, key string) string {
	t.Helper()
	v, ok := s.Get(key)
	require.True(t, ok, "missing %s in %v", key, s.Keys())
	return core.RenderValue(v)
}

func TestExtract_FileEntriesWhenEverythingFails(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "photo.jpg", []byte("0123456789"))
	e := New(WithExtractors(
		&fake{ns: "IMAGE", err: errors.New("cannot identify image file")},
		&fake{ns: "ICC", panics: true},
	))

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "10", value(t, res.Set, "FILE_SIZE"))
	assert.Equal(t, "photo.jpg", value(t, res.Set, "FILE_NAME"))
	_, err = time.ParseInLocation(core.TimestampLayout, value(t, res.Set, "FILE_MODIFIED"), time.Local)
	assert.NoError(t, err)
	_, err = time.ParseInLocation(core.TimestampLayout, value(t, res.Set, "FILE_CREATED"), time.Local)
	assert.NoError(t, err)

	assert.Equal(t, "cannot identify image file", value(t, res.Set, "IMAGE_ERROR"))
	assert.Contains(t, value(t, res.Set, "ICC_ERROR"), "corrupt input")
	assert.Len(t, res.Failures, 2)
	assert.False(t, res.HasProfileDateTime)

	out := core.Render(res.Set, time.Now())
	assert.Contains(t, out, "[FILE]")
	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 80)+"\n"))
}

func TestExtract_FileIOFailure(t *testing.T) {
	t.Parallel()

	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = New().Extract(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrFileIO)
}

func TestExtract_Isolation(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.png", []byte("x"))
	first := &fake{ns: "A", entries: [][2]string{{"A_one", "1"}}}
	broken := &fake{ns: "B", entries: [][2]string{{"B_partial", "kept"}, {"A_one", "clobber"}}, err: errors.New("truncated")}
	last := &fake{ns: "C", entries: [][2]string{{"C_three", "3"}}}

	res, err := New(WithExtractors(first, broken, last)).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "1", value(t, res.Set, "A_one"), "existing entries are never overwritten")
	assert.Equal(t, "kept", value(t, res.Set, "B_partial"))
	assert.Equal(t, "truncated", value(t, res.Set, "B_ERROR"))
	assert.Equal(t, "3", value(t, res.Set, "C_three"))
	assert.Equal(t, 1, last.calls)
}

func TestExtract_FirstWriterWins(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.jpg", []byte("profile_date_time: 1999-09-09 09:09:09\x00"))
	icc := &fake{ns: "ICC", entries: [][2]string{
		{"ICC_PROFILE_PRESENT", "true"},
		{"ICC_PROFILE_DATE_TIME", "2024-01-01 12:00:00"},
	}}
	tool := &fake{ns: "EXIFTOOL_CMD", entries: [][2]string{{"EXIFTOOL_CMD_ICC_Profile_ProfileDateTime", "2020:02:02 02:02:02"}}}
	scan := &fake{ns: rawscan.Namespace}

	res, err := New(WithExtractors(icc, tool), WithFallback(scan)).Extract(context.Background(), path)
	require.NoError(t, err)

	require.True(t, res.HasProfileDateTime)
	assert.Equal(t, "2024-01-01 12:00:00", res.ProfileDateTime)
	assert.Equal(t, "ICC_PROFILE_DATE_TIME", res.ProfileSource)
	assert.Equal(t, "2024-01-01 12:00:00", value(t, res.Set, ProfileKey))
	assert.Equal(t, 0, scan.calls, "fallback only runs when nothing was derived")
}

func TestExtract_ValueMentionsProfile(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.jpg", []byte("x"))
	x := &fake{ns: "INFO", entries: [][2]string{
		{"INFO_comment", "profile date 2021-03-04"},
	}}
	res, err := New(WithExtractors(x)).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "profile date 2021-03-04", res.ProfileDateTime)
}

func TestExtract_ErrorEntriesAreNotCandidates(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.jpg", []byte("x"))
	x := &fake{ns: "ICC", err: errors.New("bad profile date time")}
	res, err := New(WithExtractors(x)).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.HasProfileDateTime)
	_, ok := res.Set.Get(ProfileKey)
	assert.False(t, ok)
}

func TestExtract_RawFallback(t *testing.T) {
	t.Parallel()

	data := append(testimage.JPEG(testimage.JPEGOptions{}), "profile_date_time: 2024-01-01 12:00:00\x00"...)
	path := tempFile(t, "a.jpg", data)

	res, err := New(
		WithExtractors(&fake{ns: "IMAGE", entries: [][2]string{{"IMAGE_FORMAT", "JPEG"}}}),
		WithFallback(rawscan.New()),
	).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01 12:00:00", value(t, res.Set, rawscan.Key))
	assert.Equal(t, "2024-01-01 12:00:00", value(t, res.Set, ProfileKey))
	assert.Equal(t, rawscan.Key, res.ProfileSource)
}

func TestExtract_NoMatchIsSilent(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.jpg", []byte("nothing here"))
	res, err := New(WithFallback(rawscan.New())).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.HasProfileDateTime)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 4, res.Set.Len())
}

func TestExtract_JoinedFailuresAreSplit(t *testing.T) {
	t.Parallel()

	path := tempFile(t, "a.jpg", []byte("x"))
	x := &fake{ns: "IFD", entries: [][2]string{{"0th_Make", "Acme"}}, err: errors.Join(
		&core.Failure{Namespace: "GPS", Err: errors.New("bad offset")},
		&core.Failure{Namespace: "Interop", Err: errors.New("short read")},
	)}

	res, err := New(WithExtractors(x)).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "bad offset", value(t, res.Set, "GPS_ERROR"))
	assert.Equal(t, "short read", value(t, res.Set, "Interop_ERROR"))
	assert.Equal(t, "Acme", value(t, res.Set, "0th_Make"))
	_, ok := res.Set.Get("IFD_ERROR")
	assert.False(t, ok)
}

func TestSplitFailures_PlainJoinStaysWhole(t *testing.T) {
	t.Parallel()

	err := errors.Join(errors.New("a"), errors.New("b"))
	got := splitFailures(err, "ATOM")
	require.Len(t, got, 1)
	assert.Equal(t, "ATOM", got[0].Namespace)
}

func TestExtract_LogsFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	path := tempFile(t, "a.jpg", []byte("x"))
	e := New(
		WithExtractors(&fake{ns: "ICC", err: errors.New("boom")}),
		WithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel)),
	)
	_, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"namespace":"ICC"`)
	assert.Contains(t, buf.String(), "boom")
}

func TestRoundTrip_TagDirectories(t *testing.T) {
	t.Parallel()

	tiff := testimage.Exif{
		IFD0: []testimage.Tag{testimage.ASCII(testimage.TagMake, "Acme")},
		GPS: []testimage.Tag{
			testimage.ASCII(testimage.TagGPSLatRef, "N"),
			testimage.Rational(testimage.TagGPSLat, 51, 1, 30, 1, 0, 1),
		},
	}.TIFF()
	path := tempFile(t, "a.jpg", testimage.JPEG(testimage.JPEGOptions{TIFF: tiff}))

	res, err := New(WithExtractors(exiftag.NewDirectories())).Extract(context.Background(), path)
	require.NoError(t, err)

	out := core.Render(res.Set, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "\n0th_Make: Acme\n")
	zeroth := strings.Index(out, "[0th]")
	gps := strings.Index(out, "[GPS]")
	require.NotEqual(t, -1, zeroth)
	require.NotEqual(t, -1, gps)
	assert.Less(t, zeroth, gps)
}

func TestNewDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Len(t, Pipeline(cfg, exiftool.Tool{}, nil), 6)
	assert.Len(t, Pipeline(cfg, exiftool.Tool{Path: "/usr/bin/exiftool"}, nil), 7)

	disabled := *cfg
	disabled.ExifTool.Disabled = true
	assert.Len(t, Pipeline(&disabled, exiftool.Tool{Path: "/usr/bin/exiftool"}, nil), 6)

	tiff := testimage.Exif{IFD0: []testimage.Tag{testimage.ASCII(testimage.TagMake, "Acme")}}.TIFF()
	path := tempFile(t, "a.jpg", testimage.JPEG(testimage.JPEGOptions{TIFF: tiff}))
	res, err := NewDefault(cfg, exiftool.Tool{}, nil, zerolog.Nop()).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", value(t, res.Set, "0th_Make"))
	assert.Equal(t, "JPEG", value(t, res.Set, "IMAGE_FORMAT"))
	assert.Equal(t, "Acme", value(t, res.Set, "GOEXIF_Make"))
}

func TestNewDefault_CleanImagesHaveNoErrors(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	encoders := map[string]func(*bytes.Buffer) error{
		"a.jpg": func(b *bytes.Buffer) error { return jpeg.Encode(b, img, nil) },
		"a.png": func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"a.bmp": func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
		"a.tif": func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) },
	}
	e := NewDefault(config.Default(), exiftool.Tool{}, nil, zerolog.Nop())

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, encode(&buf))
			res, err := e.Extract(context.Background(), tempFile(t, name, buf.Bytes()))
			require.NoError(t, err)

			for _, k := range res.Set.Keys() {
				assert.False(t, strings.HasSuffix(k, "_ERROR"), "%s: %s", k, value(t, res.Set, k))
			}
			assert.Empty(t, res.Failures)
			assert.Equal(t, "4", value(t, res.Set, "IMAGE_WIDTH"))
		})
	}
}

func TestNewDefault_OversizedPNGChunk(t *testing.T) {
	t.Parallel()

	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x40, 0x00, 0x00, 0x00, 't', 'E', 'X', 't', 'x'}
	res, err := NewDefault(config.Default(), exiftool.Tool{}, nil, zerolog.Nop()).Extract(context.Background(), tempFile(t, "a.png", data))
	require.NoError(t, err)
	assert.Equal(t, "a.png", value(t, res.Set, "FILE_NAME"))
	assert.False(t, res.HasProfileDateTime)
}
