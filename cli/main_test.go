package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/exif-extractor/core/batch"
	"github.com/ankit-chaubey/exif-extractor/internal/testimage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "exif-extractor dev\n", out)
}

func TestInstallGuidance(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "--install-exiftool", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "ExifTool installation")
	assert.Contains(t, out, "https://exiftool.org/")
}

func TestBatch_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--no-exiftool", "--no-color", filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, batch.ErrNotDirectory)
}

func TestBatch_WritesReports(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tiff := testimage.Exif{IFD0: []testimage.Tag{testimage.ASCII(testimage.TagMake, "Acme")}}.TIFF()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), testimage.JPEG(testimage.JPEGOptions{TIFF: tiff}), 0o644))

	out, err := execute(t, "--no-exiftool", "--no-color", "--workers", "2", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Processing: a.jpg")
	assert.Contains(t, out, "Processing Summary")

	report, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "0th_Make: Acme")
}

func TestView(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "b.jpg")
	require.NoError(t, os.WriteFile(path, testimage.JPEG(testimage.JPEGOptions{Comment: "hello"}), 0o644))

	out, err := execute(t, "view", "--no-exiftool", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 80)))
	assert.Contains(t, out, "FILE_NAME: b.jpg")
	assert.NotContains(t, out, "ExifTool")
}

func TestView_NeedsOneArgument(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "view")
	assert.Error(t, err)
}

func TestWorkersFlagNotesScanOverlap(t *testing.T) {
	t.Parallel()

	f := newRootCommand().PersistentFlags().Lookup("workers")
	require.NotNil(t, f)
	assert.Equal(t, "1", f.DefValue)
	assert.Contains(t, f.Usage, "raw byte scan may overlap")
}
