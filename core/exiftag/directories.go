// Package exiftag reads EXIF tag directories with goexif. Directories
// reports every IFD under its own namespace, and Walker reports the
// fields goexif itself recognises.
package exiftag

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/container"
)

// Namespaces written by Directories.
const (
	NamespaceIFD       = "IFD"
	NamespacePrimary   = "0th"
	NamespaceExif      = "Exif"
	NamespaceGPS       = "GPS"
	NamespaceThumb     = "1st"
	NamespaceInterop   = "Interop"
	NamespaceThumbnail = "THUMBNAIL"
)

// Directories reports the primary, Exif, GPS, Interop and thumbnail IFDs.
type Directories struct{}

// NewDirectories returns the tag directory extractor.
func NewDirectories() *Directories { return &Directories{} }

func (*Directories) Namespace() string { return NamespaceIFD }

// Extract reads the EXIF block of path. A file without EXIF yields an
// empty set.
func (d *Directories) Extract(_ context.Context, path string) (*core.Set, error) {
	payload, err := readPayload(path)
	if errors.Is(err, container.ErrNoExif) {
		return core.NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDirectories(payload)
}

// readPayload loads path and locates its EXIF block.
func readPayload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	return container.ExifPayload(core.DetectBytes(path, head), data)
}

func decodeDirectories(payload []byte) (*core.Set, error) {
	raw := bytes.TrimPrefix(payload, container.PrefixExif)
	t, err := tiff.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding TIFF structure: %w", err)
	}

	set := core.NewSet()
	var errs []error
	if len(t.Dirs) > 0 {
		ifd0 := t.Dirs[0]
		addDir(set, NamespacePrimary, ifd0, primaryNames, t.Order)

		if sub, err := subDir(raw, t.Order, ifd0, tagExifPointer); err != nil {
			errs = append(errs, &core.Failure{Namespace: NamespaceExif, Err: err})
		} else if sub != nil {
			addDir(set, NamespaceExif, sub, exifNames, t.Order)
			if iop, err := subDir(raw, t.Order, sub, tagInteropPointer); err != nil {
				errs = append(errs, &core.Failure{Namespace: NamespaceInterop, Err: err})
			} else if iop != nil {
				addDir(set, NamespaceInterop, iop, interopNames, t.Order)
			}
		}

		if gps, err := subDir(raw, t.Order, ifd0, tagGPSPointer); err != nil {
			errs = append(errs, &core.Failure{Namespace: NamespaceGPS, Err: err})
		} else if gps != nil {
			addDir(set, NamespaceGPS, gps, gpsNames, t.Order)
		}
	}

	if len(t.Dirs) > 1 {
		ifd1 := t.Dirs[1]
		addDir(set, NamespaceThumb, ifd1, thumbnailNames, t.Order)
		if err := addThumbnail(set, raw, ifd1); err != nil {
			errs = append(errs, &core.Failure{Namespace: NamespaceThumbnail, Err: err})
		}
	}
	return set, errors.Join(errs...)
}

func addDir(set *core.Set, ns string, d *tiff.Dir, names nameTable, order binary.ByteOrder) {
	for _, tag := range d.Tags {
		set.Add(core.Key(ns, names.name(tag.Id)), tagValue(tag, order))
	}
}

func findTag(d *tiff.Dir, id uint16) *tiff.Tag {
	for _, tag := range d.Tags {
		if tag.Id == id {
			return tag
		}
	}
	return nil
}

// subDir decodes the directory referenced by pointer tag id of d. It
// returns nil without error when the pointer is absent.
func subDir(raw []byte, order binary.ByteOrder, d *tiff.Dir, id uint16) (*tiff.Dir, error) {
	tag := findTag(d, id)
	if tag == nil {
		return nil, nil
	}
	off, err := tag.Int64(0)
	if err != nil {
		return nil, fmt.Errorf("reading IFD pointer: %w", err)
	}
	if off <= 0 || off >= int64(len(raw)) {
		return nil, fmt.Errorf("IFD pointer %d outside EXIF block of %d bytes", off, len(raw))
	}
	r := bytes.NewReader(raw)
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	sub, _, err := tiff.DecodeDir(r, order)
	if err != nil {
		return nil, fmt.Errorf("decoding sub-IFD: %w", err)
	}
	return sub, nil
}

func addThumbnail(set *core.Set, raw []byte, ifd1 *tiff.Dir) error {
	offTag, lenTag := findTag(ifd1, tagThumbOffset), findTag(ifd1, tagThumbLength)
	if offTag == nil || lenTag == nil {
		return nil
	}
	off, err1 := offTag.Int64(0)
	n, err2 := lenTag.Int64(0)
	if err := errors.Join(err1, err2); err != nil {
		return err
	}
	if off < 0 || n < 0 || off+n > int64(len(raw)) {
		return fmt.Errorf("thumbnail of %d bytes at offset %d exceeds EXIF block", n, off)
	}
	set.Add(core.Key(NamespaceThumbnail, "PRESENT"), core.Bool(true))
	set.Add(core.Key(NamespaceThumbnail, "SIZE"), core.Int(n))
	return nil
}
