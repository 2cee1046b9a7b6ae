package exiftag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/container"
)

// NamespaceGoexif prefixes the fields reported by Walker.
const NamespaceGoexif = "GOEXIF"

// Walker reports every field goexif recognises, formatted the way goexif
// prints them, plus the decimal GPS position when one is present.
type Walker struct{}

// NewWalker returns the generic tag reader.
func NewWalker() *Walker { return &Walker{} }

func (*Walker) Namespace() string { return NamespaceGoexif }

func (w *Walker) Extract(_ context.Context, path string) (*core.Set, error) {
	payload, err := readPayload(path)
	if errors.Is(err, container.ErrNoExif) {
		return core.NewSet(), nil
	}
	if err != nil {
		return nil, err
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil {
		return nil, err
	}
	var partial error
	if err != nil {
		partial = fmt.Errorf("partial decode: %w", err)
	}

	c := &fieldCollector{}
	if err := x.Walk(c); err != nil {
		return nil, err
	}
	sort.Slice(c.fields, func(i, j int) bool { return c.fields[i].name < c.fields[j].name })

	set := core.NewSet()
	for _, f := range c.fields {
		set.Add(core.Key(NamespaceGoexif, f.name), core.String(f.value))
	}
	if lat, long, err := x.LatLong(); err == nil {
		set.Add(core.Key(NamespaceGoexif, "GPSLatitudeDecimal"), core.Float(lat))
		set.Add(core.Key(NamespaceGoexif, "GPSLongitudeDecimal"), core.Float(long))
	}
	return set, partial
}

type field struct {
	name  string
	value string
}

type fieldCollector struct {
	fields []field
}

func (c *fieldCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	// Remove surrounding quotes from string values
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	c.fields = append(c.fields, field{name: string(name), value: val})
	return nil
}
