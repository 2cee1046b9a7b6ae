// Package atoms reads tag atoms and ID3/Vorbis comment blocks that some
// cameras and editors embed alongside image data.
package atoms

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dhowden/tag"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// Namespace prefixes every entry.
const Namespace = "ATOM"

// Reader implements core.Extractor on top of dhowden/tag.
type Reader struct{}

// New returns the tag atom reader.
func New() *Reader { return &Reader{} }

func (*Reader) Namespace() string { return Namespace }

// Extract identifies a tag block first; files without one yield an empty
// set rather than an error.
func (r *Reader) Extract(_ context.Context, path string) (*core.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, _, err := tag.Identify(f); err != nil {
		return core.NewSet(), nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	t, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("could not read tags: %w", err)
	}
	return tagSet(t), nil
}

func key(name string) string { return core.Key(Namespace, name) }

func tagSet(t tag.Metadata) *core.Set {
	set := core.NewSet()
	set.Add(key("Format"), core.String(string(t.Format())))
	if ft := t.FileType(); ft != "" && ft != tag.UnknownFileType {
		set.Add(key("FileType"), core.String(string(ft)))
	}

	add := func(k, v string) {
		if v != "" {
			set.Add(key(k), core.String(v))
		}
	}
	add("Title", t.Title())
	add("Artist", t.Artist())
	add("Album", t.Album())
	add("AlbumArtist", t.AlbumArtist())
	add("Composer", t.Composer())
	add("Genre", t.Genre())
	add("Comment", t.Comment())
	add("Lyrics", t.Lyrics())
	if t.Year() != 0 {
		set.Add(key("Year"), core.Int(int64(t.Year())))
	}
	if track, total := t.Track(); track != 0 {
		set.Add(key("TrackNumber"), numberPair(track, total))
	}
	if disc, total := t.Disc(); disc != 0 {
		set.Add(key("DiscNumber"), numberPair(disc, total))
	}

	raw := t.Raw()
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		v := raw[k]
		if v == nil {
			continue
		}
		name := cleanName(k)
		if name == "" {
			continue
		}
		if val, ok := rawValue(v); ok {
			set.Add(key(name), val)
		}
	}
	return set
}

func numberPair(n, total int) core.Value {
	if total == 0 {
		return core.Int(int64(n))
	}
	return core.String(fmt.Sprintf("%d/%d", n, total))
}

func rawValue(v any) (core.Value, bool) {
	switch vt := v.(type) {
	case string:
		if vt == "" {
			return core.Value{}, false
		}
		return core.String(vt), true
	case []string:
		items := make([]core.Value, len(vt))
		for i, s := range vt {
			items[i] = core.String(s)
		}
		return core.List(items...), true
	case int:
		return core.Int(int64(vt)), true
	case []byte:
		return core.Binary(vt), true
	case *tag.Picture:
		if vt == nil {
			return core.Value{}, false
		}
		return core.String(fmt.Sprintf("<picture %s %s: %d bytes>", vt.Type, vt.MIMEType, len(vt.Data))), true
	case *tag.Comm:
		return core.String(vt.Text), true
	}
	return core.String(fmt.Sprint(v)), true
}

// cleanName turns atom names like "\xa9nam" and "TXXX:label" into key-safe
// local names.
func cleanName(k string) string {
	k = strings.ToValidUTF8(k, "")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':':
			return '_'
		case '©':
			return -1
		}
		return r
	}, k)
}
