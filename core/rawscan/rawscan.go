// Package rawscan searches a file's raw bytes for a textual
// profile_date_time marker when no structured reader reported one.
package rawscan

import (
	"context"
	"errors"
	"io"
	"os"
	"regexp"

	"golang.org/x/text/encoding/unicode"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// Namespace prefixes the scanner's entries.
const Namespace = "RAW"

// Key is the entry written for a match.
var Key = core.Key(Namespace, "PROFILE_DATE_TIME")

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 1 << 20

// Pattern matches the marker and captures the timestamp text after it.
var Pattern = regexp.MustCompile(`(?i)profile[_\s]date[_\s]time[\s:=]+([^\x00-\x1F]{8,25})`)

// overlap is the tail carried between chunks. A match ending within
// this distance of an unfinished buffer may still grow.
const overlap = 4 << 10

// Scanner streams a file through Pattern in fixed-size chunks, keeping
// enough of each chunk to catch matches that straddle a boundary.
type Scanner struct {
	ChunkSize int
	// MaxBytes stops the scan after this many bytes; zero scans everything.
	MaxBytes int64
}

// New returns a Scanner with the default chunk size.
func New() *Scanner { return &Scanner{ChunkSize: DefaultChunkSize} }

func (*Scanner) Namespace() string { return Namespace }

// Extract implements core.Extractor. No match yields an empty set.
func (s *Scanner) Extract(ctx context.Context, path string) (*core.Set, error) {
	v, ok, err := s.Scan(ctx, path)
	if err != nil {
		return nil, err
	}
	set := core.NewSet()
	if ok {
		set.Add(Key, core.String(v))
	}
	return set, nil
}

// Scan returns the first captured timestamp in the file at path.
func (s *Scanner) Scan(ctx context.Context, path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	return s.ScanReader(ctx, f)
}

// ScanReader is Scan over an arbitrary reader.
func (s *Scanner) ScanReader(ctx context.Context, r io.Reader) (string, bool, error) {
	chunk := s.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if s.MaxBytes > 0 {
		r = io.LimitReader(r, s.MaxBytes)
	}

	buf := make([]byte, 0, chunk+overlap)
	tmp := make([]byte, chunk)
	eof := false
	for !eof {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		n, err := io.ReadFull(r, tmp)
		buf = append(buf, tmp[:n]...)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			eof = true
		case err != nil:
			return "", false, err
		}

		if loc := Pattern.FindSubmatchIndex(buf); loc != nil {
			// A match near the end of the buffer may continue in the
			// next chunk; rescan it once more data is in.
			if eof || loc[1] < len(buf)-overlap {
				return decode(buf[loc[2]:loc[3]]), true, nil
			}
			buf = append(buf[:0], buf[loc[0]:]...)
			continue
		}

		keep := min(len(buf), overlap)
		buf = append(buf[:0], buf[len(buf)-keep:]...)
	}
	return "", false, nil
}

// decode converts the capture to UTF-8, replacing each invalid byte with
// U+FFFD. The text is otherwise kept as found.
func decode(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
