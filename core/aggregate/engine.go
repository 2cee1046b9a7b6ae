// Package aggregate runs every extractor against one file and merges the
// results into a single ordered set, deriving the profile timestamp on
// the way.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/rs/zerolog"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// ErrFileIO wraps failures to stat or open the input file. It is the only
// error Extract returns.
var ErrFileIO = errors.New("file I/O failure")

// Namespaces owned by the engine itself.
const (
	NamespaceFile    = "FILE"
	NamespaceProfile = "PROFILE"
)

// ProfileKey is the entry holding the derived profile timestamp.
var ProfileKey = core.Key(NamespaceProfile, "DATE_TIME")

// Result is the merged outcome for one file.
type Result struct {
	Path string
	Set  *core.Set

	// ProfileDateTime is the derived color-profile timestamp and
	// ProfileSource the key it was taken from.
	ProfileDateTime    string
	ProfileSource      string
	HasProfileDateTime bool

	Failures []core.Failure
}

// Engine invokes its extractors in a fixed order. Adapter failures are
// recorded as entries and never stop the run.
type Engine struct {
	extractors []core.Extractor
	fallback   core.Extractor
	log        zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtractors sets the adapters, run in the given order.
func WithExtractors(x ...core.Extractor) Option {
	return func(e *Engine) { e.extractors = append(e.extractors, x...) }
}

// WithFallback sets the extractor run when no adapter produced a profile
// timestamp.
func WithFallback(x core.Extractor) Option {
	return func(e *Engine) { e.fallback = x }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract reads path with every extractor and returns the merged result.
func (e *Engine) Extract(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileIO, path)
	}

	res := &Result{Path: path, Set: core.NewSet()}
	addFileEntries(res.Set, path, info)

	for _, x := range e.extractors {
		e.run(ctx, x, res)
	}
	if !res.HasProfileDateTime && e.fallback != nil {
		e.run(ctx, e.fallback, res)
	}
	if res.HasProfileDateTime {
		res.Set.Put(ProfileKey, core.String(res.ProfileDateTime))
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, x core.Extractor, res *Result) {
	ns := x.Namespace()
	start := time.Now()

	set, err := safeExtract(ctx, x, res.Path)
	added := res.Set.Merge(set)
	if !res.HasProfileDateTime {
		e.derive(res, added)
	}

	e.log.Debug().
		Str("namespace", ns).
		Str("file", res.Path).
		Int("entries", len(added)).
		Dur("duration", time.Since(start)).
		Msg("extractor finished")

	if err == nil {
		return
	}
	for _, f := range splitFailures(err, ns) {
		res.Failures = append(res.Failures, f)
		key := core.ErrorKey(f.Namespace)
		msg := f.Err.Error()
		if prev, ok := res.Set.Get(key); ok {
			res.Set.Put(key, core.String(prev.String()+"; "+msg))
		} else {
			res.Set.Add(key, core.String(msg))
		}
		e.log.Warn().
			Str("namespace", f.Namespace).
			Str("file", res.Path).
			Err(f.Err).
			Msg("extractor failed")
	}
}

// derive takes the first candidate among keys as the profile timestamp.
func (e *Engine) derive(res *Result, keys []string) {
	for _, k := range keys {
		v, _ := res.Set.Get(k)
		if s, ok := profileCandidate(k, v); ok {
			res.ProfileDateTime = s
			res.ProfileSource = k
			res.HasProfileDateTime = true
			return
		}
	}
}

// profileCandidate reports whether an entry names or carries a profile
// date/time, returning its rendered value.
func profileCandidate(key string, v core.Value) (string, bool) {
	if core.Category(key) == NamespaceFile || strings.HasSuffix(key, core.Delimiter+core.ErrorSuffix) {
		return "", false
	}
	rendered := core.RenderValue(v)
	if mentionsProfileTime(key) || mentionsProfileTime(rendered) {
		return rendered, true
	}
	return "", false
}

func mentionsProfileTime(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "profile") && (strings.Contains(s, "date") || strings.Contains(s, "time"))
}

// safeExtract converts a panicking extractor into an error.
func safeExtract(ctx context.Context, x core.Extractor, path string) (set *core.Set, err error) {
	defer func() {
		if r := recover(); r != nil {
			set, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return x.Extract(ctx, path)
}

// splitFailures expands an errors.Join of Failures into its parts so
// each lands under its own namespace.
func splitFailures(err error, fallback string) []core.Failure {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		parts := j.Unwrap()
		allFailures := len(parts) > 0
		for _, p := range parts {
			if _, ok := p.(*core.Failure); !ok {
				allFailures = false
				break
			}
		}
		if allFailures {
			out := make([]core.Failure, 0, len(parts))
			for _, p := range parts {
				out = append(out, splitFailures(p, fallback)...)
			}
			return out
		}
	}
	ns := core.FailureNamespace(err, fallback)
	var f *core.Failure
	if errors.As(err, &f) && f.Namespace == ns {
		return []core.Failure{{Namespace: ns, Err: f.Err}}
	}
	return []core.Failure{{Namespace: ns, Err: err}}
}

// addFileEntries writes the FILE namespace. Created is the birth time
// where the platform records one and the change time otherwise.
func addFileEntries(set *core.Set, path string, info os.FileInfo) {
	modified := info.ModTime()
	created := modified
	if ts, err := times.Stat(path); err == nil {
		switch {
		case ts.HasBirthTime():
			created = ts.BirthTime()
		case ts.HasChangeTime():
			created = ts.ChangeTime()
		}
	}

	set.Add(core.Key(NamespaceFile, "SIZE"), core.Int(info.Size()))
	set.Add(core.Key(NamespaceFile, "CREATED"), core.String(created.Local().Format(core.TimestampLayout)))
	set.Add(core.Key(NamespaceFile, "MODIFIED"), core.String(modified.Local().Format(core.TimestampLayout)))
	set.Add(core.Key(NamespaceFile, "NAME"), core.String(filepath.Base(path)))
}
