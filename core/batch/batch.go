// Package batch drives extraction over every image in a directory and
// writes one text report next to each.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/aggregate"
)

// ErrNotDirectory is returned when the input path is missing or is not a
// directory. It is the only error that aborts a run.
var ErrNotDirectory = errors.New("not a directory")

// DefaultOutputExt is the report file extension.
const DefaultOutputExt = ".txt"

// FileExtractor produces the merged result for one file.
type FileExtractor interface {
	Extract(ctx context.Context, path string) (*aggregate.Result, error)
}

// Options configures a Runner.
type Options struct {
	Extensions []string // defaults to core.ImageExtensions
	OutputExt  string   // defaults to DefaultOutputExt
	Workers    int      // files processed at once; values below 1 mean 1
	ToolFound  bool     // reported in the summary notes
	Printer    *core.Printer
	Logger     *zerolog.Logger // nil discards
	Now        func() time.Time
}

// Runner processes the files of one directory.
type Runner struct {
	x    FileExtractor
	opts Options
	log  zerolog.Logger
}

// New returns a Runner using x for each file.
func New(x FileExtractor, opts Options) *Runner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = core.ImageExtensions
	}
	if opts.OutputExt == "" {
		opts.OutputExt = DefaultOutputExt
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Printer == nil {
		opts.Printer = core.NewPrinter(io.Discard, true)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Runner{x: x, opts: opts, log: log}
}

// Run processes every matching file directly inside dir. Per-file
// failures are counted, never returned.
func (r *Runner) Run(ctx context.Context, dir string) (core.RunSummary, error) {
	summary := core.RunSummary{ToolFound: r.opts.ToolFound}

	info, err := os.Stat(dir)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrNotDirectory, err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("reading %s: %w", dir, err)
	}

	summary.Total = len(entries)
	r.opts.Printer.Header(dir)

	var files []string
	for _, e := range entries {
		if e.IsDir() || !core.HasExtension(e.Name(), r.opts.Extensions) {
			summary.Skipped++
			continue
		}
		files = append(files, e.Name())
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := r.processFile(gctx, dir, name)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case o.Err != nil:
				summary.Failed++
			default:
				summary.Processed++
				if o.Found {
					summary.WithDate++
				}
			}
			return nil
		})
	}
	err = g.Wait()

	r.opts.Printer.Summary(summary)
	r.log.Info().
		Str("dir", dir).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("batch finished")
	return summary, err
}

func (r *Runner) processFile(ctx context.Context, dir, name string) core.FileOutcome {
	path := filepath.Join(dir, name)
	o := core.FileOutcome{Name: name}

	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	r.opts.Printer.FileStarted(name, size)

	res, err := r.x.Extract(ctx, path)
	if err != nil {
		o.Err = err
		r.done(o)
		return o
	}

	o.Entries = res.Set.Len()
	o.Found = res.HasProfileDateTime
	o.ProfileKey = res.ProfileSource
	o.ProfileDateTime = res.ProfileDateTime
	o.OutputPath = filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+r.opts.OutputExt)

	report := core.Render(res.Set, r.opts.Now())
	if err := os.WriteFile(o.OutputPath, []byte(report), 0o644); err != nil {
		o.Err = fmt.Errorf("writing report: %w", err)
	}
	r.done(o)
	return o
}

func (r *Runner) done(o core.FileOutcome) {
	r.opts.Printer.FileDone(o)
	ev := r.log.Debug()
	if o.Err != nil {
		ev = r.log.Warn().Err(o.Err)
	}
	ev.Str("file", o.Name).
		Int("entries", o.Entries).
		Bool("profile_date_time", o.Found).
		Msg("file processed")
}
