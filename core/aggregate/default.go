package aggregate

import (
	"github.com/rs/zerolog"

	"github.com/ankit-chaubey/exif-extractor/core"
	"github.com/ankit-chaubey/exif-extractor/core/atoms"
	"github.com/ankit-chaubey/exif-extractor/core/config"
	"github.com/ankit-chaubey/exif-extractor/core/exiftag"
	"github.com/ankit-chaubey/exif-extractor/core/exiftool"
	"github.com/ankit-chaubey/exif-extractor/core/image"
	"github.com/ankit-chaubey/exif-extractor/core/rawscan"
)

// Pipeline lists the adapters in invocation order. binding may be nil;
// the subprocess adapter is added only when tool was resolved and
// exiftool use is not disabled.
func Pipeline(cfg *config.Config, tool exiftool.Tool, binding *exiftool.Binding) []core.Extractor {
	x := []core.Extractor{
		image.NewProperties(),
		image.NewProfile(),
		image.NewInfo(),
		exiftag.NewDirectories(),
		exiftag.NewWalker(),
		atoms.New(),
	}
	if cfg.ExifTool.Disabled {
		return x
	}
	if binding != nil {
		x = append(x, binding)
	}
	if tool.Found() {
		cmd := exiftool.NewCommand(tool.Path)
		cmd.JSONTimeout = cfg.ExifTool.JSONTimeout
		cmd.PlainTimeout = cfg.ExifTool.PlainTimeout
		x = append(x, cmd)
	}
	return x
}

// NewDefault builds the standard engine: the full Pipeline with the raw
// byte scanner as fallback.
func NewDefault(cfg *config.Config, tool exiftool.Tool, binding *exiftool.Binding, log zerolog.Logger) *Engine {
	return New(
		WithExtractors(Pipeline(cfg, tool, binding)...),
		WithFallback(&rawscan.Scanner{
			ChunkSize: cfg.Scan.ChunkBytes(),
			MaxBytes:  cfg.Scan.MaxBytesLimit(),
		}),
		WithLogger(log),
	)
}
