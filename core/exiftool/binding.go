package exiftool

import (
	"context"
	"fmt"
	"sync"

	goexiftool "github.com/barasher/go-exiftool"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// Namespace is used by the stay-open binding.
const Namespace = "EXIFTOOL"

// Binding keeps one ExifTool process open for the whole run. Calls are
// serialized; the process handles one request at a time.
type Binding struct {
	mu sync.Mutex
	et *goexiftool.Exiftool
}

// NewBinding starts ExifTool in stay-open mode. An empty path lets the
// library find the executable on PATH.
func NewBinding(path string) (*Binding, error) {
	opts := []func(*goexiftool.Exiftool) error{goexiftool.PrintGroupNames("1")}
	if path != "" {
		opts = append(opts, goexiftool.SetExiftoolBinaryPath(path))
	}
	et, err := goexiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	return &Binding{et: et}, nil
}

func (*Binding) Namespace() string { return Namespace }

func (b *Binding) Extract(ctx context.Context, path string) (*core.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.et.ExtractMetadata(path)
	if len(res) == 0 {
		return nil, fmt.Errorf("exiftool returned no result for %s", path)
	}
	if res[0].Err != nil {
		return nil, res[0].Err
	}
	set := core.NewSet()
	addFields(set, Namespace, res[0].Fields)
	return set, nil
}

// Close stops the ExifTool process.
func (b *Binding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.et.Close()
}
