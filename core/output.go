package core

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ExifToolURL is where operators are sent when no exiftool binary is found.
const ExifToolURL = "https://exiftool.org/"

// FileOutcome describes what happened to a single input file.
type FileOutcome struct {
	Name            string
	OutputPath      string
	Entries         int
	Found           bool
	ProfileKey      string
	ProfileDateTime string
	Err             error
}

// RunSummary holds the counters of a batch run.
type RunSummary struct {
	Total     int // directory entries seen
	Processed int
	Skipped   int
	Failed    int
	WithDate  int // files where the profile timestamp was found
	ToolFound bool
}

// Printer handles all operator-facing output of a batch run. It is safe
// for concurrent use.
type Printer struct {
	mu     sync.Mutex
	Writer io.Writer

	ok   *color.Color
	bad  *color.Color
	warn *color.Color
	head *color.Color
}

// NewPrinter creates a Printer writing to w. A nil w means stdout.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	if w == nil {
		w = os.Stdout
	}
	p := &Printer{
		Writer: w,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		warn:   color.New(color.FgYellow),
		head:   color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.bad, p.warn, p.head} {
			c.DisableColor()
		}
	}
	return p
}

// ToolStatus reports whether an exiftool binary was located.
func (p *Printer) ToolStatus(path, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if path == "" {
		p.bad.Fprintln(p.Writer, "✗ ExifTool not found - some metadata may be missing")
		return
	}
	p.ok.Fprintf(p.Writer, "✓ ExifTool found: %s (version %s)\n", path, version)
}

// Header announces the start of a run over dir.
func (p *Printer) Header(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head.Fprintf(p.Writer, "\nProcessing images in: %s\n\n", dir)
}

// FileStarted announces a file about to be processed.
func (p *Printer) FileStarted(name string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Writer, "Processing: %s (%s)\n", name, humanize.IBytes(uint64(max(size, 0))))
}

// FileDone reports the outcome of a processed file.
func (p *Printer) FileDone(o FileOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.Err != nil {
		p.bad.Fprintf(p.Writer, "  ✗ Error processing %s: %v\n", o.Name, o.Err)
		return
	}
	if o.Found {
		p.ok.Fprintf(p.Writer, "  ✓ Found profile date/time: %s = %s\n", o.ProfileKey, o.ProfileDateTime)
	} else {
		p.warn.Fprintf(p.Writer, "  ⚠ No profile_date_time found in %s\n", o.Name)
	}
	fmt.Fprintf(p.Writer, "  ✓ Saved %d entries to %s\n", o.Entries, o.OutputPath)
}

// Summary prints the run counters as a table followed by operator notes.
func (p *Printer) Summary(s RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := table.NewWriter()
	t.SetOutputMirror(p.Writer)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Processing Summary")
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"Directory entries", s.Total},
		{"Processed", s.Processed},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
		{"With profile date/time", s.WithDate},
	})
	fmt.Fprintln(p.Writer)
	t.Render()

	if s.Processed > 0 && s.WithDate == 0 {
		p.warn.Fprintln(p.Writer, "\nNo profile_date_time was found in any processed image.")
		if !s.ToolFound {
			fmt.Fprintln(p.Writer, "Installing ExifTool usually recovers it:")
			fmt.Fprintln(p.Writer, "  "+ExifToolURL)
		}
	}
}

// InstallGuidance prints how to obtain exiftool on goos.
func (p *Printer) InstallGuidance(goos string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head.Fprintln(p.Writer, "ExifTool installation")
	switch goos {
	case "windows":
		fmt.Fprintln(p.Writer, "  1. Download the Windows executable from "+ExifToolURL)
		fmt.Fprintln(p.Writer, `  2. Rename "exiftool(-k).exe" to "exiftool.exe"`)
		fmt.Fprintln(p.Writer, `  3. Place it in %LOCALAPPDATA%\ExifTool or on your PATH`)
	case "darwin":
		fmt.Fprintln(p.Writer, "  brew install exiftool")
	default:
		fmt.Fprintln(p.Writer, "  Debian/Ubuntu: sudo apt install libimage-exiftool-perl")
		fmt.Fprintln(p.Writer, "  Fedora:        sudo dnf install perl-Image-ExifTool")
		fmt.Fprintln(p.Writer, "  Other:         "+ExifToolURL)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// Plural formats n with a singular or plural noun.
func Plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
