package exiftool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// Namespaces written by Command.
const (
	NamespaceCmd = "EXIFTOOL_CMD"
	NamespaceRaw = "EXIFTOOL_RAW"
)

// Default subprocess timeouts.
const (
	DefaultJSONTimeout  = 30 * time.Second
	DefaultPlainTimeout = 15 * time.Second
)

// waitDelay bounds how long output pipes are drained after the process
// is killed.
const waitDelay = 2 * time.Second

var errNotJSON = errors.New("exiftool output is not a JSON array of objects")

// Command runs ExifTool once per file. JSON output is preferred; when it
// cannot be parsed the line-oriented form is read instead.
type Command struct {
	Path         string
	JSONTimeout  time.Duration
	PlainTimeout time.Duration
}

// NewCommand returns a Command for the executable at path with the
// default timeouts.
func NewCommand(path string) *Command {
	return &Command{Path: path, JSONTimeout: DefaultJSONTimeout, PlainTimeout: DefaultPlainTimeout}
}

func (*Command) Namespace() string { return NamespaceCmd }

func (c *Command) Extract(ctx context.Context, path string) (*core.Set, error) {
	if strings.HasPrefix(path, "-") {
		path = "./" + path
	}

	out, err := c.run(ctx, c.JSONTimeout, "-j", "-a", "-u", "-G1", path)
	if err != nil {
		return nil, err
	}
	set, err := parseJSON(out)
	if err == nil {
		return set, nil
	}

	out, err = c.run(ctx, c.PlainTimeout, "-a", "-u", "-G1", path)
	if err != nil {
		return nil, &core.Failure{Namespace: NamespaceRaw, Err: err}
	}
	return parsePlain(out), nil
}

func (c *Command) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("exiftool timed out after %s", timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return nil, fmt.Errorf("exiftool exited with status %d", exitErr.ExitCode())
			}
			return nil, fmt.Errorf("exiftool exited with status %d: %s", exitErr.ExitCode(), msg)
		}
		return nil, fmt.Errorf("running exiftool: %w", err)
	}
	return out, nil
}

// parseJSON reads the first object of exiftool's -j output, keeping the
// order in which tags were printed.
func parseJSON(data []byte) (*core.Set, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	set := core.NewSet()
	if !dec.More() {
		return set, nil
	}
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		k, ok := tok.(string)
		if !ok {
			return nil, errNotJSON
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if k == "SourceFile" {
			continue
		}
		set.Add(core.Key(NamespaceCmd, CleanKey(k)), fieldValue(v))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return set, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errNotJSON
	}
	return nil
}

// parsePlain reads "key : value" lines. Lines without a colon are skipped.
func parsePlain(data []byte) *core.Set {
	set := core.NewSet()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		k = CleanKey(k)
		if k == "" {
			continue
		}
		set.Add(core.Key(NamespaceRaw, k), core.String(strings.TrimSpace(v)))
	}
	return set
}
