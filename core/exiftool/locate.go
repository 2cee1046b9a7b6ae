// Package exiftool runs the external ExifTool utility, either as a
// one-shot subprocess per file or through a stay-open binding, and maps
// its output into namespaced entries.
package exiftool

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrNotFound is returned by Locate when no candidate answers -ver.
var ErrNotFound = errors.New("exiftool not found")

// DefaultVersionTimeout bounds each -ver probe.
const DefaultVersionTimeout = 5 * time.Second

// Tool is a resolved ExifTool executable.
type Tool struct {
	Path    string
	Version string
}

// Found reports whether t refers to a usable executable.
func (t Tool) Found() bool { return t.Path != "" }

// DefaultCandidates lists the locations probed for the current platform,
// with configured (if non-empty) first.
func DefaultCandidates(configured string) []string {
	var out []string
	if configured != "" {
		out = append(out, configured)
	}
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			out = append(out, filepath.Join(dir, "ExifTool", "exiftool.exe"))
		}
		out = append(out, "exiftool")
		pf := os.Getenv("PROGRAMFILES")
		if pf == "" {
			pf = `C:\Program Files`
		}
		out = append(out, filepath.Join(pf, "ExifTool", "exiftool.exe"))
		if dir := os.Getenv("USERPROFILE"); dir != "" {
			out = append(out, filepath.Join(dir, "ExifTool", "exiftool.exe"))
		}
		return out
	}
	return append(out,
		"exiftool",
		"/usr/local/bin/exiftool",
		"/usr/bin/exiftool",
		"/opt/homebrew/bin/exiftool",
	)
}

// Locate probes candidates in order and returns the first one that runs
// "-ver" successfully within timeout.
func Locate(ctx context.Context, candidates []string, timeout time.Duration) (Tool, error) {
	if timeout <= 0 {
		timeout = DefaultVersionTimeout
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Tool{}, err
		}
		if v, ok := probe(ctx, c, timeout); ok {
			return Tool{Path: c, Version: v}, nil
		}
	}
	return Tool{}, ErrNotFound
}

func probe(ctx context.Context, path string, timeout time.Duration) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "-ver")
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(out))
	return v, v != ""
}
