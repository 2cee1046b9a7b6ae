package exiftool

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ankit-chaubey/exif-extractor/core"
)

// CleanKey makes an ExifTool tag name key-safe: colons and whitespace
// become underscores, with runs of whitespace collapsed.
func CleanKey(k string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(k), "_"), ":", "_")
}

// fieldValue converts a decoded JSON value. Numbers are expected as
// json.Number.
func fieldValue(v any) core.Value {
	switch vt := v.(type) {
	case string:
		return core.String(vt)
	case json.Number:
		if i, err := vt.Int64(); err == nil {
			return core.Int(i)
		}
		if f, err := vt.Float64(); err == nil {
			return core.Float(f)
		}
		return core.String(vt.String())
	case float64:
		if vt == float64(int64(vt)) {
			return core.Int(int64(vt))
		}
		return core.Float(vt)
	case bool:
		return core.Bool(vt)
	case []any:
		items := make([]core.Value, len(vt))
		for i, x := range vt {
			items[i] = scalar(x)
		}
		return core.List(items...)
	case nil:
		return core.String("")
	}
	return scalar(v)
}

// scalar keeps list items flat: nested structures are rendered as JSON.
func scalar(v any) core.Value {
	switch v.(type) {
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return core.String(fmt.Sprint(v))
		}
		return core.String(string(b))
	}
	return fieldValue(v)
}

// addFields writes fields under prefix in sorted key order, skipping the
// SourceFile echo.
func addFields(set *core.Set, prefix string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "SourceFile" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		set.Add(core.Key(prefix, CleanKey(k)), fieldValue(fields[k]))
	}
}
