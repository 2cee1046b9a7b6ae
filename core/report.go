package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// ReportWidth is the width of the banner and section rules.
	ReportWidth = 80
	// MaxListItems is how many list elements are shown before truncation.
	MaxListItems = 5
	// TimestampLayout is used for the report banner and FILE timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Render formats s as a categorized text report. The output depends only
// on s and generatedAt.
func Render(s *Set, generatedAt time.Time) string {
	banner := strings.Repeat("=", ReportWidth)
	lines := []string{
		banner,
		"EXIF Data Extraction - " + generatedAt.Format(TimestampLayout),
		banner,
		"",
	}

	groups := make(map[string][]string)
	for k := range s.All() {
		cat := Category(k)
		groups[cat] = append(groups[cat], k)
	}
	cats := make([]string, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	rule := strings.Repeat("-", ReportWidth)
	for _, cat := range cats {
		lines = append(lines, "["+cat+"]", rule)
		keys := groups[cat]
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := s.Get(k)
			lines = append(lines, renderEntry(k, v)...)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderEntry(key string, v Value) []string {
	text := RenderValue(v)
	if !strings.ContainsAny(text, "\r\n") {
		return []string{key + ": " + text}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	out := []string{key + ":"}
	for _, l := range strings.Split(text, "\n") {
		out = append(out, "    "+l)
	}
	return out
}

// RenderValue returns the report form of a single value.
func RenderValue(v Value) string {
	switch v.Kind() {
	case KindBinary:
		if v.Textual() {
			return decodeLossy(v.Bytes())
		}
		return fmt.Sprintf("<binary data: %d bytes>", len(v.Bytes()))
	case KindList:
		items := v.Items()
		if len(items) > MaxListItems {
			head := joinItems(items, MaxListItems)
			return fmt.Sprintf("%s, ... (total items: %d)]", head[:len(head)-1], len(items))
		}
	}
	return v.String()
}
