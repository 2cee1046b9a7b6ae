package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestRender_BannerAndSections(t *testing.T) {
	t.Parallel()

	s := NewSet()
	s.Add("GPS_GPSLatitudeRef", String("N"))
	s.Add("0th_Model", String("Roadrunner"))
	s.Add("0th_Make", String("Acme"))
	s.Add("standalone", Int(3))

	out := Render(s, fixedTime)
	lines := strings.Split(out, "\n")

	banner := strings.Repeat("=", 80)
	rule := strings.Repeat("-", 80)
	want := []string{
		banner,
		"EXIF Data Extraction - 2024-03-09 14:05:07",
		banner,
		"",
		"[0th]",
		rule,
		"0th_Make: Acme",
		"0th_Model: Roadrunner",
		"",
		"[GPS]",
		rule,
		"GPS_GPSLatitudeRef: N",
		"",
		"[Other]",
		rule,
		"standalone: 3",
		"",
	}
	assert.Equal(t, want, lines)
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	build := func(order []string) *Set {
		s := NewSet()
		for _, k := range order {
			s.Add(k, String(k))
		}
		return s
	}
	a := build([]string{"b_x", "a_y", "a_b", "c"})
	b := build([]string{"c", "a_b", "b_x", "a_y"})

	first := Render(a, fixedTime)
	assert.Equal(t, first, Render(a, fixedTime))
	assert.Equal(t, first, Render(b, fixedTime))
}

func TestRender_EmptySet(t *testing.T) {
	t.Parallel()

	out := Render(NewSet(), fixedTime)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 80)+"\n"))
	assert.NotContains(t, out, "[")
}

func TestRender_Multiline(t *testing.T) {
	t.Parallel()

	s := NewSet()
	s.Add("INFO_comment", String("first\r\nsecond\nthird"))
	out := Render(s, fixedTime)

	assert.Contains(t, out, "INFO_comment:\n    first\n    second\n    third\n")
}

func TestRenderValue(t *testing.T) {
	t.Parallel()

	ints := func(n int) Value {
		items := make([]Value, n)
		for i := range items {
			items[i] = Int(int64(i + 1))
		}
		return List(items...)
	}

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string", String("Acme"), "Acme"},
		{"int", Int(-42), "-42"},
		{"float", Float(2.8), "2.8"},
		{"bool", Bool(true), "true"},
		{"rational", Rational(28, 10), "28/10"},
		{"short list", ints(5), "[1, 2, 3, 4, 5]"},
		{"long list", ints(8), "[1, 2, 3, 4, 5, ... (total items: 8)]"},
		{"textual binary", Binary([]byte("0230\x00\x00")), "0230"},
		{"invalid utf8 binary", Binary([]byte{'a', 0xff, 'b'}), "a�b"},
		{"opaque binary", Binary([]byte{1, 0, 2, 0, 3}), "<binary data: 5 bytes>"},
		{"large binary", Binary(make([]byte, MaxTextualBinary+1)), "<binary data: 1025 bytes>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RenderValue(tt.v))
		})
	}
}

func TestRender_LongSequenceShowsTotal(t *testing.T) {
	t.Parallel()

	items := make([]Value, 8)
	for i := range items {
		items[i] = String(string(rune('a' + i)))
	}
	s := NewSet()
	s.Add("Exif_Sequence", List(items...))

	out := Render(s, fixedTime)
	require.Contains(t, out, "Exif_Sequence: [a, b, c, d, e, ... (total items: 8)]")
	assert.NotContains(t, out, "f,")
}
