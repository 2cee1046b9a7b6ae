package core

import (
	"bytes"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindRational
	KindList
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindRational:
		return "rational"
	case KindList:
		return "list"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// MaxTextualBinary is the largest byte value rendered inline as text.
const MaxTextualBinary = 1024

// Value is a tagged metadata value.
type Value struct {
	kind  Kind
	str   string
	num   int64
	den   int64
	flt   float64
	items []Value
	raw   []byte
}

func String(s string) Value { return Value{kind: KindString, str: s} }

func Int(n int64) Value { return Value{kind: KindInt, num: n} }

func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Rational holds an unreduced fraction as found in TIFF RATIONAL tags.
func Rational(num, den int64) Value { return Value{kind: KindRational, num: num, den: den} }

func List(items ...Value) Value { return Value{kind: KindList, items: items} }

// Binary holds opaque bytes. The slice is copied.
func Binary(b []byte) Value {
	return Value{kind: KindBinary, raw: append([]byte(nil), b...)}
}

func (v Value) Kind() Kind { return v.kind }

// Items returns the elements of a list value.
func (v Value) Items() []Value { return v.items }

// Bytes returns the payload of a binary value.
func (v Value) Bytes() []byte { return v.raw }

// Float64 returns numeric values as a float and 0 for everything else.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindFloat:
		return v.flt
	case KindInt:
		return float64(v.num)
	case KindRational:
		if v.den != 0 {
			return float64(v.num) / float64(v.den)
		}
	}
	return 0
}

// Textual reports whether a binary value can be shown as text: it is
// short and contains no NUL besides trailing padding.
func (v Value) Textual() bool {
	if v.kind != KindBinary || len(v.raw) > MaxTextualBinary {
		return false
	}
	return bytes.IndexByte(bytes.TrimRight(v.raw, "\x00"), 0) < 0
}

// String returns the natural string form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindRational:
		return strconv.FormatInt(v.num, 10) + "/" + strconv.FormatInt(v.den, 10)
	case KindList:
		return joinItems(v.items, len(v.items))
	case KindBinary:
		return decodeLossy(v.raw)
	}
	return ""
}

func joinItems(items []Value, n int) string {
	parts := make([]string, 0, n)
	for _, it := range items[:n] {
		parts = append(parts, it.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// decodeLossy converts b to UTF-8, dropping trailing NUL padding and
// replacing invalid sequences.
func decodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(bytes.TrimRight(b, "\x00")), "�")
}
