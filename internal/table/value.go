package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is a single cell: Missing, a Number, or raw Text.
// The zero Value is Missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the missing-value marker.
func Missing() Value { return Value{} }

// Number wraps f. NaN and infinities are stored as Missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text wraps a raw string. Blank strings are stored as Missing.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }

// Float returns the numeric payload; ok is false unless v is a Number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders v for display. Missing renders as "NaN".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatFloat(v.num)
	case KindText:
		return v.text
	default:
		return "NaN"
	}
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text
}

// ToNumber coerces v to a Number. Anything that does not parse becomes Missing.
func ToNumber(v Value) Value {
	switch v.kind {
	case KindNumber, KindMissing:
		return v
	}
	f, ok := parseNumber(v.text)
	if !ok {
		return Missing()
	}
	return Number(f)
}

func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatFloat prints integral values with a single trailing zero (600.0) and
// everything else with the shortest representation that round-trips.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
