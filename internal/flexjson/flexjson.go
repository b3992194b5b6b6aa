// Package flexjson provides JSON field types that accept whatever shape an
// upstream API happens to send. A field with an unexpected type decodes as
// "absent" instead of failing the whole object, so response structs built
// from these types can be unmarshalled from arbitrary input without error.
package flexjson

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a JSON number that also accepts numeric strings.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.Value, n.Valid = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, ok := ParseNumber(s); ok {
			n.Value, n.Valid = v, true
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value, or def when the field was absent or unparseable.
func (n Number) Or(def float64) float64 {
	if n.Valid {
		return n.Value
	}
	return def
}

// NumberOf returns a valid Number holding v.
func NumberOf(v float64) Number {
	return Number{Value: v, Valid: true}
}

// ParseNumber parses a trimmed, finite decimal number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// String is a JSON string that also accepts numbers, which are rendered in
// their shortest decimal form.
type String struct {
	Value string
	Valid bool
}

func (s *String) UnmarshalJSON(b []byte) error {
	*s = String{}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		s.Value, s.Valid = str, true
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		s.Value, s.Valid = strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return nil
}

func (s String) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Or returns the value when it is non-empty, otherwise def.
func (s String) Or(def string) string {
	if s.Valid && s.Value != "" {
		return s.Value
	}
	return def
}

// Bool is true only for a literal JSON true.
type Bool bool

func (v *Bool) UnmarshalJSON(b []byte) error {
	*v = Bool(bytes.Equal(bytes.TrimSpace(b), []byte("true")))
	return nil
}

// Value wraps any composite type. Input that does not decode into T, including
// null, leaves the value unset.
type Value[T any] struct {
	Val   T
	Valid bool
}

func (v *Value[T]) UnmarshalJSON(b []byte) error {
	*v = Value[T]{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	v.Val, v.Valid = out, true
	return nil
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Val)
}

// Get returns the wrapped value and whether it was present.
func (v Value[T]) Get() (T, bool) {
	return v.Val, v.Valid
}

// FirstNumber returns the first valid number.
func FirstNumber(ns ...Number) Number {
	for _, n := range ns {
		if n.Valid {
			return n
		}
	}
	return Number{}
}

// FirstString returns the first non-empty string.
func FirstString(ss ...String) String {
	for _, s := range ss {
		if s.Valid && s.Value != "" {
			return s
		}
	}
	return String{}
}

// First returns the first present value.
func First[T any](vs ...Value[T]) Value[T] {
	for _, v := range vs {
		if v.Valid {
			return v
		}
	}
	return Value[T]{}
}

// DecodeObject decodes body into out when body holds a JSON object. It reports
// false for empty input, null, arrays, scalars and malformed JSON.
func DecodeObject(body []byte, out any) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Unmarshal(trimmed, out) == nil
}

// Unquote returns the contents of body when it is a JSON string, so payloads
// that arrive double-encoded can be decoded as objects. Other input is
// returned unchanged.
func Unquote(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return body
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return body
	}
	return []byte(inner)
}
