package overrides

import (
	"fmt"
	"math"
)

// Value is one override value in the feed's raw vocabulary: a string, an
// int, a bool, a list or null.
type Value struct {
	raw any
}

// NewValue wraps a raw value, normalizing YAML numbers and lists.
func NewValue(raw any) Value {
	return newValue(raw)
}

func newValue(raw any) Value {
	return Value{raw: normalize(raw)}
}

func normalize(raw any) any {
	switch t := raw.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		if t == math.Trunc(t) {
			return int(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		return t
	}
}

// Raw returns the normalized value.
func (v Value) Raw() any { return v.raw }

// IsNull reports whether the override clears the field.
func (v Value) IsNull() bool { return v.raw == nil }

// Str returns a string value.
func (v Value) Str() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Strings returns a list of strings. Null reads as an empty list.
func (v Value) Strings() ([]string, bool) {
	switch t := v.raw.(type) {
	case nil:
		return []string{}, true
	case string:
		return []string{t}, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Int returns an integer value.
func (v Value) Int() (int, bool) {
	i, ok := v.raw.(int)
	return i, ok
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.raw == nil {
		return "null"
	}
	return fmt.Sprint(v.raw)
}
