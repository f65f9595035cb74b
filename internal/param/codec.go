/*
Package param implements typed codecs for URL query parameters.

A codec projects a typed value into the string-based representation of a
query string and back. Absence is represented by a nil Raw on the encoded
side and by a nil pointer on the decoded side; malformed input always decodes
to absent rather than failing.
*/
package param

import (
	"math"
	"strconv"
	"strings"
)

// Raw is the encoded form of a single query parameter.
// A nil or empty Raw means the key is absent from the query.
type Raw []string

// IsAbsent reports whether the raw value represents an unset parameter.
func (r Raw) IsAbsent() bool {
	return len(r) == 0
}

// Codec converts values of type T to and from their query representation.
type Codec[T any] interface {
	// Encode converts a value into its raw query form. A nil value encodes to absent.
	Encode(v *T) Raw

	// Decode converts a raw query value back into T. Absent or malformed input decodes to nil.
	Decode(raw Raw) *T
}

// Func adapts a pair of plain functions into a Codec.
type Func[T any] struct {
	EncodeFunc func(v *T) Raw
	DecodeFunc func(raw Raw) *T
}

// Encode implements Codec.
func (f Func[T]) Encode(v *T) Raw { return f.EncodeFunc(v) }

// Decode implements Codec.
func (f Func[T]) Decode(raw Raw) *T { return f.DecodeFunc(raw) }

// String encodes plain strings. The empty string encodes to absent.
var String Codec[string] = Func[string]{
	EncodeFunc: func(v *string) Raw {
		if v == nil || *v == "" {
			return nil
		}
		return Raw{*v}
	},
	DecodeFunc: func(raw Raw) *string {
		if raw.IsAbsent() {
			return nil
		}
		s := raw[0]
		return &s
	},
}

// Number encodes float64 values. NaN is never produced by Decode.
var Number Codec[float64] = Func[float64]{
	EncodeFunc: func(v *float64) Raw {
		if v == nil || math.IsNaN(*v) {
			return nil
		}
		return Raw{strconv.FormatFloat(*v, 'f', -1, 64)}
	},
	DecodeFunc: func(raw Raw) *float64 {
		if raw.IsAbsent() {
			return nil
		}
		s := strings.TrimSpace(raw[0])
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) {
			return nil
		}
		return &n
	},
}

// Int encodes integers. Fractional or out-of-range input decodes to absent.
var Int Codec[int] = Func[int]{
	EncodeFunc: func(v *int) Raw {
		if v == nil {
			return nil
		}
		return Raw{strconv.Itoa(*v)}
	},
	DecodeFunc: func(raw Raw) *int {
		if raw.IsAbsent() {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw[0]))
		if err != nil {
			return nil
		}
		return &n
	},
}

// Bool encodes booleans as "1" and "0".
var Bool Codec[bool] = Func[bool]{
	EncodeFunc: func(v *bool) Raw {
		if v == nil {
			return nil
		}
		if *v {
			return Raw{"1"}
		}
		return Raw{"0"}
	},
	DecodeFunc: func(raw Raw) *bool {
		if raw.IsAbsent() {
			return nil
		}
		var b bool
		switch strings.ToLower(raw[0]) {
		case "1", "true":
			b = true
		case "0", "false":
			b = false
		default:
			return nil
		}
		return &b
	},
}

// StringArray encodes a sequence of strings as a repeated query key.
// A scalar raw value decodes to a one-element sequence.
var StringArray Codec[[]string] = Func[[]string]{
	EncodeFunc: func(v *[]string) Raw {
		if v == nil || len(*v) == 0 {
			return nil
		}
		out := make(Raw, len(*v))
		copy(out, *v)
		return out
	},
	DecodeFunc: func(raw Raw) *[]string {
		if raw.IsAbsent() {
			return nil
		}
		out := make([]string, len(raw))
		copy(out, raw)
		return &out
	},
}

// Ptr returns a pointer to v. It keeps call sites that set literal values short.
func Ptr[T any](v T) *T {
	return &v
}
