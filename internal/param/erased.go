package param

import (
	"errors"
	"fmt"
)

// ErrWrongType is returned by EncodeAny for a value the codec cannot encode.
var ErrWrongType = errors.New("value has the wrong type for this parameter")

// AnyCodec is a type-erased codec. It lets a single binding carry parameters
// of different types, at the cost of a type assertion on the way in.
type AnyCodec interface {
	EncodeAny(v any) (Raw, error)
	DecodeAny(raw Raw) any
}

type erased[T any] struct {
	codec Codec[T]
}

// Erase wraps a typed codec as an AnyCodec.
//
// EncodeAny accepts a T, a *T or nil; values of any other type fail with
// ErrWrongType. DecodeAny returns a T, or nil when the parameter is absent.
func Erase[T any](codec Codec[T]) AnyCodec {
	return erased[T]{codec: codec}
}

func (e erased[T]) EncodeAny(v any) (Raw, error) {
	switch t := v.(type) {
	case nil:
		return e.codec.Encode(nil), nil
	case T:
		return e.codec.Encode(&t), nil
	case *T:
		return e.codec.Encode(t), nil
	default:
		var zero T
		return nil, fmt.Errorf("%w: got %T, want %T", ErrWrongType, v, zero)
	}
}

func (e erased[T]) DecodeAny(raw Raw) any {
	v := e.codec.Decode(raw)
	if v == nil {
		return nil
	}
	return *v
}
