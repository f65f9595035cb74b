package param

// defaulted wraps a codec and substitutes a fallback on absent decodes.
type defaulted[T any] struct {
	inner Codec[T]
	def   T
}

// WithDefault returns a codec whose Decode yields def whenever the inner codec
// decodes to absent. Encode is passed through unchanged, so writing the
// default value back still goes through the inner codec's rules.
//
// The returned codec never decodes to nil.
func WithDefault[T any](codec Codec[T], def T) Codec[T] {
	return defaulted[T]{inner: codec, def: def}
}

func (d defaulted[T]) Encode(v *T) Raw {
	return d.inner.Encode(v)
}

func (d defaulted[T]) Decode(raw Raw) *T {
	if v := d.inner.Decode(raw); v != nil {
		return v
	}
	v := d.def
	return &v
}
