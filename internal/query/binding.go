package query

import (
	"net/url"

	"github.com/khanglvm/devtools-hub/internal/param"
)

// Param binds a single named query parameter to a typed value.
type Param[T any] struct {
	router *Router
	name   string
	codec  param.Codec[T]
}

// Bind binds name on router using codec.
func Bind[T any](router *Router, name string, codec param.Codec[T]) *Param[T] {
	return &Param[T]{router: router, name: name, codec: codec}
}

// BindDefault binds name with a default substituted whenever the parameter is
// absent or malformed. Value never returns nil for such a binding.
func BindDefault[T any](router *Router, name string, codec param.Codec[T], def T) *Param[T] {
	return Bind(router, name, param.WithDefault(codec, def))
}

// Name returns the bound query key.
func (p *Param[T]) Name() string {
	return p.name
}

// Value decodes the parameter's current value.
func (p *Param[T]) Value() *T {
	return p.codec.Decode(p.router.Get(p.name))
}

// Set writes v. A nil v removes the key from the query.
func (p *Param[T]) Set(v *T, mode UpdateMode) {
	raw := p.codec.Encode(v)
	p.router.Navigate(func(prev url.Values) url.Values {
		return Apply(prev, map[string]param.Raw{p.name: raw}, mode)
	}, mode.Pushes())
	countNavigation(mode)
}

// Update writes the result of fn applied to the previous value.
//
// The previous value is decoded from the router's freshest state at commit
// time, not from a value the caller read earlier, so rapid updates from
// several bindings compose instead of overwriting each other.
func (p *Param[T]) Update(fn func(prev *T) *T, mode UpdateMode) {
	p.router.Navigate(func(prev url.Values) url.Values {
		cur := p.codec.Decode(rawOf(prev, p.name))
		raw := p.codec.Encode(fn(cur))
		return Apply(prev, map[string]param.Raw{p.name: raw}, mode)
	}, mode.Pushes())
	countNavigation(mode)
}

// Subscribe calls fn with the decoded value whenever this parameter's raw
// value changes. Changes to other keys do not trigger fn.
func (p *Param[T]) Subscribe(fn func(*T)) (cancel func()) {
	return p.router.SubscribeKey(p.name, func(raw param.Raw) {
		fn(p.codec.Decode(raw))
	})
}

// Record is a decoded set of parameters keyed by query name.
// A nil value means the parameter is absent.
type Record map[string]any

// Set binds several named parameters at once.
type Set struct {
	router *Router
	codecs map[string]param.AnyCodec
}

// BindSet binds every key of codecs on router.
func BindSet(router *Router, codecs map[string]param.AnyCodec) *Set {
	cp := make(map[string]param.AnyCodec, len(codecs))
	for k, c := range codecs {
		cp[k] = c
	}
	return &Set{router: router, codecs: cp}
}

// Values decodes every bound parameter from the current query.
func (s *Set) Values() Record {
	return s.decode(s.router.Query())
}

// Set writes the keys present in partial. Keys mapped to nil are removed;
// bound keys missing from partial are left alone in merging modes. Unknown
// keys and values of the wrong type are skipped.
func (s *Set) Set(partial Record, mode UpdateMode) {
	changes := s.encode(partial)
	s.router.Navigate(func(prev url.Values) url.Values {
		return Apply(prev, changes, mode)
	}, mode.Pushes())
	countNavigation(mode)
}

// Update writes the partial record returned by fn, which receives the
// decoded record as of commit time.
func (s *Set) Update(fn func(prev Record) Record, mode UpdateMode) {
	s.router.Navigate(func(prev url.Values) url.Values {
		return Apply(prev, s.encode(fn(s.decode(prev))), mode)
	}, mode.Pushes())
	countNavigation(mode)
}

// Subscribe calls fn with the full decoded record whenever any bound key
// changes. Keys outside the set do not trigger fn.
func (s *Set) Subscribe(fn func(Record)) (cancel func()) {
	cancels := make([]func(), 0, len(s.codecs))
	for name := range s.codecs {
		cancels = append(cancels, s.router.SubscribeKey(name, func(param.Raw) {
			fn(s.Values())
		}))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (s *Set) decode(q url.Values) Record {
	out := make(Record, len(s.codecs))
	for name, c := range s.codecs {
		out[name] = c.DecodeAny(rawOf(q, name))
	}
	return out
}

func (s *Set) encode(partial Record) map[string]param.Raw {
	changes := make(map[string]param.Raw, len(partial))
	for name, v := range partial {
		c, ok := s.codecs[name]
		if !ok {
			continue
		}
		raw, err := c.EncodeAny(v)
		if err != nil {
			continue
		}
		changes[name] = raw
	}
	return changes
}
