package tezos

import "encoding/json"

// Option is an explicit, pattern-matchable presence/absence wrapper.
// Spec §9 calls out that votes fields and fetchLatestBlock legitimately
// yield absence, and that absence must not be modeled as an empty
// string or a sentinel level (the one documented exception is the -1
// returned by fetchMaxLevel, which is a plain int, not an Option).
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] { return Option[T]{value: v, ok: true} }

// None is the absent value of type T.
func None[T any]() Option[T] { return Option[T]{} }

// IsSome reports whether the option holds a value.
func (o Option[T]) IsSome() bool { return o.ok }

// IsNone reports whether the option is empty.
func (o Option[T]) IsNone() bool { return !o.ok }

// Get returns the wrapped value and whether it was present, mirroring
// the comma-ok idiom used for map lookups elsewhere in this codebase.
func (o Option[T]) Get() (T, bool) { return o.value, o.ok }

// GetOrElse returns the wrapped value, or fallback if absent.
func (o Option[T]) GetOrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// Map transforms the wrapped value if present, otherwise returns None.
func Map[T, U any](o Option[T], f func(T) U) Option[U] {
	if !o.ok {
		return None[U]()
	}
	return Some(f(o.value))
}

// MarshalJSON renders an absent option as JSON null.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON treats a JSON null (or an absent field, via the zero
// value) as None and anything else as Some.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
