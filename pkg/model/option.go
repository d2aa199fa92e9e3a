package model

import "encoding/json"

// Option holds a value that may not have been computed.
// The zero value is None.
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a computed value
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an empty option
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it was computed
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSome reports whether the value was computed
func (o Option[T]) IsSome() bool {
	return o.ok
}

// OrElse returns the value, or def when absent
func (o Option[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// MarshalJSON encodes absent values as null
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as None
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Option[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
