// Package union is the runtime support imported by generated dispatch code.
package union

import "fmt"

// Opt is an optional value. The zero Opt is unset.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns an Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an unset Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// IsSet reports whether o holds a value.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// Get returns the held value and whether it is set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// OrElse returns the held value, or fallback when o is unset.
func (o Opt[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// UnexpectedTypeError is the panic value of a total dispatch function that
// receives a value whose runtime type is not a variant of its union.
type UnexpectedTypeError struct {
	Union string
	Value any
}

func (e *UnexpectedTypeError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: unexpected nil value", e.Union)
	}
	return fmt.Sprintf("%s: unexpected type %T", e.Union, e.Value)
}

// UnexpectedType builds the error total dispatch functions panic with.
func UnexpectedType(union string, v any) error {
	return &UnexpectedTypeError{Union: union, Value: v}
}
