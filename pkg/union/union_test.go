package union

import (
	"errors"
	"testing"
)

func TestOpt(t *testing.T) {
	var unset Opt[int]
	if unset.IsSet() {
		t.Error("zero Opt is set")
	}
	if _, ok := unset.Get(); ok {
		t.Error("zero Opt Get reported a value")
	}
	if got := unset.OrElse(7); got != 7 {
		t.Errorf("OrElse = %d, want 7", got)
	}
	if None[string]().IsSet() {
		t.Error("None is set")
	}

	zero := Some(0)
	if v, ok := zero.Get(); !ok || v != 0 {
		t.Errorf("Some(0).Get() = %d, %v", v, ok)
	}
	if got := Some("x").OrElse("y"); got != "x" {
		t.Errorf("OrElse = %q, want x", got)
	}
}

type circle struct{}

func TestUnexpectedType(t *testing.T) {
	err := UnexpectedType("Shape", circle{})
	if got, want := err.Error(), "Shape: unexpected type union.circle"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var ute *UnexpectedTypeError
	if !errors.As(err, &ute) || ute.Union != "Shape" {
		t.Errorf("err = %#v", err)
	}

	if got, want := UnexpectedType("Shape", nil).Error(), "Shape: unexpected nil value"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
