package union

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCyclicOrUnresolvableHierarchy is reported when some variants never
	// connect to the union root: their base is missing or they form a cycle.
	// Well-formed descriptor feeds never produce it.
	ErrCyclicOrUnresolvableHierarchy = errors.New("cyclic or unresolvable variant hierarchy")

	// ErrDuplicateVariant is reported when a feed lists the same identity twice.
	ErrDuplicateVariant = errors.New("duplicate variant")
)

// HierarchyError describes the variants the resolver could not place.
type HierarchyError struct {
	// Union is the root identity.
	Union string

	// Unresolved maps each unplaced variant identity to its base identity,
	// in feed order.
	Unresolved []Edge
}

// Edge is a variant together with the base it points at.
type Edge struct {
	Variant string
	Base    string
}

func (e *HierarchyError) Error() string {
	parts := make([]string, 0, len(e.Unresolved))
	for _, edge := range e.Unresolved {
		parts = append(parts, edge.Variant+" -> "+edge.Base)
	}
	return fmt.Sprintf("union %s: %v: %s", e.Union, ErrCyclicOrUnresolvableHierarchy, strings.Join(parts, ", "))
}

func (e *HierarchyError) Unwrap() error {
	return ErrCyclicOrUnresolvableHierarchy
}
