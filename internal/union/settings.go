package union

import (
	"fmt"
	"strings"
)

// MethodGeneration selects which overloads of an operation family are built.
type MethodGeneration int

const (
	// Default builds the total operations. It is the zero value.
	Default MethodGeneration = iota
	// None disables the family.
	None
	// DefaultWithPartialOverloads builds the total and the partial operations.
	DefaultWithPartialOverloads
)

var methodGenerationNames = map[MethodGeneration]string{
	Default:                     "default",
	None:                        "none",
	DefaultWithPartialOverloads: "default_with_partial_overloads",
}

func (m MethodGeneration) String() string {
	if s, ok := methodGenerationNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MethodGeneration(%d)", int(m))
}

// Enabled reports whether the family is generated at all.
func (m MethodGeneration) Enabled() bool {
	return m != None
}

// Partial reports whether partial overloads are generated.
func (m MethodGeneration) Partial() bool {
	return m == DefaultWithPartialOverloads
}

// ParseMethodGeneration parses the names accepted in sumgen.yaml and in
// directives. Matching is case-insensitive and treats '-' like '_'.
func ParseMethodGeneration(s string) (MethodGeneration, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "", "default":
		return Default, nil
	case "none", "off":
		return None, nil
	case "partial", "default_with_partial_overloads", "defaultwithpartialoverloads":
		return DefaultWithPartialOverloads, nil
	}
	return Default, fmt.Errorf("unknown method generation %q (want none, default or default_with_partial_overloads)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m MethodGeneration) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MethodGeneration) UnmarshalText(text []byte) error {
	v, err := ParseMethodGeneration(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Settings is the per-union configuration.
type Settings struct {
	SwitchMethods                   MethodGeneration `json:"switchMethods"`
	MapMethods                      MethodGeneration `json:"mapMethods"`
	SkipImplicitConversionFromValue bool             `json:"skipImplicitConversionFromValue"`
}
