package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/funvibe/sumgen/internal/union"
)

// Directive names recognized in doc comments.
const (
	DirectiveUnion    = "sumgen:union"
	DirectiveAbstract = "sumgen:abstract"
)

// Directive holds the options of a //sumgen:union comment. Nil fields are
// not set by the directive.
type Directive struct {
	SwitchMethods          *union.MethodGeneration
	MapMethods             *union.MethodGeneration
	SkipImplicitConversion *bool
}

// IsDirective reports whether a raw comment line is the named directive,
// with or without options.
func IsDirective(line, name string) bool {
	rest, ok := strings.CutPrefix(line, "//"+name)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// ParseDirective parses a raw //sumgen:union comment line such as
//
//	//sumgen:union switch=partial map=none skip-implicit-conversion
//
// A bare boolean option means true.
func ParseDirective(line string) (*Directive, error) {
	if !IsDirective(line, DirectiveUnion) {
		return nil, fmt.Errorf("not a %s directive: %q", DirectiveUnion, line)
	}
	var d Directive
	for _, field := range strings.Fields(strings.TrimPrefix(line, "//"+DirectiveUnion)) {
		key, value, hasValue := strings.Cut(field, "=")
		switch normalizeKey(key) {
		case "switch", "switch_methods":
			m, err := union.ParseMethodGeneration(value)
			if err != nil || !hasValue {
				return nil, fmt.Errorf("%s: option %q: want switch=<none|default|partial>", DirectiveUnion, field)
			}
			d.SwitchMethods = &m
		case "map", "map_methods":
			m, err := union.ParseMethodGeneration(value)
			if err != nil || !hasValue {
				return nil, fmt.Errorf("%s: option %q: want map=<none|default|partial>", DirectiveUnion, field)
			}
			d.MapMethods = &m
		case "skip_implicit_conversion", "skip_implicit_conversion_from_value":
			skip := true
			if hasValue {
				b, err := cast.ToBoolE(value)
				if err != nil {
					return nil, fmt.Errorf("%s: option %q: %w", DirectiveUnion, field, err)
				}
				skip = b
			}
			d.SkipImplicitConversion = &skip
		default:
			return nil, fmt.Errorf("%s: unknown option %q", DirectiveUnion, key)
		}
	}
	return &d, nil
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "-", "_")
}

// Snake converts a Go identifier to snake_case: "HTTPError" -> "http_error",
// "ShapeV2" -> "shape_v2".
func Snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
