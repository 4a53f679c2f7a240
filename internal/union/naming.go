package union

import (
	"strconv"
	"unicode"
)

// reservedNames cannot be used as synthesized parameter names: Go keywords,
// predeclared identifiers and the names generated code already uses.
var reservedNames = map[string]bool{
	"break": true, "default": true, "func": true, "interface": true, "select": true,
	"case": true, "defer": true, "go": true, "map": true, "struct": true,
	"chan": true, "else": true, "goto": true, "package": true, "switch": true,
	"const": true, "fallthrough": true, "if": true, "range": true, "type": true,
	"continue": true, "for": true, "import": true, "return": true, "var": true,

	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true,
	"complex128": true, "error": true, "float32": true, "float64": true, "int": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "rune": true,
	"string": true, "uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true, "true": true, "false": true, "iota": true,
	"nil": true, "append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true, "len": true,
	"make": true, "max": true, "min": true, "new": true, "panic": true,
	"print": true, "println": true, "real": true, "recover": true,

	"u": true, "v": true, "state": true, "fallback": true, "union": true,
}

// IsReservedName reports whether name is unusable as a generated parameter.
func IsReservedName(name string) bool {
	return reservedNames[name]
}

// assignArgNames synthesizes one parameter name per variant, unique within
// the slice. Short names shared by several variants are qualified with the
// package name; whatever still clashes is numbered in slice order. Names
// never shadow the root or a variant type, which unexported types could.
func assignArgNames(root TypeRef, variants []Variant) []string {
	base := make([]string, len(variants))
	count := make(map[string]int, len(variants))
	typeNames := map[string]bool{root.Name: true}
	for i, v := range variants {
		base[i] = LowerCamel(v.Type.Name)
		count[base[i]]++
		typeNames[v.Type.Name] = true
	}

	names := make([]string, len(variants))
	used := make(map[string]bool, len(variants))
	for i, v := range variants {
		name := base[i]
		if count[name] > 1 && v.Type.PkgName != "" {
			name = LowerCamel(v.Type.PkgName) + UpperCamel(v.Type.Name)
		}
		if name == "" {
			name = "variant"
		}
		if reservedNames[name] || typeNames[name] {
			name += "Case"
		}
		name = uniqueName(name, used)
		used[name] = true
		names[i] = name
	}
	return names
}

func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + strconv.Itoa(n)
		if !used[candidate] {
			return candidate
		}
	}
}

// LowerCamel lowercases the leading upper-case run of an identifier, keeping
// the last capital of an acronym that starts the next word:
// "Circle" -> "circle", "HTTPError" -> "httpError", "ID" -> "id".
func LowerCamel(s string) string {
	runes := []rune(sanitize(s))
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return string(runes)
	case n == 1 || n == len(runes):
	default:
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// UpperCamel uppercases the first rune of an identifier.
func UpperCamel(s string) string {
	runes := []rune(sanitize(s))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

// sanitize drops every rune that cannot appear in a Go identifier and makes
// sure the result does not start with a digit.
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			out = append(out, r)
		}
	}
	if len(out) > 0 && unicode.IsDigit(out[0]) {
		out = append([]rune{'T'}, out...)
	}
	return string(out)
}
