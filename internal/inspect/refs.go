package inspect

import (
	"go/types"
	"strconv"
	"strings"
	"unicode"

	"github.com/funvibe/sumgen/internal/union"
)

// reservedAliases cannot name an import in generated files.
var reservedAliases = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	// The runtime support package.
	"union": true,
}

type identity struct {
	t  types.Type
	id string
}

// refBuilder converts go/types types into union.TypeRefs as seen from one
// package. Import aliases are assigned once per package so every file
// generated for it agrees on them.
type refBuilder struct {
	target  *types.Package
	aliases map[string]string
	used    map[string]bool
	seen    []identity
}

func newRefBuilder(target *types.Package) *refBuilder {
	return &refBuilder{
		target:  target,
		aliases: make(map[string]string),
		used:    make(map[string]bool),
	}
}

func (rb *refBuilder) ref(t types.Type) union.TypeRef {
	t = unalias(t)

	var imports []union.Import
	qualifier := func(p *types.Package) string {
		if p.Path() == rb.target.Path() {
			return ""
		}
		alias := rb.alias(p)
		for _, imp := range imports {
			if imp.Path == p.Path() {
				return alias
			}
		}
		imports = append(imports, union.Import{Alias: alias, Path: p.Path()})
		return alias
	}

	expr := types.TypeString(t, qualifier)
	ref := union.TypeRef{
		ID:      rb.identity(t),
		Name:    shortName(t),
		Expr:    expr,
		Imports: imports,
	}
	if n, ok := t.(*types.Named); ok && n.Obj().Pkg() != nil {
		ref.PkgPath = n.Obj().Pkg().Path()
		ref.PkgName = n.Obj().Pkg().Name()
	}
	return ref
}

// identity returns one ID per set of identical types, so that spellings
// such as []byte and []uint8 compare equal.
func (rb *refBuilder) identity(t types.Type) string {
	for _, s := range rb.seen {
		if types.Identical(s.t, t) {
			return s.id
		}
	}
	id := types.TypeString(t, nil)
	rb.seen = append(rb.seen, identity{t: t, id: id})
	return id
}

func (rb *refBuilder) alias(p *types.Package) string {
	if a, ok := rb.aliases[p.Path()]; ok {
		return a
	}
	base := identifier(p.Name())
	if base == "" {
		base = identifier(p.Path()[strings.LastIndex(p.Path(), "/")+1:])
	}
	if base == "" || reservedAliases[base] {
		base = "pkg" + strings.ToUpper(base[:min(1, len(base))]) + base[min(1, len(base)):]
	}
	alias := base
	for n := 2; rb.used[alias]; n++ {
		alias = base + strconv.Itoa(n)
	}
	rb.aliases[p.Path()] = alias
	rb.used[alias] = true
	return alias
}

func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

// shortName names a type for synthesized identifiers: "float64",
// "Duration", "ByteSlice", "StringIntMap".
func shortName(t types.Type) string {
	switch t := unalias(t).(type) {
	case *types.Basic:
		return t.Name()
	case *types.Named:
		return t.Obj().Name()
	case *types.Pointer:
		return shortName(t.Elem())
	case *types.Slice:
		return union.UpperCamel(shortName(t.Elem())) + "Slice"
	case *types.Array:
		return union.UpperCamel(shortName(t.Elem())) + "Array"
	case *types.Map:
		return union.UpperCamel(shortName(t.Key())) + union.UpperCamel(shortName(t.Elem())) + "Map"
	case *types.Chan:
		return union.UpperCamel(shortName(t.Elem())) + "Chan"
	case *types.Signature:
		return "Func"
	case *types.Struct:
		return "Struct"
	case *types.Interface:
		if t.Empty() {
			return "Any"
		}
		return "Interface"
	}
	return "Value"
}
