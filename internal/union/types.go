// Package union computes the dispatch model of a closed union: the ordered
// list of concrete variants, the constructor argument types that can be
// converted to the union without ambiguity, and the Switch/Map operations
// the code generator renders.
//
// The package is pure. It performs no I/O, holds no global state and every
// value it returns is an immutable snapshot of its input, so declarations can
// be built concurrently.
package union

// TypeRef identifies a Go type for synthesis purposes.
type TypeRef struct {
	// ID is the fully-qualified type identity (e.g. "example.com/shapes.Circle",
	// "[]byte"). Two refs denote the same type iff their IDs are equal.
	ID string `json:"id"`

	// PkgPath is the import path of a named type. Empty for builtin and
	// composite types.
	PkgPath string `json:"pkgPath,omitempty"`

	// PkgName is the package name of a named type (e.g. "shapes").
	PkgName string `json:"pkgName,omitempty"`

	// Name is the short name used to synthesize identifiers (e.g. "Circle").
	Name string `json:"name"`

	// Expr is the type expression as written inside the package that receives
	// generated code (e.g. "Circle", "time.Duration").
	Expr string `json:"expr,omitempty"`

	// Imports lists the packages Expr refers to.
	Imports []Import `json:"imports,omitempty"`
}

// Import is a package a type expression refers to, with the name Expr uses
// for it.
type Import struct {
	Alias string `json:"alias"`
	Path  string `json:"path"`
}

// String returns the identity of the type.
func (r TypeRef) String() string {
	return r.ID
}

// Declaration is one union root together with every variant declared for it.
type Declaration struct {
	// Type is the union root.
	Type TypeRef `json:"type"`

	// Settings gate which operations are built.
	Settings Settings `json:"settings"`

	// Variants is the unordered set of variants, including nested ones.
	Variants []Variant `json:"variants"`
}

// Variant describes one declared subtype of a union.
type Variant struct {
	// Type is the variant identity, unique within a union.
	Type TypeRef `json:"type"`

	// Base is the immediate parent: the union root or another variant.
	Base TypeRef `json:"base"`

	// Abstract variants link descendants to the root and are never a
	// dispatch target.
	Abstract bool `json:"abstract,omitempty"`

	// Pointer is true when only *T implements the root, so dispatch tests *T.
	Pointer bool `json:"pointer,omitempty"`

	// Order is the declaration ordinal assigned by the descriptor feed.
	// Variants with equal Order keep their input order.
	Order int `json:"order"`

	// Constructors lists the single-argument constructors of the variant in
	// declaration order.
	Constructors []Constructor `json:"constructors,omitempty"`
}

// DispatchExpr returns the type expression a type switch arm tests for.
func (v Variant) DispatchExpr() string {
	expr := v.Type.Expr
	if expr == "" {
		expr = v.Type.Name
	}
	if v.Pointer {
		return "*" + expr
	}
	return expr
}

// Constructor is a function taking exactly one argument and returning the
// variant.
type Constructor struct {
	// Func is the function name (e.g. "NewCircle").
	Func string `json:"func"`

	// Arg is the argument type.
	Arg TypeRef `json:"arg"`

	// ArgName is the declared parameter name.
	ArgName string `json:"argName"`
}

// Case is a concrete variant placed in dispatch order, paired with the
// argument name synthesized for it.
type Case struct {
	// Variant is the dispatch target.
	Variant Variant `json:"variant"`

	// ArgName is unique within the union.
	ArgName string `json:"argName"`
}

// Conversion is an implicit conversion from a constructor argument type to
// the union, routed through the only variant that accepts that type.
type Conversion struct {
	// Arg is the source type.
	Arg TypeRef `json:"arg"`

	// ArgName is the representative parameter name.
	ArgName string `json:"argName"`

	// Variant is the owning variant.
	Variant TypeRef `json:"variant"`

	// Func is the constructor the conversion calls.
	Func string `json:"func"`
}
