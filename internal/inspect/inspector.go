package inspect

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/funvibe/sumgen/internal/config"
	"github.com/funvibe/sumgen/internal/union"
)

var (
	// ErrNotInterface is reported for a union root that is not an ordinary
	// interface type.
	ErrNotInterface = errors.New("union root is not an interface")

	// ErrGenericRoot is reported for a union root with type parameters.
	ErrGenericRoot = errors.New("union root is generic")

	// ErrEmptyRoot is reported for a union root without methods: every type
	// would be a variant.
	ErrEmptyRoot = errors.New("union root declares no methods")

	// ErrUnknownUnion is reported when sumgen.yaml names a type the package
	// does not declare.
	ErrUnknownUnion = errors.New("union type not found")
)

// Inspector turns type-checked packages into union declarations.
type Inspector struct {
	log logrus.FieldLogger
}

// New returns an Inspector logging to log, or to the standard logger when
// log is nil.
func New(log logrus.FieldLogger) *Inspector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Inspector{log: log}
}

// Package extracts the declarations of a loaded package.
func (ins *Inspector) Package(pkg *Package, cfg *config.Config) ([]union.Declaration, error) {
	return ins.Declarations(pkg.Types, pkg.Files, pkg.Fset, cfg)
}

type root struct {
	obj   *types.TypeName
	named *types.Named
	iface *types.Interface
	dir   *config.Directive
}

// candidate is a package-level named type that may be a variant.
type candidate struct {
	obj   *types.TypeName
	named *types.Named
	doc   *ast.CommentGroup
}

// Declarations extracts every union declared in pkg, in declaration order.
// A declaration whose root is malformed is reported in the returned error
// and left out; the others are still returned.
func (ins *Inspector) Declarations(pkg *types.Package, files []*ast.File, fset *token.FileSet, cfg *config.Config) ([]union.Declaration, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	docs := typeDocs(files)
	cands := candidates(pkg, fset, docs)

	roots, errs := ins.roots(pkg, cands, cfg)
	refs := newRefBuilder(pkg)

	decls := make([]union.Declaration, 0, len(roots))
	for _, r := range roots {
		decl := ins.declaration(pkg, fset, r, cands, refs, cfg)
		ins.log.WithFields(logrus.Fields{
			"package":  pkg.Path(),
			"union":    r.obj.Name(),
			"variants": len(decl.Variants),
		}).Debug("union declared")
		decls = append(decls, decl)
	}
	return decls, errors.Join(errs...)
}

// typeDocs maps each package-level type name to its doc comment.
func typeDocs(files []*ast.File) map[string]*ast.CommentGroup {
	docs := make(map[string]*ast.CommentGroup)
	for _, f := range files {
		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				docs[ts.Name.Name] = doc
			}
		}
	}
	return docs
}

// candidates lists the named types of pkg by source position.
func candidates(pkg *types.Package, fset *token.FileSet, docs map[string]*ast.CommentGroup) []candidate {
	scope := pkg.Scope()
	var out []candidate
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || obj.IsAlias() {
			continue
		}
		named, ok := obj.Type().(*types.Named)
		if !ok {
			continue
		}
		out = append(out, candidate{obj: obj, named: named, doc: docs[name]})
	}
	sortByPosition(fset, out, func(c candidate) token.Pos { return c.obj.Pos() })
	return out
}

func sortByPosition[T any](fset *token.FileSet, s []T, pos func(T) token.Pos) {
	sort.SliceStable(s, func(i, j int) bool {
		pi, pj := fset.Position(pos(s[i])), fset.Position(pos(s[j]))
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		return pi.Offset < pj.Offset
	})
}

// directive returns the first line of doc that is the named directive.
func directive(doc *ast.CommentGroup, name string) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, c := range doc.List {
		if config.IsDirective(c.Text, name) {
			return c.Text, true
		}
	}
	return "", false
}

func (ins *Inspector) roots(pkg *types.Package, cands []candidate, cfg *config.Config) ([]root, []error) {
	var errs []error
	byName := make(map[string]candidate, len(cands))
	for _, c := range cands {
		byName[c.obj.Name()] = c
	}

	selected := make(map[string]*config.Directive)
	for _, c := range cands {
		line, ok := directive(c.doc, config.DirectiveUnion)
		if !ok {
			continue
		}
		d, err := config.ParseDirective(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", pkg.Path(), c.obj.Name(), err))
			continue
		}
		selected[c.obj.Name()] = d
	}
	for _, name := range cfg.Declared(pkg.Path()) {
		if _, ok := byName[name]; ok {
			if _, dup := selected[name]; !dup {
				selected[name] = nil
			}
			continue
		}
		// Entries without a package apply to every package that has the type.
		if spec, ok := cfg.Lookup(pkg.Path(), name); ok && spec.Package == pkg.Path() {
			errs = append(errs, fmt.Errorf("%s: %s.%s: %w", cfg.Path(), pkg.Path(), name, ErrUnknownUnion))
		}
	}
	if len(selected) == 0 {
		return nil, errs
	}

	var roots []root
	for _, c := range cands {
		d, ok := selected[c.obj.Name()]
		if !ok {
			continue
		}
		iface, err := rootInterface(c.named)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", pkg.Path(), c.obj.Name(), err))
			continue
		}
		roots = append(roots, root{obj: c.obj, named: c.named, iface: iface, dir: d})
	}
	return roots, errs
}

func rootInterface(named *types.Named) (*types.Interface, error) {
	if named.TypeParams().Len() > 0 {
		return nil, ErrGenericRoot
	}
	iface, ok := named.Underlying().(*types.Interface)
	if !ok || !iface.IsMethodSet() {
		return nil, ErrNotInterface
	}
	if iface.NumMethods() == 0 {
		return nil, ErrEmptyRoot
	}
	return iface, nil
}

// member is a candidate that belongs to a union.
type member struct {
	candidate
	pointer  bool
	abstract bool
	order    int
}

func (ins *Inspector) declaration(pkg *types.Package, fset *token.FileSet, r root, cands []candidate, refs *refBuilder, cfg *config.Config) union.Declaration {
	decl := union.Declaration{
		Type:     refs.ref(r.named),
		Settings: cfg.Settings(pkg.Path(), r.obj.Name(), r.dir),
	}

	members := membersOf(r, cands)
	index := make(map[*types.TypeName]int, len(members))
	for i, m := range members {
		index[m.obj] = i
	}

	ctors := constructors(pkg, fset)
	for _, m := range members {
		v := union.Variant{
			Type:     refs.ref(m.named),
			Base:     decl.Type,
			Abstract: m.abstract,
			Pointer:  m.pointer,
			Order:    m.order,
		}
		if base := baseOf(m.named, index); base != nil {
			v.Base = refs.ref(base)
		}
		if !m.abstract {
			v.Constructors = constructorsOf(ctors, dispatchType(m.named, m.pointer), r, index, refs)
		}
		decl.Variants = append(decl.Variants, v)
	}
	return decl
}

// membersOf selects the non-generic candidates implementing the root.
// Interfaces assignable to the root and //sumgen:abstract types are
// abstract.
func membersOf(r root, cands []candidate) []member {
	var members []member
	for order, c := range cands {
		if c.obj == r.obj || c.named.TypeParams().Len() > 0 {
			continue
		}
		m := member{candidate: c, order: order}
		if _, isIface := c.named.Underlying().(*types.Interface); isIface {
			if !types.Implements(c.named, r.iface) {
				continue
			}
			m.abstract = true
		} else {
			switch {
			case types.Implements(c.named, r.iface):
			case types.Implements(types.NewPointer(c.named), r.iface):
				m.pointer = true
			default:
				continue
			}
			_, m.abstract = directive(c.doc, config.DirectiveAbstract)
		}
		members = append(members, m)
	}
	return members
}

// baseOf returns the first embedded variant of a struct, or the first
// embedded variant interface of an interface.
func baseOf(named *types.Named, variants map[*types.TypeName]int) *types.Named {
	var embedded []types.Type
	switch u := named.Underlying().(type) {
	case *types.Struct:
		for i := 0; i < u.NumFields(); i++ {
			if f := u.Field(i); f.Embedded() {
				embedded = append(embedded, f.Type())
			}
		}
	case *types.Interface:
		for i := 0; i < u.NumEmbeddeds(); i++ {
			embedded = append(embedded, u.EmbeddedType(i))
		}
	}
	for _, t := range embedded {
		if p, ok := t.(*types.Pointer); ok {
			t = p.Elem()
		}
		n, ok := unalias(t).(*types.Named)
		if !ok || n.Obj() == named.Obj() {
			continue
		}
		if _, ok := variants[n.Obj()]; ok {
			return n
		}
	}
	return nil
}

func dispatchType(named *types.Named, pointer bool) types.Type {
	if pointer {
		return types.NewPointer(named)
	}
	return named
}

// constructors lists the exported non-generic single-argument functions of
// pkg by source position.
func constructors(pkg *types.Package, fset *token.FileSet) []*types.Func {
	scope := pkg.Scope()
	var out []*types.Func
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.TypeParams().Len() > 0 || sig.Variadic() || sig.Params().Len() != 1 || sig.Results().Len() != 1 {
			continue
		}
		out = append(out, fn)
	}
	sortByPosition(fset, out, func(fn *types.Func) token.Pos { return fn.Pos() })
	return out
}

// constructorsOf picks the functions returning exactly result. Functions
// taking the root or a variant are conversions between union members, not
// constructors.
func constructorsOf(fns []*types.Func, result types.Type, r root, variants map[*types.TypeName]int, refs *refBuilder) []union.Constructor {
	var out []union.Constructor
	for _, fn := range fns {
		sig := fn.Type().(*types.Signature)
		if !types.Identical(sig.Results().At(0).Type(), result) {
			continue
		}
		param := sig.Params().At(0)
		if isMember(param.Type(), r, variants) {
			continue
		}
		name := param.Name()
		if name == "" || name == "_" {
			name = "value"
		}
		out = append(out, union.Constructor{
			Func:    fn.Name(),
			Arg:     refs.ref(param.Type()),
			ArgName: name,
		})
	}
	return out
}

func isMember(t types.Type, r root, variants map[*types.TypeName]int) bool {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := unalias(t).(*types.Named)
	if !ok {
		return false
	}
	if n.Obj() == r.obj {
		return true
	}
	_, ok = variants[n.Obj()]
	return ok
}
