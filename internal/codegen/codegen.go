// Package codegen renders union models as Go source.
package codegen

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/imports"

	"github.com/funvibe/sumgen/internal/config"
	"github.com/funvibe/sumgen/internal/inspect"
	"github.com/funvibe/sumgen/internal/union"
)

// Version changes whenever the rendered output changes for the same model.
const Version = "1"

// RuntimePath is the import path of the runtime support package.
const RuntimePath = "github.com/funvibe/sumgen/pkg/union"

// Generator renders one file per union.
type Generator struct {
	cfg         *config.Config
	runtimePath string
	format      bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithRuntimePath overrides the import path of the runtime support package.
func WithRuntimePath(importPath string) Option {
	return func(g *Generator) { g.runtimePath = importPath }
}

// WithoutFormatting leaves the rendered source as the template produced it.
func WithoutFormatting() Option {
	return func(g *Generator) { g.format = false }
}

// New creates a Generator. A nil cfg uses the default file name template.
func New(cfg *config.Config, opts ...Option) *Generator {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Generator{cfg: cfg, runtimePath: RuntimePath, format: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// File is a generated Go source file.
type File struct {
	// Name is the file name inside the package directory.
	Name string

	// Content is the formatted source.
	Content []byte
}

type importEntry struct {
	Alias string
	Path  string
}

// Named reports whether the import needs an explicit name.
func (e importEntry) Named() bool {
	return e.Alias != path.Base(e.Path)
}

type funcData struct {
	Doc        string
	Name       string
	TypeParams string
	Params     []string
	Result     string
	Body       string
}

var fileTemplate = template.Must(template.New("file").Parse(`{{.Header}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{if .Named}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{end}}
{{- range .Funcs}}
// {{.Doc}}
func {{.Name}}{{.TypeParams}}({{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p}}{{end}}){{if .Result}} {{.Result}}{{end}} {
{{.Body}}}
{{end}}`))

// Render generates the file for one union of package pkgName.
func (g *Generator) Render(pkgName string, m *union.Model) (File, error) {
	name, err := g.cfg.FileName(m.Union.Name, pkgName)
	if err != nil {
		return File{}, err
	}

	r := newRenderer(m)
	var funcs []funcData
	needRuntime := false
	imps := make(map[string]string)
	for i := range m.Operations {
		op := &m.Operations[i]
		if op.Kind == union.OpConversion {
			funcs = append(funcs, r.conversion(op))
			for _, imp := range op.Conversion.Arg.Imports {
				imps[imp.Path] = imp.Alias
			}
			continue
		}
		funcs = append(funcs, r.dispatch(op))
		if op.FailureArm || (op.Kind == union.OpMap && op.Partial) {
			needRuntime = true
		}
	}
	if needRuntime {
		imps[g.runtimePath] = "union"
	}

	data := struct {
		Header  string
		Package string
		Imports []importEntry
		Funcs   []funcData
	}{
		Header:  inspect.GeneratedHeader,
		Package: pkgName,
		Imports: sortedImports(imps),
		Funcs:   funcs,
	}

	var buf strings.Builder
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return File{}, fmt.Errorf("executing template for %s: %w", m.Union.ID, err)
	}
	src := []byte(buf.String())
	if g.format {
		src, err = imports.Process(name, src, &imports.Options{
			Comments:   true,
			TabIndent:  true,
			TabWidth:   8,
			FormatOnly: true,
		})
		if err != nil {
			return File{}, fmt.Errorf("formatting %s: %w", name, err)
		}
	}
	return File{Name: name, Content: src}, nil
}

func sortedImports(imps map[string]string) []importEntry {
	entries := make([]importEntry, 0, len(imps))
	for p, alias := range imps {
		entries = append(entries, importEntry{Alias: alias, Path: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// renderer holds the names shared by the functions of one union.
type renderer struct {
	m        *union.Model
	root     string
	exported bool
	state    string
	result   string
}

func newRenderer(m *union.Model) *renderer {
	taken := map[string]bool{m.Union.Name: true}
	for _, c := range m.Cases {
		taken[c.Variant.Type.Name] = true
	}
	root := m.Union.Expr
	if root == "" {
		root = m.Union.Name
	}
	return &renderer{
		m:        m,
		root:     root,
		exported: isExported(m.Union.Name),
		state:    typeParamName("S", taken),
		result:   typeParamName("R", taken),
	}
}

// typeParamName picks a type parameter name that does not hide a type the
// generated code refers to.
func typeParamName(base string, taken map[string]bool) string {
	name := base
	for n := 2; taken[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	return name
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// funcName builds Switch<U>WithState style names, unexported when the root is.
func (r *renderer) funcName(op *union.Operation) string {
	family := "Switch"
	if op.Kind == union.OpMap {
		family = "Map"
	}
	suffix := strings.TrimPrefix(op.Name, family)
	if !r.exported {
		family = strings.ToLower(family[:1]) + family[1:]
	}
	return family + union.UpperCamel(r.m.Union.Name) + suffix
}

func (r *renderer) dispatch(op *union.Operation) funcData {
	f := funcData{Name: r.funcName(op)}
	f.Params = append(f.Params, "u "+r.root)

	armType := func(a union.Arm) string { return "func(" + a.DispatchExpr + ")" }
	if op.WithState {
		f.TypeParams = "[" + r.state + " any]"
		f.Params = append(f.Params, "state "+r.state)
		armType = func(a union.Arm) string { return "func(" + r.state + ", " + a.DispatchExpr + ")" }
	}
	if op.Kind == union.OpMap {
		f.TypeParams = "[" + r.result + " any]"
		f.Result = r.result
		armType = func(union.Arm) string { return r.result }
		if op.Partial {
			armType = func(union.Arm) string { return "union.Opt[" + r.result + "]" }
		}
	}
	if op.Partial {
		switch {
		case op.Kind == union.OpMap:
			f.Params = append(f.Params, "fallback "+r.result)
		case op.WithState:
			f.Params = append(f.Params, "fallback func("+r.state+", "+r.root+")")
		default:
			f.Params = append(f.Params, "fallback func("+r.root+")")
		}
	}
	for _, a := range op.Arms {
		f.Params = append(f.Params, a.Param+" "+armType(a))
	}

	if op.Kind == union.OpMap {
		f.Doc, f.Body = r.mapBody(f.Name, op)
	} else {
		f.Doc, f.Body = r.switchBody(f.Name, op)
	}
	f.Doc += r.valueNote(op)
	return f
}

// valueNote documents that an arm for T does not match *T.
func (r *renderer) valueNote(op *union.Operation) string {
	for _, a := range op.Arms {
		if !a.Pointer {
			return fmt.Sprintf("\n// Arms match the exact dynamic type: a pointer to a value variant is not a variant of %s.", r.m.Union.Name)
		}
	}
	return ""
}

func (r *renderer) panicArm(b *strings.Builder) {
	fmt.Fprintf(b, "\tdefault:\n\t\tpanic(union.UnexpectedType(%s, u))\n", strconv.Quote(r.m.Union.Name))
}

func (r *renderer) switchBody(name string, op *union.Operation) (string, string) {
	var b strings.Builder
	call := func(a union.Arm) string {
		if op.WithState {
			return a.Param + "(state, v)"
		}
		return a.Param + "(v)"
	}

	if len(op.Arms) == 0 {
		b.WriteString("\tswitch u.(type) {\n")
	} else {
		b.WriteString("\tswitch v := u.(type) {\n")
	}
	for _, a := range op.Arms {
		fmt.Fprintf(&b, "\tcase %s:\n", a.DispatchExpr)
		if op.Partial {
			fmt.Fprintf(&b, "\t\tif %s != nil {\n\t\t\t%s\n\t\t\treturn\n\t\t}\n", a.Param, call(a))
		} else {
			fmt.Fprintf(&b, "\t\t%s\n", call(a))
		}
	}
	if !op.Partial {
		r.panicArm(&b)
		b.WriteString("\t}\n")
		return fmt.Sprintf("%s calls the function given for the variant held by u.\n// It panics if u holds no variant of %s.", name, r.m.Union.Name), b.String()
	}

	b.WriteString("\t}\n")
	if len(op.Arms) == 0 {
		b.Reset()
	}
	if op.WithState {
		b.WriteString("\tfallback(state, u)\n")
	} else {
		b.WriteString("\tfallback(u)\n")
	}
	return fmt.Sprintf("%s calls the function given for the variant held by u,\n// or fallback when that function is nil or u holds no variant of %s.", name, r.m.Union.Name), b.String()
}

func (r *renderer) mapBody(name string, op *union.Operation) (string, string) {
	var b strings.Builder
	b.WriteString("\tswitch u.(type) {\n")
	for _, a := range op.Arms {
		fmt.Fprintf(&b, "\tcase %s:\n", a.DispatchExpr)
		if op.Partial {
			fmt.Fprintf(&b, "\t\tif x, ok := %s.Get(); ok {\n\t\t\treturn x\n\t\t}\n", a.Param)
		} else {
			fmt.Fprintf(&b, "\t\treturn %s\n", a.Param)
		}
	}
	if !op.Partial {
		r.panicArm(&b)
		b.WriteString("\t}\n")
		return fmt.Sprintf("%s returns the value given for the variant held by u.\n// It panics if u holds no variant of %s.", name, r.m.Union.Name), b.String()
	}

	b.WriteString("\t}\n")
	if len(op.Arms) == 0 {
		b.Reset()
	}
	b.WriteString("\treturn fallback\n")
	return fmt.Sprintf("%s returns the value given for the variant held by u,\n// or fallback when that value is unset or u holds no variant of %s.", name, r.m.Union.Name), b.String()
}

func (r *renderer) conversion(op *union.Operation) funcData {
	conv := op.Conversion
	name := r.m.Union.Name + op.Name
	return funcData{
		Doc:    fmt.Sprintf("%s converts %s to %s with %s.", name, conv.Arg.Expr, r.m.Union.Name, conv.Func),
		Name:   name,
		Params: []string{conv.ArgName + " " + conv.Arg.Expr},
		Result: r.root,
		Body:   fmt.Sprintf("\treturn %s(%s)\n", conv.Func, conv.ArgName),
	}
}
