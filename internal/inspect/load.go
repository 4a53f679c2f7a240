// Package inspect extracts union declarations from type-checked Go packages.
package inspect

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// GeneratedHeader is the first line of every file sumgen writes.
const GeneratedHeader = "// Code generated by sumgen. DO NOT EDIT."

// LoadConfig controls how packages are loaded.
type LoadConfig struct {
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string

	// Env is appended to the process environment.
	Env []string

	// BuildFlags are passed to the build system (e.g. "-tags=integration").
	BuildFlags []string
}

// Package is a loaded, type-checked package.
type Package struct {
	Path  string
	Name  string
	Dir   string
	Fset  *token.FileSet
	Files []*ast.File
	Types *types.Package
}

// Load loads and type-checks the packages matching patterns. Files
// previously generated by sumgen are replaced by their package clause
// before the build system sees them, so stale generated code never blocks
// regeneration.
func Load(ctx context.Context, cfg LoadConfig, patterns ...string) ([]*Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	pcfg := &packages.Config{
		Context:    ctx,
		Mode:       packages.NeedName | packages.NeedFiles,
		Dir:        cfg.Dir,
		Env:        append(os.Environ(), cfg.Env...),
		BuildFlags: cfg.BuildFlags,
	}
	overlay, err := generatedOverlay(pcfg, patterns)
	if err != nil {
		return nil, err
	}
	pcfg.Overlay = overlay
	pcfg.Mode |= packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo

	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	out := make([]*Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
		if len(pkg.GoFiles) == 0 || pkg.Types == nil {
			continue
		}
		out = append(out, &Package{
			Path:  pkg.PkgPath,
			Name:  pkg.Name,
			Dir:   filepath.Dir(pkg.GoFiles[0]),
			Fset:  pkg.Fset,
			Files: pkg.Syntax,
			Types: pkg.Types,
		})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}
	return out, nil
}

// generatedOverlay lists the files of the matching packages and maps every
// file sumgen wrote to its stub. cfg only needs NeedName and NeedFiles, so
// nothing is compiled.
func generatedOverlay(cfg *packages.Config, patterns []string) (map[string][]byte, error) {
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	overlay := make(map[string][]byte)
	fset := token.NewFileSet()
	for _, pkg := range pkgs {
		for _, name := range pkg.GoFiles {
			stub, ok, err := generatedStub(fset, name, nil)
			if err != nil {
				// The full load reports it.
				continue
			}
			if ok {
				overlay[name] = stub
			}
		}
	}
	return overlay, nil
}

// generatedStub returns the header and package clause of filename when it
// carries the sumgen header. src is read as by parser.ParseFile.
func generatedStub(fset *token.FileSet, filename string, src any) ([]byte, bool, error) {
	f, err := parser.ParseFile(fset, filename, src, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		return nil, false, err
	}
	if !IsGenerated(f) {
		return nil, false, nil
	}
	return []byte(GeneratedHeader + "\n\npackage " + f.Name.Name + "\n"), true, nil
}

// IsGenerated reports whether f was written by sumgen.
func IsGenerated(f *ast.File) bool {
	for _, cg := range f.Comments {
		if cg.Pos() > f.Package {
			break
		}
		for _, c := range cg.List {
			if c.Text == GeneratedHeader {
				return true
			}
		}
	}
	return false
}
