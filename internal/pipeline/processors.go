package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/sumgen/internal/codegen"
	"github.com/funvibe/sumgen/internal/config"
	"github.com/funvibe/sumgen/internal/inspect"
	"github.com/funvibe/sumgen/internal/snapshot"
	"github.com/funvibe/sumgen/internal/union"
)

// ErrStale is reported in check mode when a generated file is missing or
// out of date.
var ErrStale = errors.New("generated files are out of date")

// LoadProcessor loads the packages matching ctx.Patterns. Packages already
// present in the context are kept.
type LoadProcessor struct{}

func (LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Packages != nil {
		return ctx
	}
	pkgs, err := inspect.Load(ctx.Ctx, ctx.Load, ctx.Patterns...)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Packages = pkgs
	ctx.Log.WithField("packages", len(pkgs)).Debug("packages loaded")
	return ctx
}

// DeclareProcessor extracts union declarations from the loaded packages.
type DeclareProcessor struct {
	Inspector *inspect.Inspector
}

func (p DeclareProcessor) Process(ctx *PipelineContext) *PipelineContext {
	ins := p.Inspector
	if ins == nil {
		ins = inspect.New(ctx.Log)
	}
	for _, pkg := range ctx.Packages {
		decls, err := ins.Package(pkg, ctx.Config)
		if err != nil {
			ctx.Errors = append(ctx.Errors, err)
		}
		for _, decl := range decls {
			ctx.Units = append(ctx.Units, &Unit{Package: pkg, Decl: decl})
		}
	}
	if len(ctx.Units) == 0 && !ctx.failed() && len(ctx.Packages) > 0 {
		ctx.Errors = append(ctx.Errors, config.ErrNoUnions)
	}
	return ctx
}

// BuildProcessor builds the model of every declaration. Declarations are
// independent and built concurrently; results keep declaration order.
type BuildProcessor struct {
	// Workers bounds the concurrency. Zero means GOMAXPROCS.
	Workers int
}

func (p BuildProcessor) Process(ctx *PipelineContext) *PipelineContext {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	trace := ctx.Log.Logger.IsLevelEnabled(logrus.TraceLevel)

	errs := make([]error, len(ctx.Units))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, u := range ctx.Units {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Ctx.Err(); err != nil {
				return err
			}
			if trace {
				ctx.Log.WithField("union", u.Decl.Type.ID).Trace(spew.Sdump(u.Decl))
			}
			m, err := union.Build(u.Decl)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", u.Package.Path, err)
				return nil
			}
			u.Model = m
			logBuilt(ctx.Log, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	for _, err := range errs {
		if err != nil {
			ctx.Errors = append(ctx.Errors, err)
		}
	}
	return ctx
}

func logBuilt(log *logrus.Entry, m *union.Model) {
	entry := log.WithFields(logrus.Fields{
		"union":       m.Union.ID,
		"cases":       len(m.Cases),
		"conversions": len(m.Conversions),
		"operations":  len(m.Operations),
	})
	entry.Debug("model built")
	if m.Settings.SkipImplicitConversionFromValue {
		return
	}
	for _, amb := range union.AmbiguousConversions(m.Cases) {
		names := make([]string, len(amb.Variants))
		for i, v := range amb.Variants {
			names[i] = v.Name
		}
		entry.WithField("arg", amb.Arg.ID).Debugf("no conversion: accepted by %s", strings.Join(names, ", "))
	}
}

// RenderProcessor renders one file per model. Two models rendering to the
// same path is an error.
type RenderProcessor struct {
	Generator *codegen.Generator
}

func (p RenderProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.failed() {
		return ctx
	}
	gen := p.Generator
	if gen == nil {
		gen = codegen.New(ctx.Config)
	}
	owners := make(map[string]string, len(ctx.Units))
	for _, u := range ctx.Units {
		f, err := gen.Render(u.Package.Name, u.Model)
		if err != nil {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %w", u.Package.Path, err))
			continue
		}
		u.File = f
		u.Path = filepath.Join(u.Package.Dir, f.Name)
		if prev, ok := owners[u.Path]; ok {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("%s: %s and %s render to the same file", u.Path, prev, u.Model.Union.ID))
			continue
		}
		owners[u.Path] = u.Model.Union.ID
	}
	return ctx
}

// WriteProcessor writes rendered files that changed. In check mode it only
// reports them, with ErrStale.
type WriteProcessor struct{}

func (WriteProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.failed() {
		return ctx
	}
	for _, u := range ctx.Units {
		current, err := os.ReadFile(u.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("reading %s: %w", u.Path, err))
			continue
		}
		if err == nil && bytes.Equal(current, u.File.Content) {
			ctx.Log.WithField("file", u.Path).Debug("up to date")
			continue
		}
		if ctx.Check {
			ctx.Stale = append(ctx.Stale, u.Path)
			continue
		}
		if err := os.WriteFile(u.Path, u.File.Content, 0o644); err != nil {
			ctx.Errors = append(ctx.Errors, fmt.Errorf("writing %s: %w", u.Path, err))
			continue
		}
		ctx.Written = append(ctx.Written, u.Path)
		ctx.Log.WithField("file", u.Path).Info("generated")
	}
	if len(ctx.Stale) > 0 {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("%w:\n  %s", ErrStale, strings.Join(ctx.Stale, "\n  ")))
	}
	return ctx
}

// SnapshotProcessor records the models in a ledger and reports drift from
// the previous run. It never changes what is generated.
type SnapshotProcessor struct {
	Store *snapshot.Store
}

func (p SnapshotProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.failed() || p.Store == nil {
		return ctx
	}
	entries := make([]snapshot.Entry, 0, len(ctx.Units))
	for _, u := range ctx.Units {
		cur, err := snapshot.FromModel(u.Package.Path, u.Model)
		if err != nil {
			ctx.Errors = append(ctx.Errors, err)
			return ctx
		}
		prev, ok, err := p.Store.Latest(ctx.Ctx, cur.Union)
		if err != nil {
			ctx.Errors = append(ctx.Errors, err)
			return ctx
		}
		if ok {
			if d := snapshot.Compare(prev, cur); !d.Empty() {
				ctx.Drift = append(ctx.Drift, d)
				ctx.Log.WithField("union", cur.Union).Warn(d.String())
			}
		}
		entries = append(entries, cur)
	}
	runID, err := p.Store.Record(ctx.Ctx, entries)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.RunID = runID
	ctx.Log.WithFields(logrus.Fields{"run": runID, "unions": len(entries)}).Debug("snapshot recorded")
	return ctx
}
