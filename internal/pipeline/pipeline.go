// Package pipeline runs generation as a chain of processors over a shared
// context: load, declare, build, render, write and optionally snapshot.
package pipeline

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/funvibe/sumgen/internal/codegen"
	"github.com/funvibe/sumgen/internal/config"
	"github.com/funvibe/sumgen/internal/inspect"
	"github.com/funvibe/sumgen/internal/snapshot"
	"github.com/funvibe/sumgen/internal/union"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Every stage runs so that errors of all stages
// are collected; stages that need complete input skip themselves.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Unit is one union travelling through the pipeline.
type Unit struct {
	Package *inspect.Package
	Decl    union.Declaration

	// Model is set by BuildProcessor.
	Model *union.Model

	// File and Path are set by RenderProcessor.
	File codegen.File
	Path string
}

// PipelineContext carries the state shared by processors.
type PipelineContext struct {
	Ctx    context.Context
	Config *config.Config
	Log    *logrus.Entry

	// Patterns and Load drive LoadProcessor.
	Patterns []string
	Load     inspect.LoadConfig

	// Check makes WriteProcessor compare instead of write.
	Check bool

	Packages []*inspect.Package
	Units    []*Unit

	// Written lists the files WriteProcessor changed; Stale the files it
	// found out of date in check mode.
	Written []string
	Stale   []string

	// RunID and Drift are set by SnapshotProcessor.
	RunID string
	Drift []snapshot.Drift

	Errors []error
}

// NewPipelineContext returns a context with the default configuration and
// the standard logger.
func NewPipelineContext(ctx context.Context, cfg *config.Config, log *logrus.Entry) *PipelineContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PipelineContext{Ctx: ctx, Config: cfg, Log: log}
}

// Err joins the errors recorded by all stages.
func (c *PipelineContext) Err() error {
	return errors.Join(c.Errors...)
}

func (c *PipelineContext) failed() bool {
	return len(c.Errors) > 0
}

// Models returns the built models in declaration order.
func (c *PipelineContext) Models() []*union.Model {
	var out []*union.Model
	for _, u := range c.Units {
		if u.Model != nil {
			out = append(out, u.Model)
		}
	}
	return out
}
