package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/funvibe/sumgen/internal/config"
	"github.com/funvibe/sumgen/internal/pipeline"
	"github.com/funvibe/sumgen/internal/snapshot"
	"github.com/funvibe/sumgen/internal/union"
)

func generateCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "generate",
		Usage:     "write dispatch code for every union in the packages",
		ArgsUsage: "[packages]",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "check",
				Usage: "fail if generated files are missing or out of date instead of writing them",
			},
			cli.StringFlag{
				Name:  "ledger",
				Usage: "record the models in the SQLite ledger at `FILE` and report drift",
			},
		},
		Action: func(c *cli.Context) error {
			return runGenerate(ctx, c, c.Args(), c.Bool("check"), c.String("ledger"))
		},
	}
}

func modelCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "model",
		Usage:     "print the dispatch models as JSON",
		ArgsUsage: "[packages]",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "pretty", Usage: "indent the output"},
		},
		Action: func(c *cli.Context) error {
			out, err := build(ctx, c, c.Args())
			if err != nil {
				return err
			}
			return writeModels(os.Stdout, out.Models(), c.Bool("pretty"))
		},
	}
}

func explainCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "explain",
		Usage:     "show which arm of an operation handles a runtime type",
		ArgsUsage: "[packages]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "union, u", Usage: "union root `NAME`"},
			cli.StringFlag{Name: "type, t", Usage: "runtime type `NAME`"},
			cli.StringFlag{Name: "op", Usage: "operation name", Value: union.OpNameSwitch},
			cli.StringSliceFlag{Name: "handled", Usage: "variants the caller handles in a partial operation"},
		},
		Action: func(c *cli.Context) error {
			if c.String("union") == "" || c.String("type") == "" {
				return cli.NewExitError("explain: --union and --type are required", 2)
			}
			out, err := build(ctx, c, c.Args())
			if err != nil {
				return err
			}
			for _, u := range out.Units {
				if u.Decl.Type.Name == c.String("union") || u.Decl.Type.ID == c.String("union") {
					return explain(os.Stdout, u.Decl, u.Model, c.String("type"), c.String("op"), c.StringSlice("handled"))
				}
			}
			return fmt.Errorf("explain: union %s: not found", c.String("union"))
		},
	}
}

func historyCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "history",
		Usage: "print recorded runs from a ledger",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "ledger", Usage: "SQLite ledger `FILE`"},
			cli.StringFlag{Name: "union, u", Usage: "only entries of union `ID`"},
			cli.IntFlag{Name: "limit, n", Usage: "print at most `N` entries", Value: 20},
		},
		Action: func(c *cli.Context) error {
			if c.String("ledger") == "" {
				return cli.NewExitError("history: --ledger is required", 2)
			}
			store, err := snapshot.Open(ctx, c.String("ledger"))
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.History(ctx, c.String("union"), c.Int("limit"))
			if err != nil {
				return err
			}
			return printHistory(os.Stdout, entries)
		},
	}
}

// loadConfig reads the file given with --config, or the nearest sumgen.yaml
// above dir.
func loadConfig(path, dir string) (*config.Config, error) {
	if path == "" {
		if dir == "" {
			dir = "."
		}
		found, err := config.FindConfig(dir)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return config.Default(), nil
		}
		path = found
	}
	return config.LoadConfig(path)
}

func newPipelineContext(ctx context.Context, c *cli.Context, patterns []string) (*pipeline.PipelineContext, error) {
	dir := c.GlobalString("dir")
	cfg, err := loadConfig(c.GlobalString("config"), dir)
	if err != nil {
		return nil, err
	}
	log := logrus.NewEntry(logrus.StandardLogger())
	if p := cfg.Path(); p != "" {
		log.WithField("config", p).Debug("using config")
	}
	pctx := pipeline.NewPipelineContext(ctx, cfg, log)
	pctx.Patterns = patterns
	pctx.Load.Dir = dir
	return pctx, nil
}

func build(ctx context.Context, c *cli.Context, patterns []string) (*pipeline.PipelineContext, error) {
	pctx, err := newPipelineContext(ctx, c, patterns)
	if err != nil {
		return nil, err
	}
	out := pipeline.New(
		pipeline.LoadProcessor{},
		pipeline.DeclareProcessor{},
		pipeline.BuildProcessor{},
	).Run(pctx)
	return out, out.Err()
}

func runGenerate(ctx context.Context, c *cli.Context, patterns []string, check bool, ledger string) error {
	pctx, err := newPipelineContext(ctx, c, patterns)
	if err != nil {
		return err
	}
	pctx.Check = check

	processors := []pipeline.Processor{
		pipeline.LoadProcessor{},
		pipeline.DeclareProcessor{},
		pipeline.BuildProcessor{},
		pipeline.RenderProcessor{},
		pipeline.WriteProcessor{},
	}
	if ledger != "" {
		store, err := snapshot.Open(ctx, ledger)
		if err != nil {
			return err
		}
		defer store.Close()
		processors = append(processors, pipeline.SnapshotProcessor{Store: store})
	}

	out := pipeline.New(processors...).Run(pctx)
	if err := out.Err(); err != nil {
		return err
	}
	pctx.Log.WithFields(logrus.Fields{
		"unions":  len(out.Units),
		"written": len(out.Written),
	}).Info("done")
	return nil
}

func writeModels(w io.Writer, models []*union.Model, pretty bool) error {
	if models == nil {
		models = []*union.Model{}
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(models, "", "  ")
	} else {
		data, err = json.Marshal(models)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// explain prints how a value of typeName is dispatched by the operation
// named op. typeName is a variant name or identity; any other name is
// treated as a type outside the union.
func explain(w io.Writer, decl union.Declaration, m *union.Model, typeName, op string, handled []string) error {
	operation, ok := m.Operation(op)
	if !ok {
		return fmt.Errorf("explain: union %s has no operation %q", m.Union.Name, op)
	}
	if operation.Kind == union.OpConversion {
		return fmt.Errorf("explain: %s is a conversion", op)
	}

	actual := typeName
	for _, v := range decl.Variants {
		if v.Type.Name == typeName || v.Type.ID == typeName {
			actual = v.Type.ID
			break
		}
	}

	var isHandled func(union.Arm) bool
	if len(handled) > 0 {
		set := make(map[string]bool, len(handled))
		for _, h := range handled {
			set[h] = true
		}
		isHandled = func(a union.Arm) bool {
			return set[a.Variant.Name] || set[a.Variant.ID]
		}
	}

	h := union.NewHierarchy(decl)
	res := union.Simulate(operation, h, actual, isHandled)

	fmt.Fprintf(w, "union:  %s\n", m.Union.ID)
	fmt.Fprintf(w, "type:   %s\n", actual)
	if anc := h.Ancestors(actual); len(anc) > 0 {
		fmt.Fprintf(w, "is a:   %s\n", strings.Join(anc, ", "))
	}
	fmt.Fprintf(w, "op:     %s\n", operation.Name)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, arm := range operation.Arms {
		note := ""
		switch {
		case i == res.Ran:
			note = "runs"
		case i == res.Matched:
			note = "matches, not handled"
		case isHandled != nil && !isHandled(arm):
			note = "not handled"
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\n", i+1, arm.DispatchExpr, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case res.Ran >= 0:
		_, err := fmt.Fprintf(w, "result: arm %d (%s)\n", res.Ran+1, operation.Arms[res.Ran].DispatchExpr)
		return err
	case res.Fallback:
		_, err := fmt.Fprintln(w, "result: default")
		return err
	default:
		_, err := fmt.Fprintln(w, "result: panic (unexpected type)")
		return err
	}
}

// printHistory prints entries newest first, each with its drift from the
// previous entry of the same union.
func printHistory(w io.Writer, entries []snapshot.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tRUN\tUNION\tCASES\tCHANGES")
	for i, e := range entries {
		changes := "-"
		for _, older := range entries[i+1:] {
			if older.Union == e.Union {
				if d := snapshot.Compare(older, e); !d.Empty() {
					changes = strings.TrimPrefix(d.String(), e.Union+": ")
				}
				break
			}
		}
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.RecordedAt.Format("2006-01-02 15:04:05"), run, e.Union, strings.Join(e.Cases, ","), changes)
	}
	return tw.Flush()
}
