package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/funvibe/sumgen/internal/codegen"
)

// Version can be set at build time using: -ldflags "-X main.Version=v1.2.3"
var Version = "dev"

func init() {
	// -v is --verbose.
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(ctx).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "sumgen"
	app.Usage = "generate exhaustive type switches for Go sum types"
	app.Version = Version + " (codegen " + codegen.Version + ")"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "config file path (default: nearest sumgen.yaml)",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Usage: "log level: trace,debug,info,warning,error",
			Value: "info",
		},
		cli.StringFlag{
			Name:  "dir, C",
			Usage: "run as if started in `DIR`",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "shorthand for --log-level=debug",
		},
	}

	app.Before = func(c *cli.Context) error {
		lv, err := logrus.ParseLevel(c.String("log-level"))
		if err != nil {
			return err
		}
		if c.Bool("verbose") && lv < logrus.DebugLevel {
			lv = logrus.DebugLevel
		}
		logrus.SetLevel(lv)
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
			DisableTimestamp: true,
		})
		return nil
	}

	app.Commands = []cli.Command{
		generateCommand(ctx),
		modelCommand(ctx),
		explainCommand(ctx),
		historyCommand(ctx),
	}
	app.Action = func(c *cli.Context) error {
		return runGenerate(ctx, c, c.Args(), false, "")
	}
	return app
}
