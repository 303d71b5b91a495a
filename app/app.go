// Package app assembles the disco command: grammar, cross-flag rules,
// logging and dispatch to the pipelines.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/discophylo/disco/dispatch"
	"github.com/discophylo/disco/model"
	"github.com/discophylo/disco/pipeline"
	"github.com/discophylo/disco/schema"
	"github.com/discophylo/disco/settings"
	"github.com/discophylo/disco/validator"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const appName = "disco"

// Exit statuses owned by the front end. Once a pipeline has been invoked
// the status is the pipeline's.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Options configures an App. Nil pipelines fall back to the external
// backend program.
type Options struct {
	Version      string
	Decomposer   dispatch.Decomposer
	Concatenator dispatch.Concatenator
	Stdout       io.Writer
	Stderr       io.Writer
}

// App runs one invocation at a time.
type App struct {
	opts    Options
	log     *logrus.Logger
	tracker dispatch.Tracker
}

// New returns an App writing to the process streams unless opts says otherwise.
func New(opts Options) *App {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &App{opts: opts, log: setupLogger(opts.Stderr)}
}

func setupLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// State reports how far the last invocation got.
func (a *App) State() dispatch.State { return a.tracker.State() }

// Run parses args (args[0] is the program name), validates, dispatches,
// and returns the process exit status.
func (a *App) Run(ctx context.Context, args []string) int {
	a.tracker = dispatch.Tracker{}
	a.log.SetLevel(logrus.InfoLevel)
	if len(args) == 0 {
		args = []string{appName}
	}

	var file *settings.File
	if path := settings.PathFromArgs(args[1:]); path != "" {
		var err error
		if file, err = settings.Load(path); err != nil {
			return a.exitStatus(&validator.UsageError{Flag: "config", Message: err.Error()})
		}
	}
	return a.exitStatus(a.Command(file).Run(ctx, args))
}

// Command builds the root command. file may be nil.
func (a *App) Command(file *settings.File) *cli.Command {
	return &cli.Command{
		Name:        appName,
		Usage:       "decompose gene-family trees and build concatenation files",
		Description: "DISCO " + a.opts.Version,
		Writer:      a.opts.Stdout,
		ErrWriter:   a.opts.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML or YAML settings file with [decomp]/[concat] flag values (or $" + settings.ConfigEnv + ")",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "pipeline backend program",
				Value: pipeline.DefaultBackend,
				Sources: cli.NewValueSourceChain(
					settings.EnvSource{Key: pipeline.BackendEnv},
					file.Source(appName, "backend"),
				),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "info",
				Sources: cli.NewValueSourceChain(
					settings.EnvSource{Key: "DISCO_LOG_LEVEL"},
					file.Source(appName, "log-level"),
				),
			},
		},
		Commands: []*cli.Command{
			schema.DecompCommand(file, a.runDecomp),
			schema.ConcatCommand(file, a.runConcat),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Present() {
				return validator.Usagef("command", "argument command: invalid choice %q (choose from %s, %s)",
					cmd.Args().First(), model.CommandDecomp, model.CommandConcat)
			}
			return validator.Usagef("command", "the following arguments are required: command (%s or %s)",
				model.CommandDecomp, model.CommandConcat)
		},
		OnUsageError:   schema.OnUsageError,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func (a *App) runDecomp(ctx context.Context, cmd *cli.Command) error {
	if err := a.begin(cmd); err != nil {
		return err
	}
	cfg, err := schema.BuildDecomp(cmd)
	if err != nil {
		return a.reject(err)
	}
	cfg, advisories, err := validator.ValidateDecomp(cfg)
	if err != nil {
		return a.reject(err)
	}
	a.advise(advisories)
	a.log.WithField("args", strings.Join(pipeline.DecompArgs(cfg), " ")).Debug("configuration validated")
	return a.dispatch(ctx, cmd, dispatch.Request{Command: model.CommandDecomp, Decomp: cfg})
}

func (a *App) runConcat(ctx context.Context, cmd *cli.Command) error {
	if err := a.begin(cmd); err != nil {
		return err
	}
	cfg, err := schema.BuildConcat(cmd)
	if err != nil {
		return a.reject(err)
	}
	cfg, advisories, err := validator.ValidateConcat(cfg)
	if err != nil {
		return a.reject(err)
	}
	a.advise(advisories)
	a.log.WithField("args", strings.Join(pipeline.ConcatArgs(cfg), " ")).Debug("configuration validated")
	return a.dispatch(ctx, cmd, dispatch.Request{Command: model.CommandConcat, Concat: cfg})
}

// begin applies the root flags and marks the grammar as parsed.
func (a *App) begin(cmd *cli.Command) error {
	level, err := logrus.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return validator.Usagef("log-level", "argument --log-level: %v", err)
	}
	a.log.SetLevel(level)
	return a.tracker.Advance(dispatch.Parsed)
}

func (a *App) reject(err error) error {
	_ = a.tracker.Advance(dispatch.Rejected)
	return err
}

func (a *App) advise(findings []validator.Finding) {
	for _, f := range findings {
		a.log.WithField("rule", f.Rule).Warn(f.Message)
	}
}

func (a *App) dispatch(ctx context.Context, cmd *cli.Command, req dispatch.Request) error {
	if err := a.tracker.Advance(dispatch.Validated); err != nil {
		return err
	}
	d := dispatch.Dispatcher{Decomposer: a.opts.Decomposer, Concatenator: a.opts.Concatenator}
	if d.Decomposer == nil || d.Concatenator == nil {
		backend := pipeline.NewBackend(cmd.String("backend"), a.log)
		backend.Stdout, backend.Stderr = a.opts.Stdout, a.opts.Stderr
		if d.Decomposer == nil {
			d.Decomposer = backend
		}
		if d.Concatenator == nil {
			d.Concatenator = backend
		}
	}
	if err := a.tracker.Advance(dispatch.Dispatched); err != nil {
		return err
	}
	return d.Dispatch(ctx, req)
}

// exitStatus reports err and maps it onto a status. Errors before dispatch
// are usage errors; after dispatch the pipeline's own exit code is kept.
func (a *App) exitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	if a.tracker.State() != dispatch.Dispatched {
		if a.tracker.State() != dispatch.Rejected {
			_ = a.tracker.Advance(dispatch.Rejected)
		}
		fmt.Fprintf(a.opts.Stderr, "%s: error: %v\n", appName, err)
		return ExitUsage
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) && coder.ExitCode() > 0 {
		return coder.ExitCode()
	}
	fmt.Fprintf(a.opts.Stderr, "%s: %v\n", appName, err)
	return ExitFailure
}
