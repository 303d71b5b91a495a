// Package schema declares the decomp and concat grammars and turns a parsed
// subcommand into its typed configuration. It checks the shape of single
// fields only; relationships between flags belong to the validator.
package schema

import (
	"context"
	"errors"
	"strings"

	"github.com/discophylo/disco/model"
	"github.com/discophylo/disco/settings"
	"github.com/discophylo/disco/validator"
	"github.com/urfave/cli/v3"
)

// sources resolves a flag from $DISCO_<CMD>_<FLAG>, then the settings file.
func sources(file *settings.File, command model.Command, flag string) cli.ValueSourceChain {
	return cli.NewValueSourceChain(
		settings.EnvSource{Key: settings.EnvKey(string(command), flag)},
		file.Source(string(command), flag),
	)
}

// OnUsageError converts grammar failures (unknown flag, bad integer) into
// UsageErrors so they never reach a pipeline.
func OnUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	var uerr *validator.UsageError
	if errors.As(err, &uerr) {
		return uerr
	}
	return &validator.UsageError{Message: err.Error()}
}

// validateFormat rejects --format values outside model.Formats while the
// grammar is still parsing.
func validateFormat(s string) error {
	if _, err := model.ParseFormat(s); err != nil {
		return validator.Usagef("format", "argument -f/--format: %v", err)
	}
	return nil
}

// noPositionals rejects arguments left over after flag parsing; neither
// subcommand takes any.
func noPositionals(cmd *cli.Command) error {
	if cmd.Args().Present() {
		return validator.Usagef("args", "unrecognized arguments: %s", strings.Join(cmd.Args().Slice(), " "))
	}
	return nil
}

// DecompCommand returns the decomp grammar. action runs after parsing.
func DecompCommand(file *settings.File, action cli.ActionFunc) *cli.Command {
	src := func(flag string) cli.ValueSourceChain { return sources(file, model.CommandDecomp, flag) }
	return &cli.Command{
		Name:  string(model.CommandDecomp),
		Usage: "decomposes gene trees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Input tree list file",
				Required: true,
				Sources:  src("input"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output tree list file",
				Sources: src("output"),
			},
			&cli.StringFlag{
				Name:    "delimiter",
				Aliases: []string{"d"},
				Usage:   "Delimiter separating species name from rest of leaf label",
				Sources: src("delimiter"),
			},
			&cli.IntFlag{
				Name:    "nth-delimiter",
				Aliases: []string{"n"},
				Usage:   "Split on nth delimiter (only works with -d, defaults to 1)",
				Sources: src("nth-delimiter"),
			},
			&cli.IntFlag{
				Name:    "minimum",
				Aliases: []string{"m"},
				Usage:   "Minimum tree size outputted",
				Value:   model.DefaultMinimum,
				Sources: src("minimum"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enables verbose output",
				Sources: src("verbose"),
			},
			&cli.BoolFlag{
				Name:    "keep-labels",
				Usage:   "Keep original leaf labels instead of relabeling them with their species labels (only relevant with delimiter)",
				Sources: src("keep-labels"),
			},
			&cli.BoolFlag{
				Name:    "single_tree",
				Usage:   "Only output single large tree",
				Sources: src("single_tree"),
			},
			&cli.BoolFlag{
				Name:    "no-decomp",
				Usage:   "Outputs rooted trees without decomposition",
				Sources: src("no-decomp"),
			},
			&cli.BoolFlag{
				Name:    "outgroups",
				Usage:   "Output outgroups to file (including ties)",
				Sources: src("outgroups"),
			},
			&cli.BoolFlag{
				Name:    "remove_in_paralogs",
				Usage:   "Remove in-paralogs before rooting/scoring tree",
				Sources: src("remove_in_paralogs"),
			},
		},
		OnUsageError: OnUsageError,
		Action:       action,
	}
}

// ConcatCommand returns the concat grammar. action runs after parsing.
func ConcatCommand(file *settings.File, action cli.ActionFunc) *cli.Command {
	src := func(flag string) cli.ValueSourceChain { return sources(file, model.CommandConcat, flag) }
	formats := make([]string, len(model.Formats))
	for i, f := range model.Formats {
		formats[i] = string(f)
	}
	return &cli.Command{
		Name:  string(model.CommandConcat),
		Usage: "generate concatenation files from gene-family trees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "input tree list file",
				Required: true,
				Sources:  src("input"),
			},
			&cli.StringFlag{
				Name:     "output-prefix",
				Aliases:  []string{"o"},
				Usage:    "output file prefix",
				Required: true,
				Sources:  src("output-prefix"),
			},
			&cli.StringFlag{
				Name:     "alignment",
				Aliases:  []string{"a"},
				Usage:    "alignment files list",
				Required: true,
				Sources:  src("alignment"),
			},
			&cli.StringFlag{
				Name:      "format",
				Aliases:   []string{"f"},
				Usage:     "alignment file format {" + strings.Join(formats, ",") + "}",
				Required:  true,
				Sources:   src("format"),
				Validator: validateFormat,
			},
			&cli.StringFlag{
				Name:    "delimiter",
				Aliases: []string{"d"},
				Usage:   "delimiter separating taxon label from the rest of the leaf label",
				Value:   model.DefaultConcatDelimiter,
				Sources: src("delimiter"),
			},
			&cli.IntFlag{
				Name:    "filter",
				Aliases: []string{"m"},
				Usage:   "exclude decomposed trees with less than m taxa",
				Value:   model.DefaultFilter,
				Sources: src("filter"),
			},
			&cli.BoolFlag{
				Name:    "partition",
				Aliases: []string{"p"},
				Usage:   "generate partition file",
				Sources: src("partition"),
			},
		},
		OnUsageError: OnUsageError,
		Action:       action,
	}
}

// BuildDecomp reads a parsed decomp command into a DecompConfig.
func BuildDecomp(cmd *cli.Command) (model.DecompConfig, error) {
	if err := noPositionals(cmd); err != nil {
		return model.DecompConfig{}, err
	}
	cfg := model.DecompConfig{
		Input:            cmd.String("input"),
		Output:           cmd.String("output"),
		Minimum:          int(cmd.Int("minimum")),
		Verbose:          cmd.Bool("verbose"),
		KeepLabels:       cmd.Bool("keep-labels"),
		SingleTree:       cmd.Bool("single_tree"),
		NoDecomp:         cmd.Bool("no-decomp"),
		Outgroups:        cmd.Bool("outgroups"),
		RemoveInParalogs: cmd.Bool("remove_in_paralogs"),
	}
	if cmd.IsSet("delimiter") {
		d := cmd.String("delimiter")
		cfg.Delimiter = &d
	}
	if cmd.IsSet("nth-delimiter") {
		n := int(cmd.Int("nth-delimiter"))
		if n < 1 {
			return cfg, validator.Usagef("nth-delimiter",
				"argument -n/--nth-delimiter: must be a positive integer, got %d", n)
		}
		cfg.NthDelimiter = &n
	}
	return cfg, nil
}

// BuildConcat reads a parsed concat command into a ConcatConfig.
func BuildConcat(cmd *cli.Command) (model.ConcatConfig, error) {
	if err := noPositionals(cmd); err != nil {
		return model.ConcatConfig{}, err
	}
	cfg := model.ConcatConfig{
		Input:        cmd.String("input"),
		OutputPrefix: cmd.String("output-prefix"),
		Alignment:    cmd.String("alignment"),
		Delimiter:    cmd.String("delimiter"),
		Filter:       int(cmd.Int("filter")),
		Partition:    cmd.Bool("partition"),
	}
	format, err := model.ParseFormat(cmd.String("format"))
	if err != nil {
		return cfg, validator.Usagef("format", "argument -f/--format: %v", err)
	}
	cfg.Format = format
	return cfg, nil
}
