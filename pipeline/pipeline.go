// Package pipeline runs the decomposition and concatenation pipelines as an
// external backend program. The validated configuration is handed over as a
// canonical argument vector:
//
//	<backend> decomp --input=genes.tre --delimiter=_ --nth-delimiter=1 --minimum=4
//	<backend> concat --input=genes.tre --output-prefix=out --alignment=aln.list --format=fasta --delimiter=_ --filter=4
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/discophylo/disco/model"
	"github.com/sirupsen/logrus"
)

// DefaultBackend is the program looked up on PATH when none is configured.
const DefaultBackend = "disco-pipeline"

// BackendEnv overrides the backend program.
const BackendEnv = "DISCO_BACKEND"

// Backend implements both pipelines by executing Path.
type Backend struct {
	Path   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Log    *logrus.Logger
}

// NewBackend returns a Backend wired to the process's standard streams.
func NewBackend(path string, log *logrus.Logger) *Backend {
	if path == "" {
		path = DefaultBackend
	}
	return &Backend{Path: path, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Log: log}
}

// Decompose runs the decomposition pipeline.
func (b *Backend) Decompose(ctx context.Context, cfg model.DecompConfig) error {
	return b.run(ctx, DecompArgs(cfg))
}

// Concatenate runs the concatenation pipeline.
func (b *Backend) Concatenate(ctx context.Context, cfg model.ConcatConfig) error {
	return b.run(ctx, ConcatArgs(cfg))
}

// run returns *exec.ExitError untouched so callers can read the exit code.
func (b *Backend) run(ctx context.Context, args []string) error {
	path, err := exec.LookPath(b.Path)
	if err != nil {
		return fmt.Errorf("pipeline backend %q not found (set --backend or $%s): %w", b.Path, BackendEnv, err)
	}
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"backend": path, "args": args}).Debug("starting pipeline")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = b.Stdin
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	return cmd.Run()
}

// DecompArgs encodes cfg with long flag names. Defaults are written out so
// the backend never has to know them.
func DecompArgs(cfg model.DecompConfig) []string {
	args := []string{string(model.CommandDecomp), "--input=" + cfg.Input}
	if cfg.Output != "" {
		args = append(args, "--output="+cfg.Output)
	}
	if cfg.Delimiter != nil {
		args = append(args, "--delimiter="+*cfg.Delimiter)
	}
	if cfg.NthDelimiter != nil {
		args = append(args, "--nth-delimiter="+strconv.Itoa(*cfg.NthDelimiter))
	}
	args = append(args, "--minimum="+strconv.Itoa(cfg.Minimum))
	for _, b := range []struct {
		on   bool
		flag string
	}{
		{cfg.Verbose, "--verbose"},
		{cfg.KeepLabels, "--keep-labels"},
		{cfg.SingleTree, "--single_tree"},
		{cfg.NoDecomp, "--no-decomp"},
		{cfg.Outgroups, "--outgroups"},
		{cfg.RemoveInParalogs, "--remove_in_paralogs"},
	} {
		if b.on {
			args = append(args, b.flag)
		}
	}
	return args
}

// ConcatArgs encodes cfg with long flag names.
func ConcatArgs(cfg model.ConcatConfig) []string {
	args := []string{
		string(model.CommandConcat),
		"--input=" + cfg.Input,
		"--output-prefix=" + cfg.OutputPrefix,
		"--alignment=" + cfg.Alignment,
		"--format=" + string(cfg.Format),
		"--delimiter=" + cfg.Delimiter,
		"--filter=" + strconv.Itoa(cfg.Filter),
	}
	if cfg.Partition {
		args = append(args, "--partition")
	}
	return args
}
