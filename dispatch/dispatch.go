package dispatch

import (
	"context"
	"fmt"

	"github.com/discophylo/disco/model"
)

// Decomposer is the decomposition pipeline. It owns reading the input tree
// list, decomposing, and writing outputs.
type Decomposer interface {
	Decompose(ctx context.Context, cfg model.DecompConfig) error
}

// Concatenator is the concatenation pipeline. It owns reading alignments and
// trees and writing the concatenation and optional partition files.
type Concatenator interface {
	Concatenate(ctx context.Context, cfg model.ConcatConfig) error
}

// Request is a validated configuration tagged with its subcommand. Only the
// field matching Command is read.
type Request struct {
	Command model.Command
	Decomp  model.DecompConfig
	Concat  model.ConcatConfig
}

// Dispatcher routes a validated request to exactly one pipeline.
type Dispatcher struct {
	Decomposer   Decomposer
	Concatenator Concatenator
}

// Dispatch invokes the pipeline selected by req.Command and returns its
// error unchanged. It assumes req has already been validated.
func (d Dispatcher) Dispatch(ctx context.Context, req Request) error {
	switch req.Command {
	case model.CommandDecomp:
		return d.Decomposer.Decompose(ctx, req.Decomp)
	case model.CommandConcat:
		return d.Concatenator.Concatenate(ctx, req.Concat)
	default:
		return fmt.Errorf("dispatch: unknown command %q", req.Command)
	}
}
