// disco: command-line front end for gene-family tree decomposition and
// concatenation.
//
// Usage:
//   disco decomp -i genes.tre [-o out.tre] [-d _ [-n 1] [--keep-labels]] [-m 4] [-v]
//                [--single_tree | --no-decomp] [--outgroups] [--remove_in_paralogs]
//   disco concat -i genes.tre -o out -a alignments.list -f {phylip|fasta} [-d _] [-m 4] [-p]
//
// Flags are validated here; the pipelines themselves run in the backend
// program named by --backend (default disco-pipeline, or $DISCO_BACKEND).

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/discophylo/disco/app"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.New(app.Options{Version: version}).Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
