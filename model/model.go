package model

import "fmt"

// Command tags the subcommand an invocation selected.
type Command string

const (
	CommandDecomp Command = "decomp"
	CommandConcat Command = "concat"
)

// Format is the alignment file format accepted by concat.
type Format string

const (
	FormatPhylip Format = "phylip"
	FormatFasta  Format = "fasta"
)

// Formats lists the legal --format values in help order.
var Formats = []Format{FormatPhylip, FormatFasta}

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid choice %q (choose from %s, %s)", s, FormatPhylip, FormatFasta)
}

// DecompConfig holds the configuration for the decomp subcommand.
// Delimiter and NthDelimiter are nil when absent.
type DecompConfig struct {
	Input            string
	Output           string
	Delimiter        *string
	NthDelimiter     *int
	Minimum          int
	Verbose          bool
	KeepLabels       bool
	SingleTree       bool
	NoDecomp         bool
	Outgroups        bool
	RemoveInParalogs bool
}

// HasDelimiter reports whether a delimiter was supplied, even an empty one.
func (c DecompConfig) HasDelimiter() bool { return c.Delimiter != nil }

// ConcatConfig holds the configuration for the concat subcommand.
type ConcatConfig struct {
	Input        string
	OutputPrefix string
	Alignment    string
	Format       Format
	Delimiter    string
	Filter       int
	Partition    bool
}

// Defaults shared by the grammar and the canonical argument encoder.
const (
	DefaultMinimum         = 4
	DefaultFilter          = 4
	DefaultConcatDelimiter = "_"
	DefaultNthDelimiter    = 1
)
