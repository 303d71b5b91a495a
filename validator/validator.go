package validator

import (
	"fmt"

	"github.com/discophylo/disco/model"
)

// Severity tags the outcome of a single rule.
type Severity string

const (
	SeverityPass     Severity = "pass"
	SeverityAdvisory Severity = "advisory"
	SeverityFatal    Severity = "fatal"
)

// Finding is what a rule reports about a configuration.
type Finding struct {
	Rule     string
	Severity Severity
	Message  string
}

// UsageError is a fatal problem with the command line. Nothing is
// dispatched once one has been produced.
type UsageError struct {
	Flag    string
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// Usagef builds a UsageError for flag.
func Usagef(flag, format string, args ...any) *UsageError {
	return &UsageError{Flag: flag, Message: fmt.Sprintf(format, args...)}
}

// Rule checks one relationship between decomp fields. Apply receives the
// config produced by the rules before it and returns the (possibly
// normalized) config the next rule sees.
type Rule struct {
	Name  string
	Flag  string
	Apply func(cfg model.DecompConfig) (model.DecompConfig, Finding)
}

func pass(name string) Finding { return Finding{Rule: name, Severity: SeverityPass} }

// DecompRules are evaluated in order; the first fatal finding stops evaluation.
var DecompRules = []Rule{
	{
		Name: "nth-delimiter-requires-delimiter",
		Flag: "nth-delimiter",
		Apply: func(cfg model.DecompConfig) (model.DecompConfig, Finding) {
			if !cfg.HasDelimiter() && cfg.NthDelimiter != nil {
				return cfg, Finding{
					Rule:     "nth-delimiter-requires-delimiter",
					Severity: SeverityFatal,
					Message:  "cannot set nth-delimiter without a delimiter",
				}
			}
			return cfg, pass("nth-delimiter-requires-delimiter")
		},
	},
	{
		Name: "keep-labels-requires-delimiter",
		Flag: "keep-labels",
		Apply: func(cfg model.DecompConfig) (model.DecompConfig, Finding) {
			if !cfg.HasDelimiter() && cfg.KeepLabels {
				return cfg, Finding{
					Rule:     "keep-labels-requires-delimiter",
					Severity: SeverityFatal,
					Message:  "cannot keep labels without a delimiter",
				}
			}
			return cfg, pass("keep-labels-requires-delimiter")
		},
	},
	{
		Name: "nth-delimiter-default",
		Flag: "nth-delimiter",
		Apply: func(cfg model.DecompConfig) (model.DecompConfig, Finding) {
			if cfg.HasDelimiter() && cfg.NthDelimiter == nil {
				n := model.DefaultNthDelimiter
				cfg.NthDelimiter = &n
			}
			return cfg, pass("nth-delimiter-default")
		},
	},
	{
		Name: "exclusive-output-modes",
		Flag: "no-decomp",
		Apply: func(cfg model.DecompConfig) (model.DecompConfig, Finding) {
			if cfg.SingleTree && cfg.NoDecomp {
				return cfg, Finding{
					Rule:     "exclusive-output-modes",
					Severity: SeverityFatal,
					Message:  "cannot combine single-tree and no-decomp output modes",
				}
			}
			return cfg, pass("exclusive-output-modes")
		},
	},
	{
		Name: "in-paralogs-without-verbose",
		Flag: "remove_in_paralogs",
		Apply: func(cfg model.DecompConfig) (model.DecompConfig, Finding) {
			if cfg.RemoveInParalogs && !cfg.Verbose {
				return cfg, Finding{
					Rule:     "in-paralogs-without-verbose",
					Severity: SeverityAdvisory,
					Message: "--remove_in_paralogs is meaningless without --verbose, as it does not " +
						"change the optimal rooting. It may also slow the program.",
				}
			}
			return cfg, pass("in-paralogs-without-verbose")
		},
	},
}

// ValidateDecomp runs DecompRules against cfg. On success it returns the
// normalized config and any advisories. On the first fatal rule it returns
// a *UsageError and the advisories gathered so far are discarded.
func ValidateDecomp(cfg model.DecompConfig) (model.DecompConfig, []Finding, error) {
	var advisories []Finding
	for _, r := range DecompRules {
		next, f := r.Apply(cfg)
		switch f.Severity {
		case SeverityFatal:
			return cfg, nil, &UsageError{Flag: r.Flag, Message: f.Message}
		case SeverityAdvisory:
			advisories = append(advisories, f)
		}
		cfg = next
	}
	return cfg, advisories, nil
}

// ValidateConcat has no cross-field rules to apply.
func ValidateConcat(cfg model.ConcatConfig) (model.ConcatConfig, []Finding, error) {
	return cfg, nil, nil
}
