package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/discophylo/disco/dispatch"
	"github.com/discophylo/disco/model"
	"github.com/discophylo/disco/pipeline"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	decomps []model.DecompConfig
	concats []model.ConcatConfig
	err     error
}

func (r *recorder) Decompose(_ context.Context, cfg model.DecompConfig) error {
	r.decomps = append(r.decomps, cfg)
	return r.err
}

func (r *recorder) Concatenate(_ context.Context, cfg model.ConcatConfig) error {
	r.concats = append(r.concats, cfg)
	return r.err
}

type result struct {
	code   int
	stdout string
	stderr string
	state  dispatch.State
}

func run(t *testing.T, rec *recorder, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := New(Options{
		Version:      "test",
		Decomposer:   rec,
		Concatenator: rec,
		Stdout:       &stdout,
		Stderr:       &stderr,
	})
	code := a.Run(context.Background(), append([]string{"disco"}, args...))
	return result{code: code, stdout: stdout.String(), stderr: stderr.String(), state: a.State()}
}

// assertSameArgs compares configs through their canonical argument vectors
// and reports a unified diff on mismatch.
func assertSameArgs(t *testing.T, want, got []string) {
	t.Helper()
	if strings.Join(want, "\n") == strings.Join(got, "\n") {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        want,
		B:        got,
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("configuration mismatch:\n%s", diff)
}

func TestScenarioDecompDefaults(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "-i", "genes.tre")

	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Len(t, rec.decomps, 1)
	assert.Empty(t, rec.concats)
	assert.Equal(t, dispatch.Dispatched, res.state)

	cfg := rec.decomps[0]
	assert.Nil(t, cfg.NthDelimiter)
	assert.Nil(t, cfg.Delimiter)
	assert.Equal(t, model.DecompConfig{Input: "genes.tre", Minimum: 4}, cfg)
}

func TestScenarioDecompKeepLabels(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "-i", "genes.tre", "-d", "_", "--keep-labels")

	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Len(t, rec.decomps, 1)
	cfg := rec.decomps[0]
	require.NotNil(t, cfg.NthDelimiter)
	assert.Equal(t, 1, *cfg.NthDelimiter)
	assert.True(t, cfg.KeepLabels)
}

func TestScenarioNthDelimiterWithoutDelimiter(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "-i", "genes.tre", "-n", "2")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "cannot set nth-delimiter without a delimiter")
	assert.Empty(t, rec.decomps)
	assert.Equal(t, dispatch.Rejected, res.state)
}

func TestScenarioExclusiveOutputModes(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "-i", "genes.tre", "--single_tree", "--no-decomp")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "cannot combine single-tree and no-decomp")
	assert.Empty(t, rec.decomps)
	assert.Equal(t, dispatch.Rejected, res.state)
}

func TestScenarioConcatDefaults(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "concat", "-i", "genes.tre", "-o", "out", "-a", "aln.list", "-f", "fasta")

	require.Equal(t, ExitOK, res.code, res.stderr)
	require.Len(t, rec.concats, 1)
	assert.Empty(t, rec.decomps)
	assert.Equal(t, model.ConcatConfig{
		Input:        "genes.tre",
		OutputPrefix: "out",
		Alignment:    "aln.list",
		Format:       model.FormatFasta,
		Delimiter:    "_",
		Filter:       4,
	}, rec.concats[0])
}

func TestKeepLabelsWithoutDelimiter(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "-i", "genes.tre", "--keep-labels")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "cannot keep labels without a delimiter")
	assert.Empty(t, rec.decomps)
}

func TestRemoveInParalogsAdvisory(t *testing.T) {
	t.Run("warns and still dispatches", func(t *testing.T) {
		rec := &recorder{}
		res := run(t, rec, "decomp", "-i", "genes.tre", "--remove_in_paralogs")

		require.Equal(t, ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stderr, "level=warning")
		assert.Contains(t, res.stderr, "meaningless without --verbose")
		require.Len(t, rec.decomps, 1)
		assert.True(t, rec.decomps[0].RemoveInParalogs)
		assert.False(t, rec.decomps[0].Verbose)
		assert.Empty(t, res.stdout)
	})

	t.Run("quiet with verbose", func(t *testing.T) {
		rec := &recorder{}
		res := run(t, rec, "decomp", "-i", "genes.tre", "--remove_in_paralogs", "-v")

		require.Equal(t, ExitOK, res.code, res.stderr)
		assert.NotContains(t, res.stderr, "meaningless")
		require.Len(t, rec.decomps, 1)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("decomp", func(t *testing.T) {
		rec := &recorder{}
		res := run(t, rec, "decomp",
			"-i", "genes.tre", "-o", "out.tre", "-d", "|", "-n", "2", "-m", "7",
			"-v", "--keep-labels", "--no-decomp", "--outgroups", "--remove_in_paralogs")
		require.Equal(t, ExitOK, res.code, res.stderr)
		require.Len(t, rec.decomps, 1)

		assertSameArgs(t, []string{
			"decomp",
			"--input=genes.tre",
			"--output=out.tre",
			"--delimiter=|",
			"--nth-delimiter=2",
			"--minimum=7",
			"--verbose",
			"--keep-labels",
			"--no-decomp",
			"--outgroups",
			"--remove_in_paralogs",
		}, pipeline.DecompArgs(rec.decomps[0]))
	})

	t.Run("concat", func(t *testing.T) {
		rec := &recorder{}
		res := run(t, rec, "concat",
			"--input", "genes.tre", "--output-prefix", "run", "--alignment", "aln.list",
			"--format", "phylip", "--delimiter", ".", "--filter", "10", "--partition")
		require.Equal(t, ExitOK, res.code, res.stderr)
		require.Len(t, rec.concats, 1)

		assertSameArgs(t, []string{
			"concat",
			"--input=genes.tre",
			"--output-prefix=run",
			"--alignment=aln.list",
			"--format=phylip",
			"--delimiter=.",
			"--filter=10",
			"--partition",
		}, pipeline.ConcatArgs(rec.concats[0]))
	})
}

func TestSchemaFailures(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing input", []string{"decomp", "-d", "_"}, "input"},
		{"missing format", []string{"concat", "-i", "g", "-o", "o", "-a", "a"}, "format"},
		{"bad format", []string{"concat", "-i", "g", "-o", "o", "-a", "a", "-f", "nexus"}, "nexus"},
		{"bad integer", []string{"decomp", "-i", "g", "-m", "many"}, "many"},
		{"stray positional", []string{"decomp", "-i", "genes.tre", "stray"}, "unrecognized arguments: stray"},
		{"stray concat positional", []string{"concat", "-i", "g", "-o", "o", "-a", "a", "-f", "fasta", "x"}, "unrecognized arguments: x"},
		{"no subcommand", nil, "required"},
		{"unknown subcommand", []string{"recombine"}, "invalid choice"},
		{"bad log level", []string{"--log-level", "loud", "decomp", "-i", "g"}, "log-level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			res := run(t, rec, tc.args...)

			assert.Equal(t, ExitUsage, res.code)
			assert.Contains(t, res.stderr, tc.want)
			assert.Empty(t, rec.decomps)
			assert.Empty(t, rec.concats)
			assert.Equal(t, dispatch.Rejected, res.state)
		})
	}
}

type exitCoded struct{ code int }

func (e exitCoded) Error() string { return "pipeline failed" }
func (e exitCoded) ExitCode() int { return e.code }

func TestPipelineErrors(t *testing.T) {
	t.Run("exit code is kept", func(t *testing.T) {
		rec := &recorder{err: exitCoded{code: 3}}
		res := run(t, rec, "decomp", "-i", "genes.tre")

		assert.Equal(t, 3, res.code)
		assert.Equal(t, dispatch.Dispatched, res.state)
	})

	t.Run("plain errors exit 1", func(t *testing.T) {
		rec := &recorder{err: errors.New("genes.tre: no such file")}
		res := run(t, rec, "concat", "-i", "genes.tre", "-o", "out", "-a", "aln.list", "-f", "fasta")

		assert.Equal(t, ExitFailure, res.code)
		assert.Contains(t, res.stderr, "genes.tre: no such file")
		assert.NotContains(t, res.stderr, "error:")
	})
}

func TestSettingsFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("values fill unset flags", func(t *testing.T) {
		path := filepath.Join(dir, "disco.toml")
		require.NoError(t, os.WriteFile(path, []byte("[decomp]\ndelimiter = \"_\"\nminimum = 6\n"), 0o600))

		rec := &recorder{}
		res := run(t, rec, "--config", path, "decomp", "-i", "genes.tre")
		require.Equal(t, ExitOK, res.code, res.stderr)
		require.Len(t, rec.decomps, 1)
		assert.Equal(t, 6, rec.decomps[0].Minimum)
		require.NotNil(t, rec.decomps[0].NthDelimiter)
		assert.Equal(t, 1, *rec.decomps[0].NthDelimiter)
	})

	t.Run("settings take part in cross-flag rules", func(t *testing.T) {
		path := filepath.Join(dir, "modes.yaml")
		require.NoError(t, os.WriteFile(path, []byte("decomp:\n  single_tree: true\n"), 0o600))

		rec := &recorder{}
		res := run(t, rec, "--config", path, "decomp", "-i", "genes.tre", "--no-decomp")
		assert.Equal(t, ExitUsage, res.code)
		assert.Empty(t, rec.decomps)
	})

	t.Run("unreadable settings are a usage error", func(t *testing.T) {
		rec := &recorder{}
		res := run(t, rec, "--config", filepath.Join(dir, "missing.toml"), "decomp", "-i", "genes.tre")
		assert.Equal(t, ExitUsage, res.code)
		assert.Contains(t, res.stderr, "read settings")
		assert.Empty(t, rec.decomps)
	})
}

func TestDebugLogging(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "--log-level", "debug", "decomp", "-i", "genes.tre", "-d", "_")

	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "configuration validated")
	assert.Contains(t, res.stderr, "--nth-delimiter=1")
}

func TestHelp(t *testing.T) {
	rec := &recorder{}
	res := run(t, rec, "decomp", "--help")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "remove_in_paralogs")
	assert.Empty(t, rec.decomps)
}

func TestLogLevelResetsBetweenRuns(t *testing.T) {
	rec := &recorder{}
	var stderr bytes.Buffer
	a := New(Options{Decomposer: rec, Concatenator: rec, Stdout: &bytes.Buffer{}, Stderr: &stderr})

	code := a.Run(context.Background(), []string{"disco", "--log-level", "debug", "decomp", "-i", "genes.tre"})
	require.Equal(t, ExitOK, code, stderr.String())
	assert.Equal(t, logrus.DebugLevel, a.log.GetLevel())

	missing := filepath.Join(t.TempDir(), "missing.toml")
	code = a.Run(context.Background(), []string{"disco", "--config", missing, "decomp", "-i", "genes.tre"})
	assert.Equal(t, ExitUsage, code)
	assert.Equal(t, logrus.InfoLevel, a.log.GetLevel())
	assert.Equal(t, dispatch.Rejected, a.State())
	assert.Len(t, rec.decomps, 1)
}
