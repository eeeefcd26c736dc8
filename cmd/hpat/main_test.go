package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/hierarchy"
)

const pairGrammar = `
rules:
  - concept: Pair
    elements:
      - concept: Character
        capture: first
      - concept: Character
        capture: second
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run executes the CLI against a database inside dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--log-level", "error", "--db", filepath.Join(dir, "runs.db")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtractJSON(t *testing.T) {
	dir := t.TempDir()
	grammar := writeFile(t, dir, "g.yaml", pairGrammar)

	out, err := run(t, dir, "extract", "-g", grammar, "--json", "ab")
	require.NoError(t, err)

	var results []extractResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Report.Passes)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, "Pair", results[0].Matches[0].Concept)
	assert.Equal(t, []string{"a"}, results[0].Extractions["first"])
}

func TestExtractTextAndStats(t *testing.T) {
	dir := t.TempDir()
	grammar := writeFile(t, dir, "g.yaml", pairGrammar)

	out, err := run(t, dir, "extract", "-g", grammar, "--stats", "ab", "xyz")
	require.NoError(t, err)
	assert.Contains(t, out, `input: "ab"`)
	assert.Contains(t, out, `<Pair "xy" [2]>`)
	assert.Contains(t, out, "first = a")
	assert.Contains(t, out, "hpat_extract_matches_inserted_total 3")
}

func TestExtractRequiresGrammar(t *testing.T) {
	_, err := run(t, t.TempDir(), "extract", "ab")
	require.Error(t, err)
}

func TestExtractSaveThenInspect(t *testing.T) {
	dir := t.TempDir()
	grammar := writeFile(t, dir, "g.yaml", pairGrammar)

	out, err := run(t, dir, "extract", "-g", grammar, "--save", "--json", "ab")
	require.NoError(t, err)
	var results []extractResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	runID := results[0].RunID
	require.NotEmpty(t, runID)

	list, err := run(t, dir, "inspect", "--last", "5")
	require.NoError(t, err)
	assert.Contains(t, list, shortID(runID))
	assert.Contains(t, list, `"ab"`)

	detail, err := run(t, dir, "inspect", "--run", runID, "--json")
	require.NoError(t, err)
	var d detailOutput
	require.NoError(t, json.Unmarshal([]byte(detail), &d))
	assert.Equal(t, "ok", d.Run.Status)
	assert.Len(t, d.Matches, 3)

	_, err = run(t, dir, "inspect", "--run", "missing")
	require.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "replay", filepath.Join("..", "..", "internal", "replay", "testdata", "pairs.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "3/3 passed")
}

func TestReplayCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	fixture := writeFile(t, dir, "f.yaml", `
description: drifted
grammar:`+indent(pairGrammar)+`
cases:
  - input: ab
    expect:
      slots:
        Pair: [[1, 2]]
`)
	out, err := run(t, dir, "replay", fixture)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL")
}

func indent(s string) string {
	var b bytes.Buffer
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		if len(line) > 0 {
			b.WriteString("  ")
			b.Write(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestHierarchyLoadFeedsExtract(t *testing.T) {
	dir := t.TempDir()
	hfile := writeFile(t, dir, "h.yaml", "children:\n  Unit: [Pair]\n")
	grammar := writeFile(t, dir, "g.yaml", pairGrammar+`
  - concept: Wrapped
    elements:
      - concept: Unit
`)

	out, err := run(t, dir, "hierarchy", "load", "-f", hfile)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 edges")

	t.Setenv("HPAT_HIERARCHY_DB", "true")
	out, err = run(t, dir, "extract", "-g", grammar, "--json", "ab")
	require.NoError(t, err)

	var results []extractResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	var concepts []string
	for _, m := range results[0].Matches {
		concepts = append(concepts, m.Concept)
	}
	assert.ElementsMatch(t, []string{"Pair", "Wrapped"}, concepts)
}

func TestServeStopsOnCancel(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	h := hierarchy.NewStatic(map[string][]string{"Animal": {"Cat"}})
	go func() { done <- serve(ctx, lis, h, zap.NewNop()) }()

	client, err := hierarchy.Dial(lis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	parents, err := client.Parents(callCtx, "Cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal"}, parents)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
