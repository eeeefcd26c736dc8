// Package replay runs fixture files through the extraction engine and
// reports where the results drift from the recorded expectations.
package replay

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/extract"
	"github.com/agi-now/hpat/internal/hierarchy"
	"github.com/agi-now/hpat/internal/sequence"
)

// #region types
// Result captures the outcome of one case.
type Result struct {
	Name       string
	Input      string
	Passed     bool
	Mismatches []string
	Report     extract.Report
	Err        error
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// #endregion types

// #region replay
// Run applies the fixture grammar to every case in order. Each case gets a
// fresh sequence; the engine is shared.
func Run(f *Fixture, log *zap.Logger) []Result {
	if log == nil {
		log = zap.NewNop()
	}
	maxPasses := f.Config.MaxPasses
	if maxPasses == 0 {
		maxPasses = extract.DefaultOptions().MaxPasses
	}
	h := f.Grammar.Provider()
	engine := extract.NewEngine(f.Grammar.Patterns(), h, extract.Options{
		MaxPasses:      maxPasses,
		SingleConcepts: f.Grammar.Single,
		Logger:         log,
	})

	results := make([]Result, 0, len(f.Cases))
	for i, c := range f.Cases {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("case-%d", i+1)
		}
		res := Result{Name: name, Input: c.Input}

		seq := sequence.FromString(c.Input)
		if c.Tokens {
			seq = sequence.FromTokens(strings.Fields(c.Input))
		}

		res.Report, res.Err = engine.Apply(seq)
		switch {
		case c.Expect.Error == "no_fixpoint":
			if !errors.Is(res.Err, extract.ErrNoFixpoint) {
				res.Mismatches = append(res.Mismatches, fmt.Sprintf("expected no_fixpoint, got %v", res.Err))
			}
		case res.Err != nil:
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("apply: %v", res.Err))
		default:
			res.Mismatches = append(res.Mismatches, compare(seq, h, c.Expect)...)
		}

		res.Passed = len(res.Mismatches) == 0
		log.Debug("replay case", zap.String("case", name), zap.Bool("passed", res.Passed))
		results = append(results, res)
	}
	return results
}

// compare lists every difference between seq and exp, in sorted key order.
func compare(seq *sequence.Sequence, h hierarchy.Provider, exp Expect) []string {
	var out []string

	concepts := make([]string, 0, len(exp.Slots))
	for c := range exp.Slots {
		concepts = append(concepts, c)
	}
	slices.Sort(concepts)
	for _, concept := range concepts {
		var got [][2]int
		for _, s := range seq.Slots(concept, h) {
			got = append(got, [2]int{s.Start, s.End})
		}
		want := slices.Clone(exp.Slots[concept])
		sortSpans(got)
		sortSpans(want)
		if !slices.Equal(got, want) {
			out = append(out, fmt.Sprintf("slots %s: expected %v, got %v", concept, want, got))
		}
	}

	keys := make([]string, 0, len(exp.Extractions))
	for k := range exp.Extractions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		got, err := seq.Extract(key)
		if err != nil {
			out = append(out, fmt.Sprintf("extract %s: %v", key, err))
			continue
		}
		if want := exp.Extractions[key]; !slices.Equal(got, want) {
			out = append(out, fmt.Sprintf("extract %s: expected %q, got %q", key, want, got))
		}
	}
	return out
}

func sortSpans(spans [][2]int) {
	slices.SortFunc(spans, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// #endregion replay
