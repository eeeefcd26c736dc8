package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/extract"
	"github.com/agi-now/hpat/internal/logging"
	"github.com/agi-now/hpat/internal/match"
	"github.com/agi-now/hpat/internal/metrics"
	"github.com/agi-now/hpat/internal/rule"
	"github.com/agi-now/hpat/internal/sequence"
	"github.com/agi-now/hpat/internal/store"
)

type extractFlags struct {
	grammar string
	jsonOut bool
	save    bool
	tokens  bool
	stats   bool
}

// #region output
type extractResult struct {
	RunID       string         `json:"run_id,omitempty"`
	Input       string         `json:"input"`
	Report      extract.Report `json:"report"`
	Matches     []matchView    `json:"matches"`
	Extractions match.Captures `json:"extractions"`
}

type matchView struct {
	ID        string           `json:"id"`
	Concept   string           `json:"concept"`
	Value     string           `json:"value"`
	Start     int              `json:"start"`
	End       int              `json:"end"`
	Kind      string           `json:"kind"`
	Weight    float64          `json:"weight"`
	DependsOn []string         `json:"depends_on,omitempty"`
	Structure *match.Structure `json:"structure,omitempty"`
}

func viewMatches(seq *sequence.Sequence) []matchView {
	var out []matchView
	for _, m := range seq.Matches() {
		if m.Concept == seq.AtomicConcept() {
			continue
		}
		out = append(out, matchView{
			ID:        m.ID,
			Concept:   m.Concept,
			Value:     m.Value,
			Start:     m.Start,
			End:       m.End(),
			Kind:      m.Kind.String(),
			Weight:    m.Weight,
			DependsOn: m.DependsOn,
			Structure: m.Structure,
		})
	}
	return out
}

// #endregion output

// #region command
func newExtractCmd(a *app) *cobra.Command {
	f := &extractFlags{}
	cmd := &cobra.Command{
		Use:   "extract TEXT...",
		Short: "Run a grammar over one or more inputs",
		Long: `Run a grammar over each TEXT until no rule adds a new match. Inputs are
processed concurrently with engine.workers workers.

Examples:
  hpat extract -g grammar.yaml ab
  hpat extract -g grammar.yaml --tokens --json "hello bob"
  hpat extract -g grammar.yaml --save "hi ann" "hello bob"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.grammar, "grammar", "g", "", "grammar YAML file (default: grammar.file)")
	fl.BoolVar(&f.jsonOut, "json", false, "output as JSON instead of text")
	fl.BoolVar(&f.save, "save", false, "persist runs to the run database")
	fl.BoolVar(&f.tokens, "tokens", false, "split inputs on whitespace instead of per character")
	fl.BoolVar(&f.stats, "stats", false, "print engine counters after the runs")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, f *extractFlags, inputs []string) error {
	path := f.grammar
	if path == "" {
		path = a.cfg.Grammar.File
	}
	if path == "" {
		return errors.New("no grammar: pass -g or set grammar.file")
	}
	g, err := rule.Load(path)
	if err != nil {
		return err
	}
	h, err := a.resolveHierarchy(cmd.Context(), g.Provider())
	if err != nil {
		return err
	}

	single := a.cfg.Engine.SingleConcepts
	if len(single) == 0 {
		single = g.Single
	}
	reg := prometheus.NewRegistry()
	engine := extract.NewEngine(g.Patterns(), h, extract.Options{
		MaxPasses:      a.cfg.Engine.MaxPasses,
		SingleConcepts: single,
		Logger:         a.log,
		Metrics:        metrics.New(reg),
	})

	seqs := make([]*sequence.Sequence, len(inputs))
	for i, in := range inputs {
		if f.tokens {
			seqs[i] = sequence.FromTokens(strings.Fields(in))
		} else {
			seqs[i] = sequence.FromString(in)
		}
	}

	reports, runErr := engine.ApplyAll(cmd.Context(), seqs, a.cfg.Engine.Workers)

	results := make([]extractResult, len(inputs))
	for i, seq := range seqs {
		res := extractResult{Input: inputs[i], Report: reports[i], Matches: viewMatches(seq)}
		if seq.Consolidated() {
			res.Extractions, _ = seq.Extractions()
		}
		results[i] = res
	}

	if f.save {
		if err := a.saveRuns(results, seqs); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return errors.Wrap(err, "encode results")
		}
	} else {
		for i, res := range results {
			printExtractText(out, res, seqs[i])
		}
	}
	if f.stats {
		if err := printStats(out, reg); err != nil {
			return err
		}
	}
	return runErr
}

func (a *app) saveRuns(results []extractResult, seqs []*sequence.Sequence) error {
	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	for i := range results {
		results[i].RunID = uuid.New().String()
		if err := st.SaveRun(results[i].RunID, results[i].Input, seqs[i], results[i].Report); err != nil {
			return err
		}
		a.log.Info("run saved",
			zap.String(logging.FieldRunID, results[i].RunID),
			zap.String("db", a.cfg.Store.Path),
		)
	}
	return nil
}

// #endregion command

// #region text-output
func printExtractText(w io.Writer, res extractResult, seq *sequence.Sequence) {
	fmt.Fprintf(w, "input: %q  passes=%d inserted=%d revoked=%d\n",
		res.Input, res.Report.Passes, res.Report.Inserted, res.Report.Revoked)
	if res.RunID != "" {
		fmt.Fprintf(w, "run:   %s\n", res.RunID)
	}
	fmt.Fprint(w, seq.Format(seq.AtomicConcept()))
	for _, key := range res.Extractions.Keys() {
		fmt.Fprintf(w, "  %s = %s\n", key, strings.Join(res.Extractions[key], ", "))
	}
	fmt.Fprintln(w)
}

// printStats prints every counter the engine registered.
func printStats(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				label := ""
				for _, lp := range m.GetLabel() {
					label += fmt.Sprintf("{%s=%s}", lp.GetName(), lp.GetValue())
				}
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), label, c.GetValue())
			}
		}
	}
	return nil
}

// #endregion text-output
