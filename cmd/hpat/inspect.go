package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/agi-now/hpat/internal/logging"
	"github.com/agi-now/hpat/internal/store"
)

// #region command
func newInspectCmd(a *app) *cobra.Command {
	var (
		last    int
		runID   string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show persisted extraction runs",
		Long: `List the most recent runs of the run database, or show every match of
one run with its dependencies.

Examples:
  hpat inspect --last 5
  hpat inspect --run 3f1c... --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				return runDetailMode(out, st, runID, jsonOut)
			}
			return runListMode(out, st, last, jsonOut)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	cmd.Flags().StringVar(&runID, "run", "", "show single run detail")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region list-mode
func runListMode(w io.Writer, st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-12s  %6s  %8s  %7s  %7s  %s\n",
		"Run", "Status", "Passes", "Inserted", "Revoked", "Matches", "Input")
	fmt.Fprintf(w, "%-12s+-%-12s+-%6s+-%8s+-%7s+-%7s+-%s\n",
		"------------", "------------", "------", "--------", "-------", "-------", "--------------------")
	for _, r := range runs {
		fmt.Fprintf(w, "%-12s  %-12s  %6d  %8d  %7d  %7d  %q\n",
			shortID(r.RunID), r.Status, r.Passes, r.Inserted, r.Revoked, r.MatchCount, r.Input)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode
type detailOutput struct {
	Run     logging.RunEntry    `json:"run"`
	Matches []store.MatchRecord `json:"matches"`
}

func runDetailMode(w io.Writer, st *store.Store, runID string, jsonOut bool) error {
	run, err := st.Run(runID)
	if err != nil {
		return err
	}
	recs, err := st.RunMatches(runID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, detailOutput{Run: run, Matches: recs})
	}

	fmt.Fprintf(w, "Run:      %s\n", run.RunID)
	fmt.Fprintf(w, "Input:    %q\n", run.Input)
	fmt.Fprintf(w, "Status:   %s\n", run.Status)
	fmt.Fprintf(w, "Passes:   %d (inserted %d, revoked %d)\n", run.Passes, run.Inserted, run.Revoked)
	fmt.Fprintf(w, "Created:  %s\n", run.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if run.Detail != "" {
		fmt.Fprintf(w, "Duration: %s\n", run.Detail)
	}

	fmt.Fprintf(w, "\nMatches:\n")
	for _, r := range recs {
		fmt.Fprintf(w, "  %-8s  %-16s  (%d,%d)  %-9s  %3.0f%%  %q\n",
			shortID(r.ID), r.Concept, r.Start, r.End(), r.Kind, r.Weight*100, r.Value)
		for _, dep := range r.DependsOn {
			fmt.Fprintf(w, "            <- %s\n", shortID(dep))
		}
	}
	return nil
}

// #endregion detail-mode

// #region output
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal json")
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
