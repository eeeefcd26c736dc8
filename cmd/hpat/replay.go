package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agi-now/hpat/internal/replay"
)

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FIXTURE...",
		Short: "Check fixture files against their recorded expectations",
		Long: `Run every case of each fixture through its grammar and report cases
whose slots or extractions drifted. Exits non-zero when any case fails.

Example:
  hpat replay internal/replay/testdata/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				results := replay.Run(f, a.log)
				sum := replay.Summarize(results)
				failed += sum.Failed

				fmt.Fprintf(out, "%s: %s\n", path, f.Description)
				for _, r := range results {
					status := "PASS"
					if !r.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(out, "  %s  %-40s passes=%d\n", status, r.Name, r.Report.Passes)
					for _, m := range r.Mismatches {
						fmt.Fprintf(out, "        %s\n", m)
					}
				}
				fmt.Fprintf(out, "  %d/%d passed\n", sum.Passed, sum.Total)
				a.log.Debug("fixture replayed", zap.String("fixture", path), zap.Int("failed", sum.Failed))
			}
			if failed > 0 {
				return errors.Newf("%d case(s) failed", failed)
			}
			return nil
		},
	}
}
