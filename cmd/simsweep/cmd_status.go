package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nvandessel/simsweep/internal/ledger"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <batch-dir>",
		Short: "Show the recorded outcome of every run in a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			failedOnly, _ := cmd.Flags().GetBool("failed")
			root, err := projectRoot(cmd)
			if err != nil {
				return err
			}
			dir := resolvePath(root, args[0])

			l, err := ledger.OpenExisting(dir)
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := cmd.Context()
			runs, err := l.Runs(ctx)
			if err != nil {
				return err
			}
			counts, err := l.Counts(ctx)
			if err != nil {
				return err
			}

			var shown []ledger.Run
			for _, r := range runs {
				if failedOnly && r.Status != ledger.StatusFailed {
					continue
				}
				shown = append(shown, r)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"batch_dir": dir,
					"counts":    counts,
					"runs":      shown,
				})
			}

			fmt.Fprintf(out, "%s: %d runs (%d ok, %d failed, %d running)\n", dir, len(runs),
				counts[ledger.StatusOK], counts[ledger.StatusFailed], counts[ledger.StatusRunning])
			for _, r := range shown {
				fmt.Fprintf(out, "  %5d  %-8s %s", r.Number, r.Status, r.Combination)
				if !r.FinishedAt.IsZero() {
					fmt.Fprintf(out, "  t=%g steps=%d (%s)", r.SimTime, r.Steps, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
				}
				fmt.Fprintln(out)
				if r.Error != "" {
					fmt.Fprintf(out, "         error: %s\n", r.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("failed", false, "Only show failed runs")
	return cmd
}
