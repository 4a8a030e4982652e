package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.RunRepo().List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "No generation runs recorded yet.")
			return nil
		}

		t := newTable(w, "Run", "Started", "Kind", "Source", "Model", "Chunks", "gen/req", "Failed", "Status", "Took")
		for _, r := range runs {
			took := "-"
			if r.FinishedAt != nil {
				took = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			t.row(shortID(r.ID), localTime(r.StartedAt), r.Source, truncate(r.SourceRef, 32), truncate(r.Model, 24),
				itoa(r.Chunks), fmt.Sprintf("%d/%d", r.Generated, r.Requested), itoa(r.FailedChunks), string(r.Status), took)
		}
		if err := t.flush(); err != nil {
			return err
		}
		for _, r := range runs {
			if r.ErrorMessage != "" {
				fmt.Fprintf(w, "%s: %s\n", shortID(r.ID), r.ErrorMessage)
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 for all)")
}
