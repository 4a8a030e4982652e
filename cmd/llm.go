package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abhisek/findata/internal/llm"
	"github.com/abhisek/findata/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the audit log of LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts store.QueryOpts
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.RunID, _ = cmd.Flags().GetString("run")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No LLM calls found.")
			return nil
		}

		t := newTable(w, "ID", "Time", "Purpose", "Run", "Model", "In", "Out", "Ms", "OK")
		for _, e := range events {
			t.row(itoa(e.ID), localTime(e.Timestamp), e.Purpose, shortID(e.RunID), truncate(e.Model, 32),
				itoa(e.InputTokens), itoa(e.OutputTokens), fmt.Sprint(e.LatencyMs), mark(e.Success))
		}
		return t.flush()
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print one LLM request with its prompt and reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		w := cmd.OutOrStdout()
		fields := [][2]string{
			{"ID", itoa(e.ID)},
			{"Time", localTime(e.Timestamp)},
			{"Provider", e.Provider},
			{"Model", e.Model},
			{"Purpose", e.Purpose},
			{"Run", e.RunID},
			{"Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
			{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
			{"Success", strconv.FormatBool(e.Success)},
			{"Error", e.ErrorMessage},
		}
		for _, f := range fields {
			if f[1] != "" {
				fmt.Fprintf(w, "%-10s %s\n", f[0]+":", f[1])
			}
		}
		fmt.Fprintln(w)
		printBlock(w, "REQUEST", e.RequestBody)
		printBlock(w, "RESPONSE", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(w, "No LLM usage recorded yet.")
			return nil
		}

		fmt.Fprintln(w, "Usage by purpose")
		t := newTable(w, "Purpose", "Calls", "Failed", "Input", "Output", "Total", "Avg ms")
		var sum store.PurposeUsage
		for _, u := range byPurpose {
			t.row(u.Purpose, itoa(u.Calls), itoa(u.Failures), itoa(u.InputTokens), itoa(u.OutputTokens),
				itoa(u.InputTokens+u.OutputTokens), fmt.Sprint(u.AvgLatencyMs))
			sum.Calls += u.Calls
			sum.Failures += u.Failures
			sum.InputTokens += u.InputTokens
			sum.OutputTokens += u.OutputTokens
		}
		t.row("TOTAL", itoa(sum.Calls), itoa(sum.Failures), itoa(sum.InputTokens), itoa(sum.OutputTokens),
			itoa(sum.InputTokens+sum.OutputTokens), "")
		if err := t.flush(); err != nil {
			return err
		}

		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}
		if len(byModel) == 0 {
			return nil
		}

		fmt.Fprintln(w, "\nEstimated cost (USD)")
		t = newTable(w, "Model", "Calls", "Input", "Output", "Cost")
		var total float64
		var unpriced []string
		for _, u := range byModel {
			cost := "?"
			if c := llm.LookupCost(u.Model); c != nil {
				usd := c.Cost(u.InputTokens, u.OutputTokens)
				total += usd
				cost = formatCost(usd)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			t.row(u.Model, itoa(u.Calls), itoa(u.InputTokens), itoa(u.OutputTokens), cost)
		}
		label := "TOTAL"
		if len(unpriced) > 0 {
			label = "TOTAL (partial)"
		}
		t.row(label, "", "", "", formatCost(total))
		if err := t.flush(); err != nil {
			return err
		}
		if len(unpriced) > 0 {
			fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
		}
		return nil
	},
}

func printBlock(w io.Writer, title, body string) {
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintf(w, "── %s ──\n%s\n", title, body)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only calls with this purpose, e.g. dataset-gen")
	llmListCmd.Flags().String("run", "", "Only calls made by this generation run")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
