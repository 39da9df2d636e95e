package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect language model calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	Long: "List recent model calls, newest first. With --turn, list every call made " +
		"while answering that turn, oldest first, with a total.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		tier, _ := cmd.Flags().GetString("tier")
		turn, _ := cmd.Flags().GetString("turn")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		repo := s.EventRepo()
		var events []store.LLMRequestEvent
		if turn != "" {
			events, err = repo.LLMEventsForTurn(cmd.Context(), turn)
		} else {
			q := store.QueryOpts{Limit: limit}
			if purpose != "" || tier != "" {
				q.Limit = 0
			}
			events, err = repo.QueryLLMEvents(cmd.Context(), q)
		}
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		events = filterEvents(events, purpose, tier, limit)
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No model calls found.")
			return nil
		}
		printEventTable(w, events, turn != "")
		return nil
	},
}

// filterEvents keeps events matching purpose and tier, up to limit.
// Empty filters and a zero limit match everything.
func filterEvents(events []store.LLMRequestEvent, purpose, tier string, limit int) []store.LLMRequestEvent {
	out := events[:0:0]
	for _, e := range events {
		if purpose != "" && e.Purpose != purpose {
			continue
		}
		if tier != "" && e.Tier != tier {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out
}

func printEventTable(w io.Writer, events []store.LLMRequestEvent, withTotal bool) {
	rule := strings.Repeat("─", 120)
	fmt.Fprintf(w, "%-5s  %-19s  %-16s  %-9s  %-28s  %6s  %6s  %6s  %7s  %s\n",
		"ID", "Timestamp", "Purpose", "Tier", "Model", "In", "Cached", "Out", "Ms", "OK")
	fmt.Fprintln(w, rule)

	var in, cached, out int
	var ms int64
	for _, e := range events {
		fmt.Fprintf(w, "%-5d  %-19s  %-16s  %-9s  %-28s  %6d  %6d  %6d  %7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.Purpose, 16),
			e.Tier,
			truncate(e.Model, 28),
			e.InputTokens, e.CachedTokens, e.OutputTokens, e.LatencyMs,
			okMark(e.Success))
		in, cached, out, ms = in+e.InputTokens, cached+e.CachedTokens, out+e.OutputTokens, ms+e.LatencyMs
	}
	if withTotal {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%-5s  %-19s  %-16s  %-9s  %-28s  %6d  %6d  %6d  %7d\n",
			"TOTAL", "", strconv.Itoa(len(events))+" calls", "", "", in, cached, out, ms)
	}
}

func okMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one model call",
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
		printEvent(cmd.OutOrStdout(), e)
		return nil
	},
}

func printEvent(w io.Writer, e *store.LLMRequestEvent) {
	fmt.Fprintf(w, "ID:        %d\n", e.ID)
	fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	if e.TurnID != "" {
		fmt.Fprintf(w, "Turn:      %s\n", e.TurnID)
	}
	fmt.Fprintf(w, "Route:     %s / %s (%s tier)\n", e.Provider, e.Model, e.Tier)
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	fmt.Fprintf(w, "Tokens:    %d in (%d cached) / %d out\n", e.InputTokens, e.CachedTokens, e.OutputTokens)
	fmt.Fprintf(w, "Latency:   %dms\n", e.LatencyMs)
	if e.Success {
		fmt.Fprintln(w, "Result:    ok")
	} else {
		fmt.Fprintf(w, "Result:    failed: %s\n", e.ErrorMessage)
	}

	sep := strings.Repeat("─", 60)
	for _, part := range []struct{ title, body string }{
		{"REQUEST", e.RequestBody},
		{"RESPONSE", e.ResponseBody},
	} {
		fmt.Fprintf(w, "\n%s\n%s\n%s\n", sep, part.title, sep)
		if part.body == "" {
			fmt.Fprintln(w, "(not captured)")
			continue
		}
		fmt.Fprintln(w, part.body)
	}
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage by purpose and estimated cost by model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		repo := s.EventRepo()
		byPurpose, err := repo.LLMUsageByPurpose(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(w, "No model usage recorded yet.")
			return nil
		}
		byModel, err := repo.LLMUsageByModel(cmd.Context())
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printUsage(w, byPurpose)
		printCost(w, byModel)
		return nil
	},
}

func printUsage(w io.Writer, rows []store.LLMUsageByPurpose) {
	rule := strings.Repeat("─", 72)
	fmt.Fprintf(w, "Usage by purpose\n%s\n", rule)
	fmt.Fprintf(w, "%-16s  %6s  %10s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
	fmt.Fprintln(w, rule)

	var calls, in, out int
	for _, u := range rows {
		fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
			truncate(u.Purpose, 16), u.Calls, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		calls, in, out = calls+u.Calls, in+u.InputTokens, out+u.OutputTokens
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, out, in+out)
}

// printCost estimates spend per model. Models without a price are listed
// and left out of the total.
func printCost(w io.Writer, rows []store.LLMUsageByModel) {
	if len(rows) == 0 {
		return
	}
	rule := strings.Repeat("─", 72)
	fmt.Fprintf(w, "\nEstimated cost (USD)\n%s\n", rule)
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Fprintln(w, rule)

	var total float64
	var unpriced []string
	for _, u := range rows {
		cost := "?"
		if price := llm.LookupCost(u.Model); price != nil {
			c := price.Cost(u.InputTokens, u.OutputTokens)
			total += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, u.Model)
		}
		fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n", truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
	}
	fmt.Fprintln(w, rule)
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo price known for: %s\n", strings.Join(unpriced, ", "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show (0 for all)")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only calls with this purpose (e.g. reasoning, explainer, grader)")
	llmListCmd.Flags().String("tier", "", "Only calls routed to this tier")
	llmListCmd.Flags().String("turn", "", "Only calls made while answering this turn ID")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
