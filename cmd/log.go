package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show a student's interaction log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetInt64("after")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.InteractionRepo().List(cmd.Context(), sid, store.QueryOpts{Limit: limit, After: after})
		if err != nil {
			return fmt.Errorf("query interactions: %w", err)
		}
		if len(rows) == 0 {
			fmt.Printf("No interactions recorded for %s.\n", sid)
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-16s  %-18s  %-14s  %-18s  %s\n",
			"Seq", "Timestamp", "Kind", "Concept", "Agent", "Outcome", "Detail")
		fmt.Println(strings.Repeat("─", 120))
		for _, r := range rows {
			fmt.Printf("%-6d  %-19s  %-16s  %-18s  %-14s  %-18s  %s\n",
				r.Sequence,
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(r.Kind, 16),
				truncate(r.ConceptID, 18),
				truncate(r.Agent, 14),
				truncate(r.Outcome, 18),
				truncate(oneLine(r.Detail), 40),
			)
		}
		return nil
	},
}

func init() {
	studentFlag(logCmd)
	logCmd.Flags().IntP("limit", "n", 50, "Number of interactions to show")
	logCmd.Flags().Int64("after", 0, "Only show interactions after this sequence number")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
