package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Suggest concepts a student should revisit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, st, students, err := openStudents(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		rcfg := cfg.Review
		if cmd.Flags().Changed("limit") {
			rcfg.Limit = limit
		}
		now := time.Now()
		items, err := review.NewPlanner(c, students, rcfg, nil).Plan(cmd.Context(), sid, now)
		if err != nil {
			return fmt.Errorf("plan review: %w", err)
		}
		if len(items) == 0 {
			fmt.Printf("Nothing to review for %s right now.\n", sid)
			return nil
		}

		fmt.Printf("%-32s  %4s  %9s  %-10s  %-10s  %s\n",
			"Concept", "Week", "Effective", "Status", "Next", "Why")
		fmt.Println(strings.Repeat("─", 100))
		for _, it := range items {
			fmt.Printf("%-32s  %4d  %8.0f%%  %-10s  %-10s  %s\n",
				truncate(it.Name, 32), it.Week, it.Effective*100, it.Status,
				it.State.NextReviewDate.Local().Format("2006-01-02"), it.Reason)
		}
		return nil
	},
}

func init() {
	studentFlag(reviewCmd)
	reviewCmd.Flags().IntP("limit", "n", 0, "Maximum number of suggestions (default from config)")
}
