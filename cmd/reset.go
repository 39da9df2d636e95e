package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete a student's mastery, misconceptions and interaction log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			what := "learner data for " + sid
			if all {
				what += " and all model call history and cached answers"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? [y/N] ", what)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Reset(cmd.Context(), sid, all); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s.\n", sid)
		return nil
	},
}

func init() {
	studentFlag(resetCmd)
	resetCmd.Flags().Bool("all", false, "Also clear model call history and cached answers")
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
