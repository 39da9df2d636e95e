package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/tutor"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the tutor a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sid, err := studentID(cmd)
		if err != nil {
			return err
		}
		tier, err := tierFlag(cmd)
		if err != nil {
			return err
		}

		a, closeApp, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		q := conversation.NewQuery(sid, strings.Join(args, " "), nil, tier)
		resp, err := a.Engine.HandleTurn(cmd.Context(), q)
		if err != nil {
			return err
		}
		printResponse(cmd.OutOrStdout(), resp, verboseFlag(cmd))
		return nil
	},
}

func init() {
	studentFlag(askCmd)
	askCmd.Flags().StringP("tier", "t", "", "Force a model tier (fast, standard, reasoning, code)")
}

func tierFlag(cmd *cobra.Command) (llm.Tier, error) {
	s, _ := cmd.Flags().GetString("tier")
	return llm.ParseTier(s)
}

func verboseFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}

// printResponse writes the answer with its mode label. Verbose output adds
// the routing and quality details.
func printResponse(w io.Writer, resp *tutor.FinalResponse, verbose bool) {
	fmt.Fprintln(w, resp.Text)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[%s]\n", resp.ModeLabel)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(resp.Sources, ", "))
	}
	for _, n := range resp.Notes {
		fmt.Fprintf(w, "Note: %s\n", n)
	}
	if !verbose {
		return
	}
	fmt.Fprintf(w, "turn=%s intent=%s agent=%s tier=%s concept=%s decision=%s score=%.2f outcome=%s",
		resp.TurnID, resp.Intent, resp.Agent, resp.Tier, resp.ConceptID, resp.Decision, resp.Score, resp.Outcome)
	if resp.Law != "" {
		fmt.Fprintf(w, " law=%s", resp.Law)
	}
	if resp.Degraded {
		fmt.Fprint(w, " degraded")
	}
	fmt.Fprintln(w)
}
