package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
)

// chatHistoryTurns bounds the conversation sent with each question.
const chatHistoryTurns = 20

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk with the tutor interactively",
	Long:  "Reads one question per line from stdin. The tutor sees the conversation so far, so follow-ups work. Type /new to start over, /quit to leave.",
	Args:  cobra.NoArgs,
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

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		info := a.Course.Info()
		fmt.Fprintf(out, "%s %s tutor. Ask a question, /new to start over, /quit to leave.\n", info.Code, info.Name)

		history := conversation.NewHistory(chatHistoryTurns)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/new":
				history = conversation.NewHistory(chatHistoryTurns)
				fmt.Fprintln(out, "Starting a new conversation.")
				continue
			}

			resp, err := a.Engine.HandleTurn(ctx, conversation.NewQuery(sid, line, history.Turns(), tier))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				continue
			}
			now := time.Now()
			history.Add(conversation.RoleUser, line, now)
			history.Add(conversation.RoleAssistant, resp.Text, now)

			fmt.Fprintln(out)
			printResponse(out, resp, verboseFlag(cmd))
			fmt.Fprintln(out)
		}
	},
}

func init() {
	studentFlag(chatCmd)
	chatCmd.Flags().StringP("tier", "t", "", "Force a model tier (fast, standard, reasoning, code)")
}
