package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the AI companion for help with a goal",
	Long: `Send a message to the configured AI assistant and print its reply.

When the reply confirms a new goal, the goal is extracted and created once.
Requires ai.provider to be set in .goalconfig.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Companion == nil {
			return fmt.Errorf("companion not initialized")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := Companion.Ask(ctx, strings.Join(args, " "))
		if res == nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Reply)
		if res.Draft == nil {
			return err
		}

		fmt.Fprintln(out)
		printDraft(cmd, res.Draft)
		if res.Commit != nil {
			if saveErr := saveState(); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			fmt.Fprintf(out, "  Goal: %s\n", res.Commit.GoalID)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
