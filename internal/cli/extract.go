package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// SourceCLI identifies commits made from the extract command.
const SourceCLI = "cli"

var (
	extractCommitFlag bool
	extractJSONFlag   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [text|-]",
	Short: "Detect a goal in assistant reply text",
	Long: `Scan an assistant reply for a goal-creation confirmation and print the
goal draft extracted from it. Pass "-" or no argument to read from stdin.

With --commit the draft is created as a goal. The same draft committed again
within the dedup window is reported as a duplicate instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Extractor == nil {
			return fmt.Errorf("goal extractor not initialized")
		}

		text, err := readTextArg(cmd, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		draft := Extractor.ExtractGoalIntent(text)
		if draft == nil {
			if extractJSONFlag {
				fmt.Fprintln(out, "null")
				return nil
			}
			fmt.Fprintln(out, "No goal found in text.")
			return nil
		}

		if extractJSONFlag {
			data, err := json.MarshalIndent(draft, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting draft as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			printDraft(cmd, draft)
		}

		if !extractCommitFlag {
			return nil
		}
		if Committer == nil {
			return fmt.Errorf("goal committer not initialized")
		}
		res, err := Committer.Commit(*draft, SourceCLI)
		if err != nil {
			return fmt.Errorf("committing goal: %w", err)
		}
		if !res.Committed {
			fmt.Fprintf(cmd.ErrOrStderr(), "Duplicate of goal %s, not created again\n", res.GoalID)
			return nil
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Created goal %s\n", res.GoalID)
		return nil
	},
}

func printDraft(cmd *cobra.Command, d *models.GoalDraft) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", d.Icon, d.Title)
	fmt.Fprintf(out, "  Priority: %s\n", styleForPriority(d.Priority).Render(string(d.Priority)))
	fmt.Fprintf(out, "  Deadline: %s\n", d.Deadline)
	if d.Description != "" {
		fmt.Fprintf(out, "  %s\n", d.Description)
	}
}

// readTextArg returns the single text argument, or stdin when the argument
// is "-" or absent.
func readTextArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}

func init() {
	extractCmd.Flags().BoolVar(&extractCommitFlag, "commit", false, "Create the extracted goal")
	extractCmd.Flags().BoolVar(&extractJSONFlag, "json", false, "Print the draft as JSON")
	rootCmd.AddCommand(extractCmd)
}
