package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for goals",
	Long: `Set up shell tab-completions for goals commands and flags.

Supported shells: bash, zsh, fish, powershell

Print the script to stdout:

  goals completion zsh

Or install it into the user-local completion directory:

  goals completion zsh --install`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

// completionShell describes how to generate and where to install the
// completion script for one shell. dir is relative to the home directory;
// an empty dir means --install is unsupported.
type completionShell struct {
	generate func(w io.Writer) error
	dir      []string
	file     string
	hint     string
}

func completionShells() map[string]completionShell {
	return map[string]completionShell{
		"bash": {
			generate: func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
			dir:      []string{".local", "share", "bash-completion", "completions"},
			file:     "goals",
			hint:     "Restart your shell or source the file to enable completions.",
		},
		"zsh": {
			generate: rootCmd.GenZshCompletion,
			dir:      []string{".local", "share", "zsh", "site-functions"},
			file:     "_goals",
			hint:     "Ensure the directory is in your fpath, then run: autoload -Uz compinit && compinit",
		},
		"fish": {
			generate: func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			dir:      []string{".config", "fish", "completions"},
			file:     "goals.fish",
			hint:     "Completions will be available in new fish sessions.",
		},
		"powershell": {
			generate: rootCmd.GenPowerShellCompletionWithDesc,
		},
	}
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into the user-local completion directory")

	// Replace Cobra's default completion command with ours.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell, ok := completionShells()[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
	}

	if !completionInstall {
		return shell.generate(cmd.OutOrStdout())
	}
	if len(shell.dir) == 0 {
		return fmt.Errorf("automatic install is not supported for %s; add the output of 'goals completion %s' to your profile", args[0], args[0])
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	target, err := installCompletion(filepath.Join(append([]string{home}, shell.dir...)...), shell)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Completions installed to %s\n%s\n", target, shell.hint)
	return nil
}

// installCompletion writes the completion script into dir and returns the
// file path.
func installCompletion(dir string, shell completionShell) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating completion directory: %w", err)
	}
	target := filepath.Join(dir, shell.file)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating completion file %s: %w", target, err)
	}
	writeErr := shell.generate(f)
	closeErr := f.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return target, nil
}
