package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	goalsmcp "github.com/valter-silva-au/goal-companion/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the goals MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the goals MCP server on stdio",
	Long: `Start the goals MCP server on stdio transport.

The server exposes goals and tasks as MCP tools that AI assistants can call:
list_goals, get_goal, list_tasks, toggle_task, toggle_subgoal, extract_goal,
get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil || Tasks == nil || Extractor == nil {
			return fmt.Errorf("goal services not initialized")
		}

		deps := goalsmcp.Deps{
			Goals:       Goals,
			Tasks:       Tasks,
			Extractor:   Extractor,
			Committer:   Committer,
			MetricsCalc: MetricsCalc,
			AlertEngine: AlertEngine,
		}
		if State != nil {
			deps.Persister = State
		}
		srv := goalsmcp.NewServer(deps, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
