package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage goals (add, list, show, edit, remove, sub-goals)",
	Long: `Manage goals and their sub-goal checklists.

A goal's completion rate is derived from its linked tasks. Goals without
linked tasks derive it from their sub-goals instead.`,
}

var (
	goalPriorityFlag    string
	goalDeadlineFlag    string
	goalDescriptionFlag string
	goalIconFlag        string
	goalSubGoalsFlag    []string
)

var goalAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}

		priority := models.GoalPriority(goalPriorityFlag)
		if !priority.Valid() {
			return fmt.Errorf("invalid priority %q: must be one of high, medium, low", goalPriorityFlag)
		}
		deadline := goalDeadlineFlag
		if deadline == "" {
			deadline = defaultDeadline(time.Now())
		} else if err := validateDeadline(deadline); err != nil {
			return err
		}

		id, err := Goals.AddGoal(models.GoalDraft{
			Title:       strings.Join(args, " "),
			Description: goalDescriptionFlag,
			Priority:    priority,
			Deadline:    deadline,
			Icon:        goalIconFlag,
			SubGoals:    goalSubGoalsFlag,
		})
		if err != nil {
			return fmt.Errorf("adding goal: %w", err)
		}
		if err := saveState(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created goal %s\n", id)
		fmt.Fprintf(out, "  Priority: %s\n", priority)
		fmt.Fprintf(out, "  Deadline: %s\n", deadline)
		if n := len(goalSubGoalsFlag); n > 0 {
			fmt.Fprintf(out, "  Sub-goals: %d\n", n)
		}
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals with their progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}

		goals := Goals.GetAllGoals()
		out := cmd.OutOrStdout()
		if len(goals) == 0 {
			fmt.Fprintln(out, "No goals yet.")
			return nil
		}
		for _, g := range goals {
			icon := g.Icon
			if icon == "" {
				icon = "🎯"
			}
			fmt.Fprintf(out, "%s %s  %s\n", icon, g.Title, dimStyle.Render(g.ID))
			fmt.Fprintf(out, "   %s  %s  due %s\n",
				progressBar(g.CompletionRate, progressBarWidth),
				styleForPriority(g.Priority).Render(string(g.Priority)),
				g.Deadline,
			)
		}
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <goal-id>",
	Short: "Show a goal with its sub-goals and linked tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}

		g, err := Goals.GetGoalByID(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", g.Icon, g.Title)
		fmt.Fprintf(out, "  ID:       %s\n", g.ID)
		fmt.Fprintf(out, "  Priority: %s\n", styleForPriority(g.Priority).Render(string(g.Priority)))
		fmt.Fprintf(out, "  Deadline: %s\n", g.Deadline)
		fmt.Fprintf(out, "  Progress: %s\n", progressBar(g.CompletionRate, progressBarWidth))
		if g.ProgressSource != models.ProgressNone {
			fmt.Fprintf(out, "  Source:   %s\n", g.ProgressSource)
		}
		if g.Description != "" {
			fmt.Fprintf(out, "\n  %s\n", g.Description)
		}

		if len(g.SubGoals) > 0 {
			fmt.Fprintln(out, "\n  Sub-goals:")
			for _, sg := range g.SubGoals {
				fmt.Fprintf(out, "    %s %s  %s\n", checkbox(sg.Completed), sg.Title, dimStyle.Render(sg.ID))
			}
		}

		if Tasks != nil {
			if linked := Tasks.TasksForGoal(g.ID); len(linked) > 0 {
				fmt.Fprintln(out, "\n  Tasks:")
				for _, t := range linked {
					fmt.Fprintf(out, "    %s %-11s %s  %s\n", checkbox(t.Completed), taskSlot(t), t.Title, dimStyle.Render(t.ID))
				}
			}
		}
		return nil
	},
}

var goalEditCmd = &cobra.Command{
	Use:   "edit <goal-id>",
	Short: "Edit a goal's fields",
	Long: `Edit a goal's title, description, priority, deadline, icon or rate.

Only flags that are given are changed. A manual --rate is overwritten by the
next task or sub-goal change that affects the goal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}

		var update core.GoalUpdate
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			update.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			update.Description = &v
		}
		if flags.Changed("priority") {
			v, _ := flags.GetString("priority")
			p := models.GoalPriority(v)
			if !p.Valid() {
				return fmt.Errorf("invalid priority %q: must be one of high, medium, low", v)
			}
			update.Priority = &p
		}
		if flags.Changed("deadline") {
			v, _ := flags.GetString("deadline")
			if err := validateDeadline(v); err != nil {
				return err
			}
			update.Deadline = &v
		}
		if flags.Changed("icon") {
			v, _ := flags.GetString("icon")
			update.Icon = &v
		}
		if flags.Changed("rate") {
			v, _ := flags.GetInt("rate")
			update.CompletionRate = &v
		}

		g, err := Goals.UpdateGoal(args[0], update)
		if err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated goal %s (%d%%)\n", g.ID, g.CompletionRate)
		return nil
	},
}

var goalRemoveCmd = &cobra.Command{
	Use:     "remove <goal-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a goal",
	Long: `Remove a goal. Tasks linked to it keep their link and are ignored by
progress reconciliation until relinked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}
		if err := Goals.RemoveGoal(args[0]); err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed goal %s\n", args[0])
		return nil
	},
}

var subGoalCmd = &cobra.Command{
	Use:     "subgoal",
	Aliases: []string{"sub"},
	Short:   "Manage a goal's sub-goal checklist",
}

var subGoalAddCmd = &cobra.Command{
	Use:   "add <goal-id> <title>",
	Short: "Add a sub-goal",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}
		id, err := Goals.AddSubGoal(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added sub-goal %s to goal %s\n", id, args[0])
		return nil
	},
}

var subGoalToggleCmd = &cobra.Command{
	Use:   "toggle <goal-id> <subgoal-id>",
	Short: "Flip a sub-goal between done and not done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}
		g, err := Goals.ToggleSubGoal(args[0], args[1])
		if err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, sg := range g.SubGoals {
			if sg.ID == args[1] {
				fmt.Fprintf(out, "%s %s\n", checkbox(sg.Completed), sg.Title)
			}
		}
		fmt.Fprintf(out, "%s %s\n", g.Title, progressBar(g.CompletionRate, progressBarWidth))
		if g.ProgressSource == models.ProgressTasks {
			fmt.Fprintln(out, dimStyle.Render("(progress follows linked tasks; sub-goals do not change the rate)"))
		}
		return nil
	},
}

var subGoalRemoveCmd = &cobra.Command{
	Use:     "remove <goal-id> <subgoal-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a sub-goal",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil {
			return fmt.Errorf("goal store not initialized")
		}
		if err := Goals.RemoveSubGoal(args[0], args[1]); err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed sub-goal %s from goal %s\n", args[1], args[0])
		return nil
	},
}

// defaultDeadline is the deadline given to goals created without one.
func defaultDeadline(now time.Time) string {
	days := 30
	if Config != nil && Config.Extraction.DefaultDeadlineDays > 0 {
		days = Config.Extraction.DefaultDeadlineDays
	}
	return now.AddDate(0, 0, days).Format(models.DeadlineLayout)
}

func validateDeadline(s string) error {
	if _, err := time.Parse(models.DeadlineLayout, s); err != nil {
		return fmt.Errorf("invalid deadline %q: use YYYY/MM/DD", s)
	}
	return nil
}

func init() {
	goalAddCmd.Flags().StringVarP(&goalPriorityFlag, "priority", "p", string(models.PriorityMedium), "Priority (high, medium, low)")
	goalAddCmd.Flags().StringVarP(&goalDeadlineFlag, "deadline", "d", "", "Deadline as YYYY/MM/DD (default: configured number of days from today)")
	goalAddCmd.Flags().StringVar(&goalDescriptionFlag, "description", "", "Longer description")
	goalAddCmd.Flags().StringVar(&goalIconFlag, "icon", "🎯", "Icon shown next to the goal")
	goalAddCmd.Flags().StringArrayVarP(&goalSubGoalsFlag, "subgoal", "s", nil, "Sub-goal title (repeatable)")

	goalEditCmd.Flags().String("title", "", "New title")
	goalEditCmd.Flags().String("description", "", "New description")
	goalEditCmd.Flags().StringP("priority", "p", "", "New priority (high, medium, low)")
	goalEditCmd.Flags().StringP("deadline", "d", "", "New deadline as YYYY/MM/DD")
	goalEditCmd.Flags().String("icon", "", "New icon")
	goalEditCmd.Flags().Int("rate", 0, "Set the completion rate manually (0-100)")

	subGoalCmd.AddCommand(subGoalAddCmd, subGoalToggleCmd, subGoalRemoveCmd)
	goalCmd.AddCommand(goalAddCmd, goalListCmd, goalShowCmd, goalEditCmd, goalRemoveCmd, subGoalCmd)
	rootCmd.AddCommand(goalCmd)
}
