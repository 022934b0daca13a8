package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (add, list, toggle, edit, remove, reorder)",
	Long: `Manage scheduled tasks.

Tasks linked to a goal with --goal drive that goal's completion rate:
completing or reopening a linked task recalculates the goal immediately.`,
}

var (
	taskTimeFlag    string
	taskStartFlag   string
	taskEndFlag     string
	taskGoalFlag    string
	taskOrderFlag   int
	taskPendingFlag bool
)

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task, optionally linked to a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		task := models.Task{
			Title:  strings.Join(args, " "),
			Time:   taskTimeFlag,
			GoalID: taskGoalFlag,
			Order:  taskOrderFlag,
		}
		tr, err := timeRangeFromFlags(taskStartFlag, taskEndFlag)
		if err != nil {
			return err
		}
		task.TimeRange = tr
		if task.Time != "" {
			if err := validateClock(task.Time); err != nil {
				return err
			}
		} else if tr != nil {
			task.Time = tr.Start
		}
		if task.GoalID != "" && Goals != nil {
			if _, err := Goals.GetGoalByID(task.GoalID); err != nil {
				return fmt.Errorf("linking task: %w", err)
			}
		}

		id, err := Tasks.AddTask(task)
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}
		if err := saveState(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created task %s\n", id)
		if task.GoalID != "" {
			printGoalProgress(cmd, task.GoalID)
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in schedule order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		var tasks []models.Task
		if taskGoalFlag != "" {
			tasks = Tasks.TasksForGoal(taskGoalFlag)
		} else {
			tasks = Tasks.GetAllTasks()
		}

		out := cmd.OutOrStdout()
		shown := 0
		for _, t := range tasks {
			if taskPendingFlag && t.Completed {
				continue
			}
			line := fmt.Sprintf("%s %-11s %s", checkbox(t.Completed), taskSlot(t), t.Title)
			if t.GoalID != "" {
				line += "  " + dimStyle.Render("→ "+goalLabel(t.GoalID))
			}
			fmt.Fprintf(out, "%s  %s\n", line, dimStyle.Render(t.ID))
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(out, "No tasks found.")
		}
		return nil
	},
}

var taskToggleCmd = &cobra.Command{
	Use:   "toggle <task-id>",
	Short: "Flip a task between completed and pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		completed, err := Tasks.ToggleCompletion(args[0])
		if err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}

		state := "pending"
		if completed {
			state = "completed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], state)
		if t, err := Tasks.GetTask(args[0]); err == nil && t.GoalID != "" {
			printGoalProgress(cmd, t.GoalID)
		}
		return nil
	},
}

var taskEditCmd = &cobra.Command{
	Use:   "edit <task-id>",
	Short: "Edit a task's title, time, time range or goal link",
	Long: `Edit a task. Only flags that are given are changed.

Use --goal "" to unlink the task from its goal. Relinking recalculates both
the old and the new goal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		var update core.TaskUpdate
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			update.Title = &v
		}
		if flags.Changed("time") {
			v, _ := flags.GetString("time")
			if v != "" {
				if err := validateClock(v); err != nil {
					return err
				}
			}
			update.Time = &v
		}
		if flags.Changed("start") || flags.Changed("end") {
			start, _ := flags.GetString("start")
			end, _ := flags.GetString("end")
			tr, err := timeRangeFromFlags(start, end)
			if err != nil {
				return err
			}
			if tr == nil {
				tr = &models.TimeRange{}
			}
			update.TimeRange = tr
		}
		if flags.Changed("goal") {
			v, _ := flags.GetString("goal")
			if v != "" && Goals != nil {
				if _, err := Goals.GetGoalByID(v); err != nil {
					return fmt.Errorf("linking task: %w", err)
				}
			}
			update.GoalID = &v
		}

		t, err := Tasks.UpdateTask(args[0], update)
		if err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", t.ID)
		if t.GoalID != "" {
			printGoalProgress(cmd, t.GoalID)
		}
		return nil
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:     "remove <task-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}
		if err := Tasks.RemoveTask(args[0]); err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", args[0])
		return nil
	},
}

var taskReorderCmd = &cobra.Command{
	Use:   "reorder <task-id> <order>",
	Short: "Set a task's position among tasks sharing its time slot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}
		order, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid order %q: %w", args[1], err)
		}
		if err := Tasks.ReorderTask(args[0], order); err != nil {
			return err
		}
		if err := saveState(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s moved to position %d\n", args[0], order)
		return nil
	},
}

// printGoalProgress prints the current rate of goalID, or a note when the
// goal no longer exists.
func printGoalProgress(cmd *cobra.Command, goalID string) {
	if Goals == nil {
		return
	}
	out := cmd.OutOrStdout()
	g, err := Goals.GetGoalByID(goalID)
	if err != nil {
		fmt.Fprintf(out, "  goal %s no longer exists\n", goalID)
		return
	}
	fmt.Fprintf(out, "  %s %s\n", g.Title, progressBar(g.CompletionRate, progressBarWidth))
}

func goalLabel(goalID string) string {
	if Goals == nil {
		return goalID
	}
	g, err := Goals.GetGoalByID(goalID)
	if err != nil {
		return goalID + " (removed)"
	}
	return g.Title
}

func timeRangeFromFlags(start, end string) (*models.TimeRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" {
		return nil, fmt.Errorf("--end requires --start")
	}
	if err := validateClock(start); err != nil {
		return nil, err
	}
	if end != "" {
		if err := validateClock(end); err != nil {
			return nil, err
		}
		if end < start {
			return nil, fmt.Errorf("time range end %s is before start %s", end, start)
		}
	}
	return &models.TimeRange{Start: start, End: end}, nil
}

func validateClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil || len(s) != 5 {
		return fmt.Errorf("invalid time %q: use HH:MM", s)
	}
	return nil
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskTimeFlag, "time", "t", "", "Display time as HH:MM")
	taskAddCmd.Flags().StringVar(&taskStartFlag, "start", "", "Time range start as HH:MM")
	taskAddCmd.Flags().StringVar(&taskEndFlag, "end", "", "Time range end as HH:MM")
	taskAddCmd.Flags().StringVarP(&taskGoalFlag, "goal", "g", "", "Goal ID to link the task to")
	taskAddCmd.Flags().IntVar(&taskOrderFlag, "order", 0, "Position among tasks in the same time slot")

	taskListCmd.Flags().StringVarP(&taskGoalFlag, "goal", "g", "", "Only list tasks linked to this goal")
	taskListCmd.Flags().BoolVar(&taskPendingFlag, "pending", false, "Only list tasks that are not completed")

	taskEditCmd.Flags().String("title", "", "New title")
	taskEditCmd.Flags().StringP("time", "t", "", "New display time as HH:MM (empty clears)")
	taskEditCmd.Flags().String("start", "", "New time range start as HH:MM")
	taskEditCmd.Flags().String("end", "", "New time range end as HH:MM")
	taskEditCmd.Flags().StringP("goal", "g", "", "Goal ID to link to (empty unlinks)")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskToggleCmd, taskEditCmd, taskRemoveCmd, taskReorderCmd)
	rootCmd.AddCommand(taskCmd)
}
