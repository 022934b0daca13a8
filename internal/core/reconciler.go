package core

import "github.com/valter-silva-au/goal-companion/pkg/models"

// RateChange records one goal whose completion rate a reconciliation pass
// rewrote.
type RateChange struct {
	GoalID   string `json:"goal_id"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

// Reconcile derives each goal's completion rate from the completion state of
// its linked tasks. It returns a copy of goals with the derived values applied
// and the list of goals whose rate differs from the stored one.
//
// Goals with no linked tasks keep their rate. Tasks that reference a goal not
// present in goals are excluded from every count. Neither input is modified.
func Reconcile(goals []models.Goal, tasks []models.Task) ([]models.Goal, []RateChange) {
	type tally struct{ done, total int }
	counts := make(map[string]*tally)
	for _, t := range tasks {
		if t.GoalID == "" {
			continue
		}
		c, ok := counts[t.GoalID]
		if !ok {
			c = &tally{}
			counts[t.GoalID] = c
		}
		c.total++
		if t.Completed {
			c.done++
		}
	}

	out := make([]models.Goal, len(goals))
	var changes []RateChange
	for i, g := range goals {
		out[i] = g.Clone()

		c, linked := counts[g.ID]
		rate, ok := 0, false
		if linked {
			rate, ok = completionPercent(c.done, c.total)
		}
		if !ok {
			// Task linkage released the goal; hand it back to sub-goals.
			if g.ProgressSource == models.ProgressTasks {
				if len(g.SubGoals) > 0 {
					out[i].ProgressSource = models.ProgressSubGoals
				} else {
					out[i].ProgressSource = models.ProgressNone
				}
			}
			continue
		}

		out[i].ProgressSource = models.ProgressTasks
		if rate != g.CompletionRate {
			out[i].CompletionRate = rate
			changes = append(changes, RateChange{GoalID: g.ID, Previous: g.CompletionRate, Current: rate})
		}
	}
	return out, changes
}

// GoalProgressStore is the subset of GoalStore the reconciler writes to.
type GoalProgressStore interface {
	GetAllGoals() []models.Goal
	UpdateCompletionRate(id string, rate int) (bool, error)
	SetProgressSource(id string, source models.ProgressSource) error
}

// ProgressReconciler applies task-driven reconciliation passes to a goal
// store. Task stores call it after every task mutation.
type ProgressReconciler interface {
	ReconcileTasks(tasks []models.Task) []RateChange
}

type progressReconciler struct {
	goals GoalProgressStore
}

// NewProgressReconciler creates a ProgressReconciler writing to goals.
func NewProgressReconciler(goals GoalProgressStore) ProgressReconciler {
	return &progressReconciler{goals: goals}
}

// ReconcileTasks runs one pass over the current goals and the given task
// snapshot, writing only the goals whose derived values changed. Goals removed
// between the snapshot and the write are skipped.
func (r *progressReconciler) ReconcileTasks(tasks []models.Task) []RateChange {
	current := r.goals.GetAllGoals()
	derived, changes := Reconcile(current, tasks)

	for i := range derived {
		if derived[i].ProgressSource == current[i].ProgressSource {
			continue
		}
		// A missing goal was removed after the snapshot; nothing to mark.
		_ = r.goals.SetProgressSource(derived[i].ID, derived[i].ProgressSource)
	}

	var applied []RateChange
	for _, c := range changes {
		changed, err := r.goals.UpdateCompletionRate(c.GoalID, c.Current)
		if err != nil || !changed {
			continue
		}
		applied = append(applied, c)
	}
	return applied
}
