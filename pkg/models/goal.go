package models

import "time"

// GoalPriority represents how urgent a goal is.
type GoalPriority string

const (
	PriorityHigh   GoalPriority = "high"
	PriorityMedium GoalPriority = "medium"
	PriorityLow    GoalPriority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p GoalPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ProgressSource records which derivation currently owns a goal's
// completion rate.
type ProgressSource string

const (
	ProgressNone     ProgressSource = ""
	ProgressTasks    ProgressSource = "tasks"
	ProgressSubGoals ProgressSource = "subgoals"
)

// DeadlineLayout is the canonical deadline format (YYYY/MM/DD).
const DeadlineLayout = "2006/01/02"

// SubGoal is a goal-owned checklist item. It is distinct from a Task and only
// contributes to the completion rate while the goal has no linked tasks.
type SubGoal struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Completed bool   `yaml:"completed" json:"completed"`
}

// Goal is a user-defined outcome with a deadline, a priority and a derived
// completion percentage.
type Goal struct {
	ID             string         `yaml:"id" json:"id"`
	Title          string         `yaml:"title" json:"title"`
	Description    string         `yaml:"description" json:"description"`
	Priority       GoalPriority   `yaml:"priority" json:"priority"`
	Deadline       string         `yaml:"deadline" json:"deadline"`
	CompletionRate int            `yaml:"completion_rate" json:"completion_rate"`
	SubGoals       []SubGoal      `yaml:"sub_goals,omitempty" json:"sub_goals,omitempty"`
	Icon           string         `yaml:"icon,omitempty" json:"icon,omitempty"`
	ProgressSource ProgressSource `yaml:"progress_source,omitempty" json:"progress_source,omitempty"`
	Created        time.Time      `yaml:"created" json:"created"`
	Updated        time.Time      `yaml:"updated" json:"updated"`
}

// Clone returns a deep copy of the goal so callers cannot mutate store state
// through a shared SubGoals slice.
func (g Goal) Clone() Goal {
	if g.SubGoals != nil {
		subs := make([]SubGoal, len(g.SubGoals))
		copy(subs, g.SubGoals)
		g.SubGoals = subs
	}
	return g
}

// GoalDraft is an unpersisted, fully defaulted goal candidate produced by
// text extraction. It has no ID until the goal store commits it.
type GoalDraft struct {
	Title          string       `yaml:"title" json:"title"`
	Description    string       `yaml:"description" json:"description"`
	Priority       GoalPriority `yaml:"priority" json:"priority"`
	Deadline       string       `yaml:"deadline" json:"deadline"`
	CompletionRate int          `yaml:"completion_rate" json:"completion_rate"`
	Icon           string       `yaml:"icon" json:"icon"`
	SubGoals       []string     `yaml:"sub_goals,omitempty" json:"sub_goals,omitempty"`
}
