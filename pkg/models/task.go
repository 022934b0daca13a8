package models

import "time"

// TimeRange is the authoritative time slot of a task, as HH:MM strings.
type TimeRange struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Task is a schedulable unit of work, optionally linked to a Goal through
// GoalID. The link is weak: the goal may have been deleted.
type Task struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Time      string     `yaml:"time,omitempty" json:"time,omitempty"`
	TimeRange *TimeRange `yaml:"time_range,omitempty" json:"time_range,omitempty"`
	Completed bool       `yaml:"completed" json:"completed"`
	GoalID    string     `yaml:"goal_id,omitempty" json:"goal_id,omitempty"`
	Order     int        `yaml:"order" json:"order"`
	Created   time.Time  `yaml:"created" json:"created"`
	Updated   time.Time  `yaml:"updated" json:"updated"`
}

// SlotKey returns the key tasks are grouped and ordered by: the time range
// start when present, otherwise the display time.
func (t Task) SlotKey() string {
	if t.TimeRange != nil && t.TimeRange.Start != "" {
		return t.TimeRange.Start
	}
	return t.Time
}
