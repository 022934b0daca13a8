package core

import "errors"

var (
	// ErrGoalNotFound is returned when a goal ID does not resolve.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrTaskNotFound is returned when a task ID does not resolve.
	ErrTaskNotFound = errors.New("task not found")
	// ErrSubGoalNotFound is returned when a sub-goal ID does not resolve
	// within its goal.
	ErrSubGoalNotFound = errors.New("sub-goal not found")
	// ErrNoSubGoals is returned when toggling a sub-goal on a goal that has
	// none. No ratio is computed in that case.
	ErrNoSubGoals = errors.New("goal has no sub-goals")
	// ErrPublishDepthExceeded is returned when a relay handler publishes
	// again beyond the configured nesting depth.
	ErrPublishDepthExceeded = errors.New("goal relay: publish depth exceeded")
)
