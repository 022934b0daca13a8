package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
// A nil EventLogger disables domain event emission.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Domain event types emitted by the core services.
const (
	EventGoalCreated         = "goal.created"
	EventGoalUpdated         = "goal.updated"
	EventGoalRemoved         = "goal.removed"
	EventGoalRateChanged     = "goal.rate_changed"
	EventSubGoalToggled      = "goal.subgoal_toggled"
	EventGoalCommitted       = "goal.committed"
	EventDuplicateSuppressed = "goal.duplicate_suppressed"
	EventDraftExtracted      = "goal.draft_extracted"
	EventTaskCreated         = "task.created"
	EventTaskUpdated         = "task.updated"
	EventTaskRemoved         = "task.removed"
	EventTaskCompleted       = "task.completed"
	EventTaskReopened        = "task.reopened"
)

func emit(logger EventLogger, eventType string, data map[string]any) {
	if logger != nil {
		_ = logger.LogEvent(eventType, data)
	}
}
