package observability

import (
	"fmt"
	"time"
)

// Event types the metrics calculator counts. They mirror the types emitted by
// the core services.
const (
	typeGoalCreated         = "goal.created"
	typeGoalCommitted       = "goal.committed"
	typeDuplicateSuppressed = "goal.duplicate_suppressed"
	typeDraftExtracted      = "goal.draft_extracted"
	typeRateChanged         = "goal.rate_changed"
	typeSubGoalToggled      = "goal.subgoal_toggled"
	typeTaskCreated         = "task.created"
	typeTaskCompleted       = "task.completed"
	typeTaskReopened        = "task.reopened"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	GoalsCreated         int            `json:"goals_created"`
	GoalsCommitted       int            `json:"goals_committed"`
	DuplicatesSuppressed int            `json:"duplicates_suppressed"`
	DraftsExtracted      int            `json:"drafts_extracted"`
	RateChanges          int            `json:"rate_changes"`
	GoalsReachedComplete int            `json:"goals_reached_complete"`
	SubGoalToggles       int            `json:"subgoal_toggles"`
	TasksCreated         int            `json:"tasks_created"`
	TasksCompleted       int            `json:"tasks_completed"`
	TasksReopened        int            `json:"tasks_reopened"`
	CommitsBySource      map[string]int `json:"commits_by_source"`
	EventCount           int            `json:"event_count"`
	OldestEvent          *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent          *time.Time     `json:"newest_event,omitempty"`
}

// DedupRatio is the share of committer calls that were suppressed as
// duplicates, in [0,1].
func (m *Metrics) DedupRatio() float64 {
	total := m.GoalsCommitted + m.DuplicatesSuppressed
	if total == 0 {
		return 0
	}
	return float64(m.DuplicatesSuppressed) / float64(total)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{CommitsBySource: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case typeGoalCreated:
			m.GoalsCreated++
		case typeGoalCommitted:
			m.GoalsCommitted++
			if source, ok := event.Data["source"].(string); ok && source != "" {
				m.CommitsBySource[source]++
			}
		case typeDuplicateSuppressed:
			m.DuplicatesSuppressed++
		case typeDraftExtracted:
			m.DraftsExtracted++
		case typeRateChanged:
			m.RateChanges++
			// JSON numbers decode as float64.
			if current, ok := event.Data["current"].(float64); ok && current >= 100 {
				m.GoalsReachedComplete++
			}
		case typeSubGoalToggled:
			m.SubGoalToggles++
		case typeTaskCreated:
			m.TasksCreated++
		case typeTaskCompleted:
			m.TasksCompleted++
		case typeTaskReopened:
			m.TasksReopened++
		}
	}

	return m, nil
}
