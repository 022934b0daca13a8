package observability

import (
	"testing"
	"time"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// staticGoals is a GoalLister over a fixed slice.
type staticGoals []models.Goal

func (s staticGoals) GetAllGoals() []models.Goal { return s }

var alertNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func newTestAlertEngine(goals []models.Goal, log EventLog, th AlertThresholds) *alertEngine {
	ae := NewAlertEngine(staticGoals(goals), log, th).(*alertEngine)
	ae.now = func() time.Time { return alertNow }
	return ae
}

func TestAlertEngine_DeadlineConditions(t *testing.T) {
	created := alertNow.Add(-24 * time.Hour)
	goals := []models.Goal{
		{ID: "overdue", Title: "late", Deadline: "2025/06/09", CompletionRate: 80, Created: created},
		{ID: "done-late", Title: "finished", Deadline: "2025/06/01", CompletionRate: 100, Created: created},
		{ID: "at-risk", Title: "soon", Deadline: "2025/06/15", CompletionRate: 20, Created: created},
		{ID: "on-track", Title: "soon but fine", Deadline: "2025/06/15", CompletionRate: 60, Created: created},
		{ID: "far", Title: "far away", Deadline: "2025/09/01", CompletionRate: 0, Created: created},
		{ID: "today", Title: "due today", Deadline: "2025/06/10", CompletionRate: 10, Created: created},
		{ID: "garbled", Title: "bad date", Deadline: "next week", Created: created},
	}
	alerts, err := newTestAlertEngine(goals, nil, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}

	got := make(map[string]Alert)
	for _, a := range alerts {
		got[a.GoalID] = a
	}
	if len(got) != 3 {
		t.Fatalf("alerts for %d goals, want 3: %+v", len(got), alerts)
	}
	if a := got["overdue"]; a.Condition != ConditionGoalOverdue || a.Severity != SeverityHigh {
		t.Errorf("overdue alert = %+v", a)
	}
	if a := got["at-risk"]; a.Condition != ConditionGoalAtRisk || a.Severity != SeverityMedium {
		t.Errorf("at-risk alert = %+v", a)
	}
	if a := got["today"]; a.Condition != ConditionGoalAtRisk {
		t.Errorf("goal due today should be at risk, not overdue: %+v", a)
	}
	if alerts[0].Severity != SeverityHigh {
		t.Errorf("alerts not ordered by severity: %+v", alerts)
	}
}

func TestAlertEngine_StalledGoals(t *testing.T) {
	log, _ := newTestEventLog(t)
	old := alertNow.Add(-30 * 24 * time.Hour)
	writeEvents(t, log,
		Event{Time: alertNow.Add(-20 * 24 * time.Hour), Type: "goal.created", Data: map[string]any{"goal_id": "quiet"}},
		Event{Time: alertNow.Add(-2 * 24 * time.Hour), Type: "task.completed", Data: map[string]any{"goal_id": "busy"}},
	)
	goals := []models.Goal{
		{ID: "quiet", Title: "quiet", Deadline: "2026/01/01", Created: old},
		{ID: "busy", Title: "busy", Deadline: "2026/01/01", Created: old},
		{ID: "fresh", Title: "fresh", Deadline: "2026/01/01", Created: alertNow.Add(-time.Hour)},
		{ID: "complete", Title: "complete", Deadline: "2026/01/01", CompletionRate: 100, Created: old},
	}

	alerts, err := newTestAlertEngine(goals, log, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].GoalID != "quiet" || alerts[0].Condition != ConditionGoalStalled {
		t.Fatalf("alerts = %+v, want one stalled alert for quiet", alerts)
	}
	if alerts[0].Severity != SeverityLow {
		t.Errorf("Severity = %s, want low", alerts[0].Severity)
	}

	th := DefaultAlertThresholds()
	th.StallDays = 0
	alerts, _ = newTestAlertEngine(goals, log, th).Evaluate()
	if len(alerts) != 0 {
		t.Errorf("stall check should be disabled, got %+v", alerts)
	}
}

func TestAlertEngine_NoGoals(t *testing.T) {
	alerts, err := newTestAlertEngine(nil, nil, DefaultAlertThresholds()).Evaluate()
	if err != nil {
		t.Fatalf("evaluating alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(alerts))
	}
}
