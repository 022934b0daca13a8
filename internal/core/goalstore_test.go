package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// recordingEventLogger captures LogEvent calls for assertions.
type recordingEventLogger struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	eventType string
	data      map[string]any
}

func (l *recordingEventLogger) LogEvent(eventType string, data map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{eventType: eventType, data: data})
	return nil
}

func (l *recordingEventLogger) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// sequentialIDs returns an ID generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestGoalStore(t *testing.T, logger EventLogger) *goalStore {
	t.Helper()
	s := NewGoalStore(nil, logger).(*goalStore)
	s.newID = sequentialIDs("g")
	return s
}

func TestGoalStore_AddGoal(t *testing.T) {
	logger := &recordingEventLogger{}
	s := newTestGoalStore(t, logger)

	id, err := s.AddGoal(models.GoalDraft{
		Title:    "  Run a marathon ",
		Priority: models.PriorityHigh,
		Deadline: "2024/08/01",
		Icon:     "💪",
	})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	if id != "g-1" {
		t.Errorf("id = %q, want g-1", id)
	}

	g, err := s.GetGoalByID(id)
	if err != nil {
		t.Fatalf("GetGoalByID: %v", err)
	}
	if g.Title != "Run a marathon" {
		t.Errorf("Title = %q, want trimmed title", g.Title)
	}
	if g.Priority != models.PriorityHigh {
		t.Errorf("Priority = %q, want high", g.Priority)
	}
	if g.CompletionRate != 0 {
		t.Errorf("CompletionRate = %d, want 0", g.CompletionRate)
	}
	if g.Created.IsZero() || g.Updated.IsZero() {
		t.Error("timestamps not set")
	}
	if logger.count(EventGoalCreated) != 1 {
		t.Errorf("goal.created events = %d, want 1", logger.count(EventGoalCreated))
	}
}

func TestGoalStore_AddGoal_Defaults(t *testing.T) {
	s := newTestGoalStore(t, nil)

	id, err := s.AddGoal(models.GoalDraft{Title: "x", Priority: "urgent", CompletionRate: 250})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	g, _ := s.GetGoalByID(id)
	if g.Priority != models.PriorityMedium {
		t.Errorf("Priority = %q, want medium for unknown input", g.Priority)
	}
	if g.CompletionRate != 100 {
		t.Errorf("CompletionRate = %d, want clamped 100", g.CompletionRate)
	}
}

func TestGoalStore_AddGoal_EmptyTitle(t *testing.T) {
	s := newTestGoalStore(t, nil)
	if _, err := s.AddGoal(models.GoalDraft{Title: "   "}); err == nil {
		t.Fatal("expected error for empty title")
	}
	if len(s.GetAllGoals()) != 0 {
		t.Error("goal stored despite error")
	}
}

func TestGoalStore_AddGoal_WithSubGoals(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, err := s.AddGoal(models.GoalDraft{Title: "Learn Go", SubGoals: []string{"Tour", " ", "Effective Go"}})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	g, _ := s.GetGoalByID(id)
	if len(g.SubGoals) != 2 {
		t.Fatalf("SubGoals = %d, want 2 (blank dropped)", len(g.SubGoals))
	}
	if g.ProgressSource != models.ProgressSubGoals {
		t.Errorf("ProgressSource = %q, want subgoals", g.ProgressSource)
	}
}

func TestGoalStore_GetGoalByID_NotFound(t *testing.T) {
	s := newTestGoalStore(t, nil)
	_, err := s.GetGoalByID("missing")
	if !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("err = %v, want ErrGoalNotFound", err)
	}
}

func TestGoalStore_ReturnsCopies(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a", SubGoals: []string{"one"}})

	g, _ := s.GetGoalByID(id)
	g.Title = "mutated"
	g.SubGoals[0].Completed = true

	again, _ := s.GetGoalByID(id)
	if again.Title != "a" || again.SubGoals[0].Completed {
		t.Errorf("store state mutated through returned copy: %+v", again)
	}
}

func TestGoalStore_GetAllGoals_CreationOrder(t *testing.T) {
	s := newTestGoalStore(t, nil)
	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.AddGoal(models.GoalDraft{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	for _, g := range s.GetAllGoals() {
		got = append(got, g.Title)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGoalStore_UpdateGoal(t *testing.T) {
	logger := &recordingEventLogger{}
	s := newTestGoalStore(t, logger)
	id, _ := s.AddGoal(models.GoalDraft{Title: "old", Deadline: "2024/01/01"})

	title := "new"
	prio := models.PriorityLow
	rate := 40
	g, err := s.UpdateGoal(id, GoalUpdate{Title: &title, Priority: &prio, CompletionRate: &rate})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if g.Title != "new" || g.Priority != models.PriorityLow || g.CompletionRate != 40 {
		t.Errorf("unexpected goal after update: %+v", g)
	}
	if g.Deadline != "2024/01/01" {
		t.Errorf("Deadline changed to %q, nil field must be left as-is", g.Deadline)
	}
	if logger.count(EventGoalUpdated) != 1 {
		t.Errorf("goal.updated events = %d, want 1", logger.count(EventGoalUpdated))
	}
}

func TestGoalStore_UpdateGoal_Errors(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a"})

	bad := models.GoalPriority("urgent")
	if _, err := s.UpdateGoal(id, GoalUpdate{Priority: &bad}); err == nil {
		t.Error("expected error for invalid priority")
	}
	empty := " "
	if _, err := s.UpdateGoal(id, GoalUpdate{Title: &empty}); err == nil {
		t.Error("expected error for empty title")
	}
	if _, err := s.UpdateGoal("missing", GoalUpdate{}); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("err = %v, want ErrGoalNotFound", err)
	}
}

func TestGoalStore_UpdateCompletionRate_WritesOnlyOnChange(t *testing.T) {
	logger := &recordingEventLogger{}
	s := newTestGoalStore(t, logger)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a"})

	changed, err := s.UpdateCompletionRate(id, 50)
	if err != nil || !changed {
		t.Fatalf("first update: changed=%v err=%v", changed, err)
	}
	before, _ := s.GetGoalByID(id)

	changed, err = s.UpdateCompletionRate(id, 50)
	if err != nil || changed {
		t.Fatalf("same value: changed=%v err=%v, want false,nil", changed, err)
	}
	after, _ := s.GetGoalByID(id)
	if !after.Updated.Equal(before.Updated) {
		t.Error("unchanged rate must not touch Updated")
	}
	if logger.count(EventGoalRateChanged) != 1 {
		t.Errorf("rate_changed events = %d, want 1", logger.count(EventGoalRateChanged))
	}

	if changed, _ := s.UpdateCompletionRate(id, -5); !changed {
		t.Error("clamped 0 should differ from 50")
	}
	g, _ := s.GetGoalByID(id)
	if g.CompletionRate != 0 {
		t.Errorf("CompletionRate = %d, want 0", g.CompletionRate)
	}

	if _, err := s.UpdateCompletionRate("missing", 10); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("err = %v, want ErrGoalNotFound", err)
	}
}

func TestGoalStore_RemoveGoal(t *testing.T) {
	logger := &recordingEventLogger{}
	s := newTestGoalStore(t, logger)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a"})

	if err := s.RemoveGoal(id); err != nil {
		t.Fatalf("RemoveGoal: %v", err)
	}
	if _, err := s.GetGoalByID(id); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("goal still present after removal")
	}
	if err := s.RemoveGoal(id); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("second remove err = %v, want ErrGoalNotFound", err)
	}
	if logger.count(EventGoalRemoved) != 1 {
		t.Errorf("goal.removed events = %d, want 1", logger.count(EventGoalRemoved))
	}
}

func TestGoalStore_ToggleSubGoal(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a", SubGoals: []string{"one", "two", "three"}})
	g, _ := s.GetGoalByID(id)

	tests := []struct {
		subIdx   int
		wantDone bool
		wantRate int
	}{
		{0, true, 33},
		{1, true, 67},
		{2, true, 100},
		{1, false, 67},
	}
	for _, tt := range tests {
		out, err := s.ToggleSubGoal(id, g.SubGoals[tt.subIdx].ID)
		if err != nil {
			t.Fatalf("ToggleSubGoal(%d): %v", tt.subIdx, err)
		}
		if out.SubGoals[tt.subIdx].Completed != tt.wantDone {
			t.Errorf("sub-goal %d Completed = %v, want %v", tt.subIdx, out.SubGoals[tt.subIdx].Completed, tt.wantDone)
		}
		if out.CompletionRate != tt.wantRate {
			t.Errorf("after toggling %d: rate = %d, want %d", tt.subIdx, out.CompletionRate, tt.wantRate)
		}
	}
}

func TestGoalStore_ToggleSubGoal_RoundTrip(t *testing.T) {
	logger := &recordingEventLogger{}
	s := newTestGoalStore(t, logger)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a", SubGoals: []string{"one", "two", "three", "four"}})
	g, _ := s.GetGoalByID(id)

	if out, _ := s.ToggleSubGoal(id, g.SubGoals[0].ID); out.CompletionRate != 25 {
		t.Fatalf("one of four done: rate = %d, want 25", out.CompletionRate)
	}

	out, err := s.ToggleSubGoal(id, g.SubGoals[2].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !out.SubGoals[2].Completed || out.CompletionRate != 50 {
		t.Errorf("after completing a second: completed=%v rate=%d, want true and 50", out.SubGoals[2].Completed, out.CompletionRate)
	}

	out, err = s.ToggleSubGoal(id, g.SubGoals[2].ID)
	if err != nil {
		t.Fatal(err)
	}
	if out.SubGoals[2].Completed || out.CompletionRate != 25 {
		t.Errorf("after toggling it back: completed=%v rate=%d, want false and 25", out.SubGoals[2].Completed, out.CompletionRate)
	}

	stored, _ := s.GetGoalByID(id)
	if stored.CompletionRate != 25 || !stored.SubGoals[0].Completed {
		t.Errorf("stored goal = rate %d first done %v, want 25 and true", stored.CompletionRate, stored.SubGoals[0].Completed)
	}
	if n := logger.count(EventSubGoalToggled); n != 3 {
		t.Errorf("sub_goal toggled events = %d, want 3", n)
	}
}

func TestGoalStore_ToggleSubGoal_Errors(t *testing.T) {
	s := newTestGoalStore(t, nil)
	bare, _ := s.AddGoal(models.GoalDraft{Title: "bare"})
	withSubs, _ := s.AddGoal(models.GoalDraft{Title: "subs", SubGoals: []string{"one"}})

	tests := []struct {
		name    string
		goalID  string
		subID   string
		wantErr error
	}{
		{"no sub-goals", bare, "anything", ErrNoSubGoals},
		{"unknown goal", "missing", "x", ErrGoalNotFound},
		{"unknown sub-goal", withSubs, "missing", ErrSubGoalNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ToggleSubGoal(tt.goalID, tt.subID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	g, _ := s.GetGoalByID(bare)
	if g.CompletionRate != 0 {
		t.Errorf("rate written for goal with no sub-goals: %d", g.CompletionRate)
	}
}

func TestGoalStore_ToggleSubGoal_TaskLinkedGoalKeepsRate(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a", SubGoals: []string{"one"}})
	if err := s.SetProgressSource(id, models.ProgressTasks); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateCompletionRate(id, 25); err != nil {
		t.Fatal(err)
	}
	g, _ := s.GetGoalByID(id)

	out, err := s.ToggleSubGoal(id, g.SubGoals[0].ID)
	if err != nil {
		t.Fatalf("ToggleSubGoal: %v", err)
	}
	if !out.SubGoals[0].Completed {
		t.Error("flag must still flip")
	}
	if out.CompletionRate != 25 {
		t.Errorf("rate = %d, want task-derived 25 to be kept", out.CompletionRate)
	}
}

func TestGoalStore_AddRemoveSubGoal(t *testing.T) {
	s := newTestGoalStore(t, nil)
	id, _ := s.AddGoal(models.GoalDraft{Title: "a", SubGoals: []string{"one"}})
	g, _ := s.GetGoalByID(id)
	if _, err := s.ToggleSubGoal(id, g.SubGoals[0].ID); err != nil {
		t.Fatal(err)
	}

	subID, err := s.AddSubGoal(id, "two")
	if err != nil {
		t.Fatalf("AddSubGoal: %v", err)
	}
	g, _ = s.GetGoalByID(id)
	if g.CompletionRate != 50 {
		t.Errorf("rate after adding open sub-goal = %d, want 50", g.CompletionRate)
	}

	if err := s.RemoveSubGoal(id, subID); err != nil {
		t.Fatalf("RemoveSubGoal: %v", err)
	}
	g, _ = s.GetGoalByID(id)
	if g.CompletionRate != 100 {
		t.Errorf("rate after removing open sub-goal = %d, want 100", g.CompletionRate)
	}
	if err := s.RemoveSubGoal(id, subID); !errors.Is(err, ErrSubGoalNotFound) {
		t.Errorf("err = %v, want ErrSubGoalNotFound", err)
	}
	if _, err := s.AddSubGoal(id, ""); err == nil {
		t.Error("expected error for empty sub-goal title")
	}
}
