package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/valter-silva-au/goal-companion/internal/observability"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedModel(t *testing.T) dashboardModel {
	t.Helper()
	m := newDashboardModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	updated, _ = updated.Update(dataLoadedMsg{
		goals: []goalSnapshot{{icon: "💪", title: "Run", deadline: "2025/04/01", rate: 50}},
		tasks: []taskSnapshot{
			{id: "t-1", slot: "07:00", title: "Morning run", goal: "Run"},
			{id: "t-2", slot: "--:--", title: "Stretch", completed: true},
		},
		metrics: &metricsSnapshot{goalsCommitted: 2, eventCount: 9},
		alerts:  []alertSnapshot{{severity: "high", message: "Run is overdue"}},
	})
	return updated.(dashboardModel)
}

func TestDashboardModel_InitialView(t *testing.T) {
	m := newDashboardModel()
	if m.View() != "Loading..." {
		t.Errorf("View before sizing = %q", m.View())
	}
	if m.Init() == nil {
		t.Error("Init should return the data loading command")
	}
}

func TestDashboardModel_RendersPanels(t *testing.T) {
	m := loadedModel(t)
	view := m.View()
	for _, want := range []string{"Goals Dashboard", "Run", "50%", "Morning run", "Done: 1/2", "Committed", "[HIGH]", "Run is overdue"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDashboardModel_PanelNavigation(t *testing.T) {
	m := loadedModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := updated.(dashboardModel).activePanel; got != panelTasks {
		t.Errorf("after tab activePanel = %d, want %d", got, panelTasks)
	}
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := updated.(dashboardModel).activePanel; got != panelAlerts {
		t.Errorf("after wrap-around activePanel = %d, want %d", got, panelAlerts)
	}
}

func TestDashboardModel_TaskCursor(t *testing.T) {
	m := loadedModel(t)

	// The cursor only moves on the tasks panel.
	updated, _ := m.Update(keyRunes("j"))
	if updated.(dashboardModel).taskCursor != 0 {
		t.Error("cursor moved while goals panel active")
	}

	m.activePanel = panelTasks
	updated, _ = m.Update(keyRunes("j"))
	updated, _ = updated.Update(keyRunes("j"))
	if got := updated.(dashboardModel).taskCursor; got != 1 {
		t.Errorf("taskCursor = %d, want clamped to 1", got)
	}
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := updated.(dashboardModel).taskCursor; got != 0 {
		t.Errorf("taskCursor = %d, want 0", got)
	}
}

func TestDashboardModel_ToggleKeyTogglesSelectedTask(t *testing.T) {
	f := setupCLI(t, nil)
	goalID := mustAddGoal(t, f, models.GoalDraft{Title: "Run", Deadline: "2025/04/01"})
	taskID := mustAddTask(t, f, models.Task{Title: "Morning run", GoalID: goalID})

	m := newDashboardModel()
	m.activePanel = panelTasks
	m.tasks = []taskSnapshot{{id: taskID}}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if cmd == nil {
		t.Fatal("space on tasks panel returned no command")
	}
	msg, ok := cmd().(taskToggledMsg)
	if !ok {
		t.Fatalf("command returned %T, want taskToggledMsg", cmd())
	}
	if msg.err != nil || !msg.completed || msg.id != taskID {
		t.Errorf("msg = %+v", msg)
	}
	if f.saver.saves != 1 {
		t.Errorf("saves = %d, want 1", f.saver.saves)
	}
	if g, _ := f.goals.GetGoalByID(goalID); g.CompletionRate != 100 {
		t.Errorf("goal rate = %d, want 100", g.CompletionRate)
	}

	updated, next := m.Update(msg)
	if !strings.Contains(updated.(dashboardModel).status, "completed") {
		t.Errorf("status = %q", updated.(dashboardModel).status)
	}
	if next == nil {
		t.Error("successful toggle should reload data")
	}
}

func TestDashboardModel_ToggleFailure(t *testing.T) {
	m := loadedModel(t)
	updated, cmd := m.Update(taskToggledMsg{id: "t-9", err: errors.New("task not found")})
	if cmd != nil {
		t.Error("failed toggle should not reload")
	}
	if !strings.Contains(updated.(dashboardModel).status, "toggle failed") {
		t.Errorf("status = %q", updated.(dashboardModel).status)
	}
}

func TestDashboardModel_LoadError(t *testing.T) {
	m := newDashboardModel()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	updated, _ = updated.Update(dataLoadedMsg{err: errors.New("boom")})
	if !strings.Contains(updated.View(), "Error: boom") {
		t.Errorf("view = %q", updated.View())
	}
}

func TestDashboardModel_QuitKeys(t *testing.T) {
	m := loadedModel(t)
	for _, key := range []tea.KeyMsg{keyRunes("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		if _, cmd := m.Update(key); cmd == nil {
			t.Errorf("%q did not return a quit command", key.String())
		}
	}
}

func TestLoadData(t *testing.T) {
	f := setupCLI(t, nil)
	late := mustAddGoal(t, f, models.GoalDraft{Title: "Late", Deadline: "2025/09/01"})
	mustAddGoal(t, f, models.GoalDraft{Title: "Soon", Deadline: "2025/04/01"})
	mustAddTask(t, f, models.Task{Title: "Plan", GoalID: late, Time: "08:00"})
	MetricsCalc = &metricsStub{metrics: &observability.Metrics{GoalsCommitted: 2}}
	AlertEngine = &alertsStub{alerts: sampleAlerts()}

	msg, ok := loadData().(dataLoadedMsg)
	if !ok {
		t.Fatal("loadData did not return dataLoadedMsg")
	}
	if msg.err != nil {
		t.Fatalf("err = %v", msg.err)
	}
	if len(msg.goals) != 2 || msg.goals[0].title != "Soon" {
		t.Errorf("goals = %+v, want sorted by deadline", msg.goals)
	}
	if len(msg.tasks) != 1 || msg.tasks[0].goal != "Late" || msg.tasks[0].slot != "08:00" {
		t.Errorf("tasks = %+v", msg.tasks)
	}
	if msg.metrics == nil || msg.metrics.goalsCommitted != 2 {
		t.Errorf("metrics = %+v", msg.metrics)
	}
	if len(msg.alerts) != 2 {
		t.Errorf("alerts = %d, want 2", len(msg.alerts))
	}

	AlertEngine = &alertsStub{err: errors.New("unreadable")}
	if msg := loadData().(dataLoadedMsg); msg.err == nil {
		t.Error("expected alert error to surface")
	}
}
