package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// TaskUpdate carries an explicit edit to a task. Nil fields are left as-is.
// An empty GoalID unlinks the task.
type TaskUpdate struct {
	Title     *string
	Time      *string
	TimeRange *models.TimeRange
	Completed *bool
	GoalID    *string
	Order     *int
}

// TaskStore owns the canonical task list. Every mutation that can change a
// task's completion or goal link runs a reconciliation pass before returning.
type TaskStore interface {
	AddTask(task models.Task) (string, error)
	UpdateTask(id string, update TaskUpdate) (*models.Task, error)
	RemoveTask(id string) error
	ToggleCompletion(id string) (bool, error)
	ReorderTask(id string, order int) error
	GetTask(id string) (*models.Task, error)
	GetAllTasks() []models.Task
	TasksForGoal(goalID string) []models.Task
}

type taskStore struct {
	mu          sync.Mutex
	tasks       []models.Task
	reconciler  ProgressReconciler
	eventLogger EventLogger
	now         func() time.Time
	newID       func() string
}

// NewTaskStore creates a TaskStore seeded with initial. reconciler and
// eventLogger may be nil; without a reconciler goal rates are never derived.
func NewTaskStore(initial []models.Task, reconciler ProgressReconciler, eventLogger EventLogger) TaskStore {
	tasks := make([]models.Task, len(initial))
	for i, t := range initial {
		tasks[i] = cloneTask(t)
	}
	return &taskStore{
		tasks:       tasks,
		reconciler:  reconciler,
		eventLogger: eventLogger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func cloneTask(t models.Task) models.Task {
	if t.TimeRange != nil {
		tr := *t.TimeRange
		t.TimeRange = &tr
	}
	return t
}

func (s *taskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// reconcileLocked runs the reconciliation pass for the mutation that was just
// committed. Holding s.mu keeps the task update ahead of its pass and stops
// passes for unrelated mutations from interleaving.
func (s *taskStore) reconcileLocked() {
	if s.reconciler == nil {
		return
	}
	snapshot := make([]models.Task, len(s.tasks))
	copy(snapshot, s.tasks)
	s.reconciler.ReconcileTasks(snapshot)
}

func (s *taskStore) AddTask(task models.Task) (string, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return "", fmt.Errorf("adding task: title must not be empty")
	}
	task = cloneTask(task)
	task.ID = s.newID()
	now := s.now().UTC()
	task.Created = now
	task.Updated = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = append(s.tasks, task)
	s.reconcileLocked()

	emit(s.eventLogger, EventTaskCreated, map[string]any{
		"task_id":   task.ID,
		"goal_id":   task.GoalID,
		"completed": task.Completed,
	})
	return task.ID, nil
}

func (s *taskStore) UpdateTask(id string, update TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("updating task %s: %w", id, ErrTaskNotFound)
	}
	t := &s.tasks[i]

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("updating task %s: title must not be empty", id)
		}
		t.Title = title
	}
	if update.Time != nil {
		t.Time = *update.Time
	}
	if update.TimeRange != nil {
		tr := *update.TimeRange
		t.TimeRange = &tr
	}
	if update.Completed != nil {
		t.Completed = *update.Completed
	}
	if update.GoalID != nil {
		t.GoalID = *update.GoalID
	}
	if update.Order != nil {
		t.Order = *update.Order
	}
	t.Updated = s.now().UTC()
	out := cloneTask(*t)

	s.reconcileLocked()
	emit(s.eventLogger, EventTaskUpdated, map[string]any{
		"task_id": id,
		"goal_id": out.GoalID,
	})
	return &out, nil
}

// RemoveTask deletes a task and reconciles the goal it was linked to.
func (s *taskStore) RemoveTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("removing task %s: %w", id, ErrTaskNotFound)
	}
	goalID := s.tasks[i].GoalID
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.reconcileLocked()

	emit(s.eventLogger, EventTaskRemoved, map[string]any{
		"task_id": id,
		"goal_id": goalID,
	})
	return nil
}

// ToggleCompletion flips a task's completion flag and returns the new value.
func (s *taskStore) ToggleCompletion(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, fmt.Errorf("toggling task %s: %w", id, ErrTaskNotFound)
	}
	t := &s.tasks[i]
	t.Completed = !t.Completed
	t.Updated = s.now().UTC()
	completed, goalID := t.Completed, t.GoalID

	s.reconcileLocked()

	eventType := EventTaskCompleted
	if !completed {
		eventType = EventTaskReopened
	}
	emit(s.eventLogger, eventType, map[string]any{
		"task_id": id,
		"goal_id": goalID,
	})
	return completed, nil
}

// ReorderTask changes a task's same-slot order. Ordering cannot affect
// completion, so no reconciliation pass runs.
func (s *taskStore) ReorderTask(id string, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("reordering task %s: %w", id, ErrTaskNotFound)
	}
	s.tasks[i].Order = order
	s.tasks[i].Updated = s.now().UTC()
	return nil
}

func (s *taskStore) GetTask(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("getting task %s: %w", id, ErrTaskNotFound)
	}
	t := cloneTask(s.tasks[i])
	return &t, nil
}

// GetAllTasks returns every task ordered by time slot, then by order within
// the slot. Tasks without a slot sort last.
func (s *taskStore) GetAllTasks() []models.Task {
	s.mu.Lock()
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = cloneTask(t)
	}
	s.mu.Unlock()

	sortTasks(out)
	return out
}

func (s *taskStore) TasksForGoal(goalID string) []models.Task {
	var out []models.Task
	for _, t := range s.GetAllTasks() {
		if t.GoalID == goalID {
			out = append(out, t)
		}
	}
	return out
}

func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ki, kj := tasks[i].SlotKey(), tasks[j].SlotKey()
		if ki != kj {
			if ki == "" {
				return false
			}
			if kj == "" {
				return true
			}
			return ki < kj
		}
		return tasks[i].Order < tasks[j].Order
	})
}
