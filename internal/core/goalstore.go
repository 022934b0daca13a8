package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// GoalUpdate carries an explicit edit to a goal. Nil fields are left as-is.
// Setting CompletionRate records a manual edit; it does not trigger task
// reconciliation.
type GoalUpdate struct {
	Title          *string
	Description    *string
	Priority       *models.GoalPriority
	Deadline       *string
	Icon           *string
	CompletionRate *int
}

// GoalStore owns the canonical goal list.
type GoalStore interface {
	AddGoal(draft models.GoalDraft) (string, error)
	GetGoalByID(id string) (*models.Goal, error)
	GetAllGoals() []models.Goal
	UpdateGoal(id string, update GoalUpdate) (*models.Goal, error)
	UpdateCompletionRate(id string, rate int) (bool, error)
	SetProgressSource(id string, source models.ProgressSource) error
	RemoveGoal(id string) error
	AddSubGoal(goalID, title string) (string, error)
	RemoveSubGoal(goalID, subGoalID string) error
	ToggleSubGoal(goalID, subGoalID string) (*models.Goal, error)
}

type goalStore struct {
	mu          sync.Mutex
	goals       []models.Goal
	eventLogger EventLogger
	now         func() time.Time
	newID       func() string
}

// NewGoalStore creates a GoalStore seeded with initial. The slice is copied;
// later changes to it do not affect the store. eventLogger may be nil.
func NewGoalStore(initial []models.Goal, eventLogger EventLogger) GoalStore {
	goals := make([]models.Goal, 0, len(initial))
	for _, g := range initial {
		goals = append(goals, g.Clone())
	}
	return &goalStore{
		goals:       goals,
		eventLogger: eventLogger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *goalStore) indexOf(id string) int {
	for i := range s.goals {
		if s.goals[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *goalStore) AddGoal(draft models.GoalDraft) (string, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return "", fmt.Errorf("adding goal: title must not be empty")
	}
	priority := draft.Priority
	if !priority.Valid() {
		priority = models.PriorityMedium
	}

	now := s.now().UTC()
	goal := models.Goal{
		ID:             s.newID(),
		Title:          title,
		Description:    draft.Description,
		Priority:       priority,
		Deadline:       draft.Deadline,
		CompletionRate: clampRate(draft.CompletionRate),
		Icon:           draft.Icon,
		Created:        now,
		Updated:        now,
	}
	for _, st := range draft.SubGoals {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}
		goal.SubGoals = append(goal.SubGoals, models.SubGoal{ID: s.newID(), Title: st})
	}
	if len(goal.SubGoals) > 0 {
		goal.CompletionRate = subGoalRate(goal.SubGoals)
		goal.ProgressSource = models.ProgressSubGoals
	}

	s.mu.Lock()
	s.goals = append(s.goals, goal)
	s.mu.Unlock()

	emit(s.eventLogger, EventGoalCreated, map[string]any{
		"goal_id":  goal.ID,
		"title":    goal.Title,
		"priority": string(goal.Priority),
		"deadline": goal.Deadline,
	})
	return goal.ID, nil
}

func (s *goalStore) GetGoalByID(id string) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("getting goal %s: %w", id, ErrGoalNotFound)
	}
	g := s.goals[i].Clone()
	return &g, nil
}

func (s *goalStore) GetAllGoals() []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Goal, len(s.goals))
	for i, g := range s.goals {
		out[i] = g.Clone()
	}
	return out
}

func (s *goalStore) UpdateGoal(id string, update GoalUpdate) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("updating goal %s: %w", id, ErrGoalNotFound)
	}
	g := &s.goals[i]

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("updating goal %s: title must not be empty", id)
		}
		g.Title = title
	}
	if update.Description != nil {
		g.Description = *update.Description
	}
	if update.Priority != nil {
		if !update.Priority.Valid() {
			return nil, fmt.Errorf("updating goal %s: invalid priority %q", id, *update.Priority)
		}
		g.Priority = *update.Priority
	}
	if update.Deadline != nil {
		g.Deadline = *update.Deadline
	}
	if update.Icon != nil {
		g.Icon = *update.Icon
	}
	if update.CompletionRate != nil {
		g.CompletionRate = clampRate(*update.CompletionRate)
	}
	g.Updated = s.now().UTC()

	out := g.Clone()
	emit(s.eventLogger, EventGoalUpdated, map[string]any{"goal_id": id})
	return &out, nil
}

// UpdateCompletionRate writes rate (clamped to [0,100]) and reports whether
// the stored value changed. An unchanged rate is not written.
func (s *goalStore) UpdateCompletionRate(id string, rate int) (bool, error) {
	rate = clampRate(rate)

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("updating completion rate of %s: %w", id, ErrGoalNotFound)
	}
	prev := s.goals[i].CompletionRate
	if prev == rate {
		s.mu.Unlock()
		return false, nil
	}
	s.goals[i].CompletionRate = rate
	s.goals[i].Updated = s.now().UTC()
	s.mu.Unlock()

	emit(s.eventLogger, EventGoalRateChanged, map[string]any{
		"goal_id":  id,
		"previous": prev,
		"current":  rate,
	})
	return true, nil
}

func (s *goalStore) SetProgressSource(id string, source models.ProgressSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("setting progress source of %s: %w", id, ErrGoalNotFound)
	}
	s.goals[i].ProgressSource = source
	return nil
}

// RemoveGoal deletes a goal. Linked tasks are not touched and keep their
// now-dangling GoalID.
func (s *goalStore) RemoveGoal(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("removing goal %s: %w", id, ErrGoalNotFound)
	}
	s.goals = append(s.goals[:i], s.goals[i+1:]...)
	s.mu.Unlock()

	emit(s.eventLogger, EventGoalRemoved, map[string]any{"goal_id": id})
	return nil
}

func (s *goalStore) AddSubGoal(goalID, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("adding sub-goal to %s: title must not be empty", goalID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(goalID)
	if i < 0 {
		return "", fmt.Errorf("adding sub-goal to %s: %w", goalID, ErrGoalNotFound)
	}
	g := &s.goals[i]
	sub := models.SubGoal{ID: s.newID(), Title: title}
	g.SubGoals = append(g.SubGoals, sub)
	s.recomputeFromSubGoals(g)
	return sub.ID, nil
}

func (s *goalStore) RemoveSubGoal(goalID, subGoalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(goalID)
	if i < 0 {
		return fmt.Errorf("removing sub-goal from %s: %w", goalID, ErrGoalNotFound)
	}
	g := &s.goals[i]
	j := subGoalIndex(g.SubGoals, subGoalID)
	if j < 0 {
		return fmt.Errorf("removing sub-goal %s from %s: %w", subGoalID, goalID, ErrSubGoalNotFound)
	}
	g.SubGoals = append(g.SubGoals[:j], g.SubGoals[j+1:]...)
	s.recomputeFromSubGoals(g)
	return nil
}

// ToggleSubGoal flips exactly one sub-goal and recomputes the owning goal's
// rate in the same update. Goals whose rate is owned by linked tasks keep
// their rate; only the flag changes.
func (s *goalStore) ToggleSubGoal(goalID, subGoalID string) (*models.Goal, error) {
	s.mu.Lock()

	i := s.indexOf(goalID)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("toggling sub-goal on %s: %w", goalID, ErrGoalNotFound)
	}
	g := &s.goals[i]
	if len(g.SubGoals) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("toggling sub-goal on %s: %w", goalID, ErrNoSubGoals)
	}
	j := subGoalIndex(g.SubGoals, subGoalID)
	if j < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("toggling sub-goal %s on %s: %w", subGoalID, goalID, ErrSubGoalNotFound)
	}

	g.SubGoals[j].Completed = !g.SubGoals[j].Completed
	s.recomputeFromSubGoals(g)
	out := g.Clone()
	s.mu.Unlock()

	emit(s.eventLogger, EventSubGoalToggled, map[string]any{
		"goal_id":    goalID,
		"subgoal_id": subGoalID,
		"completed":  out.SubGoals[j].Completed,
		"rate":       out.CompletionRate,
	})
	return &out, nil
}

// recomputeFromSubGoals must be called with s.mu held.
func (s *goalStore) recomputeFromSubGoals(g *models.Goal) {
	g.Updated = s.now().UTC()
	if g.ProgressSource == models.ProgressTasks || len(g.SubGoals) == 0 {
		return
	}
	g.CompletionRate = subGoalRate(g.SubGoals)
	g.ProgressSource = models.ProgressSubGoals
}

func subGoalRate(subs []models.SubGoal) int {
	done := 0
	for _, sg := range subs {
		if sg.Completed {
			done++
		}
	}
	rate, _ := completionPercent(done, len(subs))
	return rate
}

func subGoalIndex(subs []models.SubGoal, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}
