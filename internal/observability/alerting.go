package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionGoalOverdue = "goal_overdue"
	ConditionGoalAtRisk  = "goal_at_risk"
	ConditionGoalStalled = "goal_stalled"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	GoalID      string        `json:"goal_id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	AtRiskDays int `yaml:"at_risk_days" json:"at_risk_days"`
	AtRiskRate int `yaml:"at_risk_rate" json:"at_risk_rate"`
	StallDays  int `yaml:"stall_days" json:"stall_days"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		AtRiskDays: 7,
		AtRiskRate: 50,
		StallDays:  14,
	}
}

// GoalLister is the read side of the goal store the alert engine needs.
type GoalLister interface {
	GetAllGoals() []models.Goal
}

// AlertEngine evaluates goal deadline and activity conditions.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	goals      GoalLister
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine over goals. eventLog may be nil,
// which disables the stalled-goal check.
func NewAlertEngine(goals GoalLister, eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		goals:      goals,
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Evaluate checks every goal and returns the triggered alerts, most severe
// first.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now().UTC()
	goals := ae.goals.GetAllGoals()

	alerts := ae.checkDeadlines(goals, now)

	stalled, err := ae.checkStalledGoals(goals, now)
	if err != nil {
		return nil, fmt.Errorf("checking stalled goals: %w", err)
	}
	alerts = append(alerts, stalled...)

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := severityRank(alerts[i].Severity), severityRank(alerts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// checkDeadlines flags unfinished goals that are past their deadline day, or
// close to it with too little progress. Goals with unparseable deadlines are
// skipped.
func (ae *alertEngine) checkDeadlines(goals []models.Goal, now time.Time) []Alert {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var alerts []Alert
	for _, g := range goals {
		if g.CompletionRate >= 100 {
			continue
		}
		deadline, err := time.Parse(models.DeadlineLayout, g.Deadline)
		if err != nil {
			continue
		}
		daysLeft := int(deadline.Sub(today).Hours() / 24)

		switch {
		case daysLeft < 0:
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("overdue-%s", g.ID),
				GoalID:      g.ID,
				Condition:   ConditionGoalOverdue,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("goal %q passed its deadline %s at %d%%", g.Title, g.Deadline, g.CompletionRate),
				TriggeredAt: now,
			})
		case daysLeft <= ae.thresholds.AtRiskDays && g.CompletionRate < ae.thresholds.AtRiskRate:
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("at-risk-%s", g.ID),
				GoalID:      g.ID,
				Condition:   ConditionGoalAtRisk,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("goal %q is due in %d days at %d%%", g.Title, daysLeft, g.CompletionRate),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkStalledGoals flags unfinished goals with no logged activity for more
// than StallDays. A goal's activity is its creation time or its newest event,
// whichever is later.
func (ae *alertEngine) checkStalledGoals(goals []models.Goal, now time.Time) ([]Alert, error) {
	if ae.eventLog == nil || ae.thresholds.StallDays <= 0 {
		return nil, nil
	}
	events, err := ae.eventLog.Read(EventFilter{})
	if err != nil {
		return nil, err
	}

	lastActivity := make(map[string]time.Time)
	for _, event := range events {
		id := event.GoalID()
		if id == "" {
			continue
		}
		if event.Time.After(lastActivity[id]) {
			lastActivity[id] = event.Time
		}
	}

	threshold := time.Duration(ae.thresholds.StallDays) * 24 * time.Hour
	var alerts []Alert
	for _, g := range goals {
		if g.CompletionRate >= 100 {
			continue
		}
		last := g.Created
		if t, ok := lastActivity[g.ID]; ok && t.After(last) {
			last = t
		}
		if last.IsZero() || now.Sub(last) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("stalled-%s", g.ID),
			GoalID:      g.ID,
			Condition:   ConditionGoalStalled,
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("goal %q has had no activity for more than %d days", g.Title, ae.thresholds.StallDays),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}
