// Package mcp provides an MCP (Model Context Protocol) server that exposes
// goals, tasks and goal extraction as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/internal/observability"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// SourceMCP identifies commits made through the extract_goal tool.
const SourceMCP = "mcp"

// Persister writes the current store state to durable storage.
type Persister interface {
	Save() error
}

// Deps are the services the server exposes. Goals, Tasks and Extractor are
// required; the rest may be nil, which disables the tools that need them.
type Deps struct {
	Goals       core.GoalStore
	Tasks       core.TaskStore
	Extractor   core.GoalExtractor
	Committer   core.GoalCommitter
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
	Persister   Persister
}

// Server wraps the goal services and exposes them as MCP tools.
type Server struct {
	server *gomcp.Server
	deps   Deps
}

// NewServer creates a new MCP server over deps.
func NewServer(deps Deps, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{deps: deps}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "goals", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type subGoalOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type goalOutput struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Priority       string          `json:"priority"`
	Deadline       string          `json:"deadline"`
	CompletionRate int             `json:"completion_rate"`
	Icon           string          `json:"icon,omitempty"`
	ProgressSource string          `json:"progress_source,omitempty"`
	SubGoals       []subGoalOutput `json:"sub_goals,omitempty"`
	Created        string          `json:"created"`
	Updated        string          `json:"updated"`
}

type listGoalsInput struct {
	Priority string `json:"priority,omitempty" jsonschema:"filter goals by priority (high, medium, low)"`
}

type listGoalsOutput struct {
	Goals []goalOutput `json:"goals"`
	Count int          `json:"count"`
}

type getGoalInput struct {
	GoalID string `json:"goal_id" jsonschema:"the goal identifier"`
}

type getGoalOutput struct {
	Goal  goalOutput   `json:"goal"`
	Tasks []taskOutput `json:"tasks"`
}

type taskOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Time      string `json:"time,omitempty"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	Completed bool   `json:"completed"`
	GoalID    string `json:"goal_id,omitempty"`
	Order     int    `json:"order"`
}

type listTasksInput struct {
	GoalID  string `json:"goal_id,omitempty" jsonschema:"only list tasks linked to this goal"`
	Pending bool   `json:"pending,omitempty" jsonschema:"only list tasks that are not completed"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type toggleTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"the task identifier"`
}

type toggleTaskOutput struct {
	TaskID    string      `json:"task_id"`
	Completed bool        `json:"completed"`
	Goal      *goalOutput `json:"goal,omitempty"`
}

type toggleSubGoalInput struct {
	GoalID    string `json:"goal_id" jsonschema:"the goal owning the sub-goal"`
	SubGoalID string `json:"subgoal_id" jsonschema:"the sub-goal identifier"`
}

type extractGoalInput struct {
	Text   string `json:"text" jsonschema:"assistant reply text to scan for a goal"`
	Commit bool   `json:"commit,omitempty" jsonschema:"create the goal when one is found"`
}

type extractGoalOutput struct {
	Found     bool              `json:"found"`
	Draft     *models.GoalDraft `json:"draft,omitempty"`
	Committed bool              `json:"committed"`
	Duplicate bool              `json:"duplicate"`
	GoalID    string            `json:"goal_id,omitempty"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	GoalsCreated         int            `json:"goals_created"`
	GoalsCommitted       int            `json:"goals_committed"`
	DuplicatesSuppressed int            `json:"duplicates_suppressed"`
	DraftsExtracted      int            `json:"drafts_extracted"`
	RateChanges          int            `json:"rate_changes"`
	GoalsReachedComplete int            `json:"goals_reached_complete"`
	SubGoalToggles       int            `json:"subgoal_toggles"`
	TasksCreated         int            `json:"tasks_created"`
	TasksCompleted       int            `json:"tasks_completed"`
	CommitsBySource      map[string]int `json:"commits_by_source"`
	EventCount           int            `json:"event_count"`
	OldestEvent          string         `json:"oldest_event,omitempty"`
	NewestEvent          string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	GoalID      string `json:"goal_id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_goals",
		Description: "List goals with their completion rate, deadline and sub-goals, soonest deadline first.",
	}, s.handleListGoals)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_goal",
		Description: "Get a goal by ID together with the tasks linked to it.",
	}, s.handleGetGoal)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks in schedule order, optionally only those linked to one goal or not yet completed.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "toggle_task",
		Description: "Flip a task between completed and pending. The linked goal's completion rate is recalculated.",
	}, s.handleToggleTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "toggle_subgoal",
		Description: "Flip a sub-goal's completion. Affects the goal's rate only while the goal has no linked tasks.",
	}, s.handleToggleSubGoal)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "extract_goal",
		Description: "Detect a goal-creation confirmation in assistant text and return the extracted draft. Set commit to create the goal.",
	}, s.handleExtractGoal)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: commits, suppressed duplicates, rate changes and task completions.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active goal alerts (overdue, at risk, stalled).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListGoals(_ context.Context, _ *gomcp.CallToolRequest, input listGoalsInput) (*gomcp.CallToolResult, listGoalsOutput, error) {
	if input.Priority != "" && !models.GoalPriority(input.Priority).Valid() {
		return errorResult(fmt.Sprintf("invalid priority %q: must be one of high, medium, low", input.Priority)), listGoalsOutput{}, nil
	}

	goals := s.deps.Goals.GetAllGoals()
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].Deadline < goals[j].Deadline })

	out := listGoalsOutput{Goals: []goalOutput{}}
	for _, g := range goals {
		if input.Priority != "" && string(g.Priority) != input.Priority {
			continue
		}
		out.Goals = append(out.Goals, goalToOutput(g))
	}
	out.Count = len(out.Goals)
	return nil, out, nil
}

func (s *Server) handleGetGoal(_ context.Context, _ *gomcp.CallToolRequest, input getGoalInput) (*gomcp.CallToolResult, getGoalOutput, error) {
	if input.GoalID == "" {
		return errorResult("goal_id is required"), getGoalOutput{}, nil
	}

	goal, err := s.deps.Goals.GetGoalByID(input.GoalID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting goal %s: %s", input.GoalID, err)), getGoalOutput{}, nil
	}

	out := getGoalOutput{Goal: goalToOutput(*goal), Tasks: []taskOutput{}}
	for _, t := range s.deps.Tasks.TasksForGoal(goal.ID) {
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	return nil, out, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var tasks []models.Task
	if input.GoalID != "" {
		tasks = s.deps.Tasks.TasksForGoal(input.GoalID)
	} else {
		tasks = s.deps.Tasks.GetAllTasks()
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range tasks {
		if input.Pending && t.Completed {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (s *Server) handleToggleTask(_ context.Context, _ *gomcp.CallToolRequest, input toggleTaskInput) (*gomcp.CallToolResult, toggleTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), toggleTaskOutput{}, nil
	}

	completed, err := s.deps.Tasks.ToggleCompletion(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("toggling task %s: %s", input.TaskID, err)), toggleTaskOutput{}, nil
	}
	if err := s.save(); err != nil {
		return errorResult(err.Error()), toggleTaskOutput{}, nil
	}

	out := toggleTaskOutput{TaskID: input.TaskID, Completed: completed}
	if task, err := s.deps.Tasks.GetTask(input.TaskID); err == nil && task.GoalID != "" {
		if goal, err := s.deps.Goals.GetGoalByID(task.GoalID); err == nil {
			g := goalToOutput(*goal)
			out.Goal = &g
		}
	}
	return nil, out, nil
}

func (s *Server) handleToggleSubGoal(_ context.Context, _ *gomcp.CallToolRequest, input toggleSubGoalInput) (*gomcp.CallToolResult, goalOutput, error) {
	if input.GoalID == "" || input.SubGoalID == "" {
		return errorResult("goal_id and subgoal_id are required"), goalOutput{}, nil
	}

	goal, err := s.deps.Goals.ToggleSubGoal(input.GoalID, input.SubGoalID)
	if err != nil {
		return errorResult(fmt.Sprintf("toggling sub-goal %s of goal %s: %s", input.SubGoalID, input.GoalID, err)), goalOutput{}, nil
	}
	if err := s.save(); err != nil {
		return errorResult(err.Error()), goalOutput{}, nil
	}
	return nil, goalToOutput(*goal), nil
}

func (s *Server) handleExtractGoal(_ context.Context, _ *gomcp.CallToolRequest, input extractGoalInput) (*gomcp.CallToolResult, extractGoalOutput, error) {
	draft := s.deps.Extractor.ExtractGoalIntent(input.Text)
	if draft == nil {
		return nil, extractGoalOutput{}, nil
	}

	out := extractGoalOutput{Found: true, Draft: draft}
	if !input.Commit {
		return nil, out, nil
	}
	if s.deps.Committer == nil {
		return errorResult("goal committer not available"), out, nil
	}

	res, err := s.deps.Committer.Commit(*draft, SourceMCP)
	if err != nil {
		return errorResult(fmt.Sprintf("committing goal: %s", err)), out, nil
	}
	out.Committed = res.Committed
	out.Duplicate = !res.Committed
	out.GoalID = res.GoalID
	if res.Committed {
		if err := s.save(); err != nil {
			return errorResult(err.Error()), out, nil
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.deps.MetricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.deps.MetricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		GoalsCreated:         metrics.GoalsCreated,
		GoalsCommitted:       metrics.GoalsCommitted,
		DuplicatesSuppressed: metrics.DuplicatesSuppressed,
		DraftsExtracted:      metrics.DraftsExtracted,
		RateChanges:          metrics.RateChanges,
		GoalsReachedComplete: metrics.GoalsReachedComplete,
		SubGoalToggles:       metrics.SubGoalToggles,
		TasksCreated:         metrics.TasksCreated,
		TasksCompleted:       metrics.TasksCompleted,
		CommitsBySource:      metrics.CommitsBySource,
		EventCount:           metrics.EventCount,
	}
	if out.CommitsBySource == nil {
		out.CommitsBySource = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.deps.AlertEngine == nil {
		return errorResult("alert engine not available"), getAlertsOutput{}, nil
	}

	alerts, err := s.deps.AlertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			GoalID:      a.GoalID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func (s *Server) save() error {
	if s.deps.Persister == nil {
		return nil
	}
	if err := s.deps.Persister.Save(); err != nil {
		return fmt.Errorf("saving goals and tasks: %w", err)
	}
	return nil
}

func goalToOutput(g models.Goal) goalOutput {
	out := goalOutput{
		ID:             g.ID,
		Title:          g.Title,
		Description:    g.Description,
		Priority:       string(g.Priority),
		Deadline:       g.Deadline,
		CompletionRate: g.CompletionRate,
		Icon:           g.Icon,
		ProgressSource: string(g.ProgressSource),
		Created:        g.Created.Format(time.RFC3339),
		Updated:        g.Updated.Format(time.RFC3339),
	}
	for _, sg := range g.SubGoals {
		out.SubGoals = append(out.SubGoals, subGoalOutput{ID: sg.ID, Title: sg.Title, Completed: sg.Completed})
	}
	return out
}

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:        t.ID,
		Title:     t.Title,
		Time:      t.Time,
		Completed: t.Completed,
		GoalID:    t.GoalID,
		Order:     t.Order,
	}
	if t.TimeRange != nil {
		out.Start = t.TimeRange.Start
		out.End = t.TimeRange.End
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{CommitsBySource: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
