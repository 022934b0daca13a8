package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Dashboard panel indices.
const (
	panelGoals = iota
	panelTasks
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	taskCursor  int
	width       int
	height      int

	// Data.
	goals       []goalSnapshot
	tasks       []taskSnapshot
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// State.
	loading bool
	status  string
	err     error
}

type goalSnapshot struct {
	icon     string
	title    string
	priority string
	deadline string
	rate     int
}

type taskSnapshot struct {
	id        string
	slot      string
	title     string
	goal      string
	completed bool
}

type metricsSnapshot struct {
	goalsCommitted       int
	duplicatesSuppressed int
	draftsExtracted      int
	rateChanges          int
	tasksCompleted       int
	eventCount           int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	goals   []goalSnapshot
	tasks   []taskSnapshot
	metrics *metricsSnapshot
	alerts  []alertSnapshot
	err     error
}

// taskToggledMsg reports the outcome of toggling a task from the dashboard.
type taskToggledMsg struct {
	id        string
	completed bool
	err       error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	taskDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	taskPending = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelGoals,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		case "up", "k":
			if m.activePanel == panelTasks && m.taskCursor > 0 {
				m.taskCursor--
			}
			return m, nil
		case "down", "j":
			if m.activePanel == panelTasks && m.taskCursor < len(m.tasks)-1 {
				m.taskCursor++
			}
			return m, nil
		case " ", "x":
			if m.activePanel == panelTasks && m.taskCursor < len(m.tasks) {
				return m, toggleTask(m.tasks[m.taskCursor].id)
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.goals = msg.goals
		m.tasks = msg.tasks
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		if m.taskCursor >= len(m.tasks) {
			m.taskCursor = max(0, len(m.tasks)-1)
		}
		m.err = nil
		return m, nil

	case taskToggledMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("toggle failed: %s", msg.err)
			return m, nil
		}
		state := "reopened"
		if msg.completed {
			state = "completed"
		}
		m.status = fmt.Sprintf("task %s %s", msg.id, state)
		return m, loadData
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Goals Dashboard ")
	help := helpStyle.Render("tab: switch panel | ↑/↓: select task | space: toggle task | r: refresh | q: quit")
	if m.status != "" {
		help = helpStyle.Render(m.status) + "\n" + help
	}

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	panels := []string{
		m.renderGoalsPanel(),
		m.renderTasksPanel(),
		m.renderMetricsPanel(),
		m.renderAlertsPanel(),
	}

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Two-by-two grid.
		colWidth := availableWidth / 2
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], colWidth-4)
		}
		top := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelGoals], panels[panelTasks])
		bottom := lipgloss.JoinHorizontal(lipgloss.Top, panels[panelMetrics], panels[panelAlerts])
		body = lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	} else {
		// Vertical layout: stacked.
		panelWidth := max(availableWidth-4, 20)
		for i := range panels {
			panels[i] = m.applyPanelStyle(i, panels[i], panelWidth)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, panels...)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderGoalsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Goals"))
	b.WriteString("\n")

	if len(m.goals) == 0 {
		b.WriteString("  No goals yet.")
		return b.String()
	}

	for _, g := range m.goals {
		b.WriteString(fmt.Sprintf("  %s %s  %s\n", g.icon, g.title, helpStyle.Render("due "+g.deadline)))
		b.WriteString(fmt.Sprintf("     %s\n", progressBar(g.rate, progressBarWidth)))
	}
	return b.String()
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	done := 0
	for i, t := range m.tasks {
		cursor := "  "
		if m.activePanel == panelTasks && i == m.taskCursor {
			cursor = cursorStyle.Render("> ")
		}
		style := taskPending
		if t.completed {
			style = taskDone
			done++
		}
		line := fmt.Sprintf("%s %-11s %s", checkbox(t.completed), t.slot, t.title)
		b.WriteString(cursor + style.Render(line))
		if t.goal != "" {
			b.WriteString(helpStyle.Render("  → " + t.goal))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n  Done: %d/%d", done, len(m.tasks)))
	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Committed", md.goalsCommitted},
		{"Duplicates", md.duplicatesSuppressed},
		{"Extracted", md.draftsExtracted},
		{"Rate changes", md.rateChanges},
		{"Tasks done", md.tasksCompleted},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}
	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))
	return b.String()
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	if Goals != nil {
		goals := Goals.GetAllGoals()
		sort.SliceStable(goals, func(i, j int) bool { return goals[i].Deadline < goals[j].Deadline })
		for _, g := range goals {
			icon := g.Icon
			if icon == "" {
				icon = "🎯"
			}
			result.goals = append(result.goals, goalSnapshot{
				icon:     icon,
				title:    g.Title,
				priority: string(g.Priority),
				deadline: g.Deadline,
				rate:     g.CompletionRate,
			})
		}
	}

	if Tasks != nil {
		for _, t := range Tasks.GetAllTasks() {
			snap := taskSnapshot{
				id:        t.ID,
				slot:      taskSlot(t),
				title:     t.Title,
				completed: t.Completed,
			}
			if t.GoalID != "" {
				snap.goal = goalLabel(t.GoalID)
			}
			result.tasks = append(result.tasks, snap)
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			goalsCommitted:       metrics.GoalsCommitted,
			duplicatesSuppressed: metrics.DuplicatesSuppressed,
			draftsExtracted:      metrics.DraftsExtracted,
			rateChanges:          metrics.RateChanges,
			tasksCompleted:       metrics.TasksCompleted,
			eventCount:           metrics.EventCount,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))
		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

// toggleTask flips a task's completion and saves the stores.
func toggleTask(id string) tea.Cmd {
	return func() tea.Msg {
		if Tasks == nil {
			return taskToggledMsg{id: id, err: fmt.Errorf("task store not initialized")}
		}
		completed, err := Tasks.ToggleCompletion(id)
		if err != nil {
			return taskToggledMsg{id: id, err: err}
		}
		if err := saveState(); err != nil {
			return taskToggledMsg{id: id, completed: completed, err: err}
		}
		return taskToggledMsg{id: id, completed: completed}
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for goals, tasks, metrics and alerts",
	Long: `Launch an interactive terminal dashboard showing goal progress, the
task schedule, metrics, and alerts.

Navigate between panels with Tab, toggle the selected task with space,
refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Goals == nil || Tasks == nil {
			return fmt.Errorf("goal services not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
