package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

const progressBarWidth = 20

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

// progressBar renders rate (0..100) as a fixed-width bar followed by the
// percentage.
func progressBar(rate, width int) string {
	rate = max(0, min(100, rate))
	filled := rate * width / 100
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3d%%", rate)
}

func styleForPriority(p models.GoalPriority) lipgloss.Style {
	switch p {
	case models.PriorityHigh:
		return priorityHigh
	case models.PriorityMedium:
		return priorityMedium
	case models.PriorityLow:
		return priorityLow
	default:
		return lipgloss.NewStyle()
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// taskSlot is the time shown for a task: its range when set, else its time.
func taskSlot(t models.Task) string {
	if t.TimeRange != nil && t.TimeRange.Start != "" {
		if t.TimeRange.End != "" {
			return t.TimeRange.Start + "-" + t.TimeRange.End
		}
		return t.TimeRange.Start
	}
	if t.Time == "" {
		return "--:--"
	}
	return t.Time
}
