package cli

import (
	"fmt"

	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/internal/observability"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// Saver persists the goal and task stores.
type Saver interface {
	Save() error
}

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	Config    *models.GlobalConfig
	Goals     core.GoalStore
	Tasks     core.TaskStore
	Extractor core.GoalExtractor
	Committer core.GoalCommitter
	Companion core.Companion
	State     Saver
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)

// saveState writes both snapshot files after a mutating command.
func saveState() error {
	if State == nil {
		return nil
	}
	if err := State.Save(); err != nil {
		return fmt.Errorf("saving goals and tasks: %w", err)
	}
	return nil
}
