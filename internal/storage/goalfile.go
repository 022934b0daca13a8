package storage

import (
	"fmt"
	"path/filepath"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// GoalsFileName is the goal snapshot file in the base directory.
const GoalsFileName = "goals.yaml"

// GoalFile is the top-level structure of goals.yaml.
type GoalFile struct {
	Version string        `yaml:"version"`
	Goals   []models.Goal `yaml:"goals"`
}

// GoalRepository loads and saves the goal snapshot.
type GoalRepository interface {
	Load() ([]models.Goal, error)
	Save(goals []models.Goal) error
	Path() string
}

type fileGoalRepository struct {
	basePath string
}

// NewGoalRepository creates a GoalRepository backed by goals.yaml in basePath.
func NewGoalRepository(basePath string) GoalRepository {
	return &fileGoalRepository{basePath: basePath}
}

func (r *fileGoalRepository) Path() string {
	return filepath.Join(r.basePath, GoalsFileName)
}

// Load returns the saved goals, or none when the file does not exist yet.
func (r *fileGoalRepository) Load() ([]models.Goal, error) {
	var gf GoalFile
	if _, err := readYAMLFile(r.Path(), &gf); err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	for i, g := range gf.Goals {
		if g.ID == "" {
			return nil, fmt.Errorf("loading goals: entry %d has no id", i)
		}
	}
	return gf.Goals, nil
}

func (r *fileGoalRepository) Save(goals []models.Goal) error {
	if goals == nil {
		goals = []models.Goal{}
	}
	if err := writeYAMLFile(r.Path(), &GoalFile{Version: snapshotVersion, Goals: goals}); err != nil {
		return fmt.Errorf("saving goals: %w", err)
	}
	return nil
}
