package storage

import (
	"fmt"
	"path/filepath"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// TasksFileName is the task snapshot file in the base directory.
const TasksFileName = "tasks.yaml"

// TaskFile is the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string        `yaml:"version"`
	Tasks   []models.Task `yaml:"tasks"`
}

// TaskRepository loads and saves the task snapshot.
type TaskRepository interface {
	Load() ([]models.Task, error)
	Save(tasks []models.Task) error
	Path() string
}

type fileTaskRepository struct {
	basePath string
}

// NewTaskRepository creates a TaskRepository backed by tasks.yaml in basePath.
func NewTaskRepository(basePath string) TaskRepository {
	return &fileTaskRepository{basePath: basePath}
}

func (r *fileTaskRepository) Path() string {
	return filepath.Join(r.basePath, TasksFileName)
}

// Load returns the saved tasks, or none when the file does not exist yet.
// A task whose goal no longer exists is kept; the link is weak.
func (r *fileTaskRepository) Load() ([]models.Task, error) {
	var tf TaskFile
	if _, err := readYAMLFile(r.Path(), &tf); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	for i, t := range tf.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("loading tasks: entry %d has no id", i)
		}
	}
	return tf.Tasks, nil
}

func (r *fileTaskRepository) Save(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	if err := writeYAMLFile(r.Path(), &TaskFile{Version: snapshotVersion, Tasks: tasks}); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}
