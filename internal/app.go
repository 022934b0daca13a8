// Package internal provides the App struct that wires all components of the
// goal companion together and initializes the CLI layer.
package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/goal-companion/internal/cli"
	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/internal/integration"
	"github.com/valter-silva-au/goal-companion/internal/observability"
	"github.com/valter-silva-au/goal-companion/internal/storage"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// EventLogFileName is the JSONL event log in the base directory.
const EventLogFileName = ".goals_events.jsonl"

// App holds all service dependencies for the goal companion.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Logger   *zap.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	GoalRepo storage.GoalRepository
	TaskRepo storage.TaskRepository

	// Core services
	Goals      core.GoalStore
	Tasks      core.TaskStore
	Reconciler core.ProgressReconciler
	Extractor  core.GoalExtractor
	Relay      core.GoalRelay
	Committer  core.GoalCommitter
	Companion  core.Companion

	// Integration services
	Completer core.TextCompleter

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the goal companion. basePath is
// the directory holding .goalconfig and the goal and task snapshots.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Logger, err = newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: run without domain events.
		app.Logger.Warn("event log disabled", zap.Error(err))
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
	}

	// --- Storage layer ---
	app.GoalRepo = storage.NewGoalRepository(basePath)
	app.TaskRepo = storage.NewTaskRepository(basePath)
	goals, err := app.GoalRepo.Load()
	if err != nil {
		return nil, err
	}
	tasks, err := app.TaskRepo.Load()
	if err != nil {
		return nil, err
	}

	// --- Core services ---
	app.Goals = core.NewGoalStore(goals, events)
	app.Reconciler = core.NewProgressReconciler(app.Goals)
	app.Tasks = core.NewTaskStore(tasks, app.Reconciler, events)
	if changes := app.Reconciler.ReconcileTasks(app.Tasks.GetAllTasks()); len(changes) > 0 {
		app.Logger.Info("reconciled goal progress on load", zap.Int("goals", len(changes)))
	}

	app.Extractor = core.NewGoalExtractor(cfg.Extraction, nil)
	app.Relay = core.NewGoalRelay(cfg.Relay.MaxDepth, app.Logger)
	app.Committer = core.NewGoalCommitter(app.Goals, cfg.Dedup.Window, events, app.Logger)
	app.Relay.Subscribe(app.Committer.Handle)

	// --- Integration services ---
	app.Completer = newCompleter(cfg.AI, app.Logger)
	app.Companion = core.NewCompanion(app.Completer, app.Extractor, app.Relay, app.Committer, events, app.Logger)

	if app.EventLog != nil {
		thresholds := observability.AlertThresholds{
			AtRiskDays: cfg.Alerts.AtRiskDays,
			AtRiskRate: cfg.Alerts.AtRiskRate,
			StallDays:  cfg.Alerts.StallDays,
		}
		app.AlertEngine = observability.NewAlertEngine(app.Goals, app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.SlackWebhookURL)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Goals = app.Goals
	cli.Tasks = app.Tasks
	cli.Extractor = app.Extractor
	cli.Committer = app.Committer
	cli.Companion = app.Companion
	cli.State = app

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Save writes the goal and task snapshots. Both files are attempted even
// when the first write fails.
func (a *App) Save() error {
	return errors.Join(
		a.GoalRepo.Save(a.Goals.GetAllGoals()),
		a.TaskRepo.Save(a.Tasks.GetAllTasks()),
	)
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the goal data directory.
// It checks the GOALS_HOME env var, then the nearest directory holding
// .goalconfig, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("GOALS_HOME"); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// newLogger builds the diagnostic logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log.level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// newCompleter returns the configured text completer, or nil when no
// provider is set up. A missing API key leaves chat disabled rather than
// failing startup.
func newCompleter(cfg models.AIConfig, logger *zap.Logger) core.TextCompleter {
	if cfg.Provider != "gemini" {
		return nil
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		logger.Warn("gemini provider configured without an API key", zap.String("env", cfg.APIKeyEnv))
		return nil
	}
	completer, err := integration.NewGeminiCompleter(context.Background(), apiKey, cfg.Model, logger)
	if err != nil {
		logger.Warn("gemini client unavailable", zap.Error(err))
		return nil
	}
	return completer
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
