package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valter-silva-au/goal-companion/internal/core"
	"github.com/valter-silva-au/goal-companion/internal/observability"
	"github.com/valter-silva-au/goal-companion/pkg/models"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type countingSaver struct {
	saves int
	err   error
}

func (s *countingSaver) Save() error {
	s.saves++
	return s.err
}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

type cliFixture struct {
	goals core.GoalStore
	tasks core.TaskStore
	saver *countingSaver
}

// setupCLI points the package-level services at fresh in-memory stores and
// restores the previous values when the test ends.
func setupCLI(t *testing.T, completer core.TextCompleter) *cliFixture {
	t.Helper()

	origGoals, origTasks, origExtractor, origCommitter := Goals, Tasks, Extractor, Committer
	origCompanion, origState, origConfig := Companion, State, Config
	origMetrics, origAlerts, origNotifier := MetricsCalc, AlertEngine, Notifier
	t.Cleanup(func() {
		Goals, Tasks, Extractor, Committer = origGoals, origTasks, origExtractor, origCommitter
		Companion, State, Config = origCompanion, origState, origConfig
		MetricsCalc, AlertEngine, Notifier = origMetrics, origAlerts, origNotifier
	})

	goals := core.NewGoalStore(nil, nil)
	tasks := core.NewTaskStore(nil, core.NewProgressReconciler(goals), nil)
	extractor := core.NewGoalExtractor(models.ExtractionConfig{}, func() time.Time { return testNow })
	committer := core.NewGoalCommitter(goals, time.Minute, nil, nil)
	relay := core.NewGoalRelay(0, nil)
	relay.Subscribe(committer.Handle)
	saver := &countingSaver{}

	Goals = goals
	Tasks = tasks
	Extractor = extractor
	Committer = committer
	Companion = core.NewCompanion(completer, extractor, relay, committer, nil, nil)
	State = saver
	Config = core.DefaultGlobalConfig()
	MetricsCalc, AlertEngine, Notifier = nil, nil, nil

	return &cliFixture{goals: goals, tasks: tasks, saver: saver}
}

// runCLI executes the root command with args and returns what it wrote to
// stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag in the command tree to its default so
// state from one Execute does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// mustAddGoal adds a goal directly to the store.
func mustAddGoal(t *testing.T, f *cliFixture, draft models.GoalDraft) string {
	t.Helper()
	id, err := f.goals.AddGoal(draft)
	if err != nil {
		t.Fatalf("adding goal: %v", err)
	}
	return id
}

func mustAddTask(t *testing.T, f *cliFixture, task models.Task) string {
	t.Helper()
	id, err := f.tasks.AddTask(task)
	if err != nil {
		t.Fatalf("adding task: %v", err)
	}
	return id
}

type metricsStub struct {
	metrics *observability.Metrics
	err     error
}

func (m *metricsStub) Calculate(time.Time) (*observability.Metrics, error) {
	return m.metrics, m.err
}

type alertsStub struct {
	alerts []observability.Alert
	err    error
}

func (a *alertsStub) Evaluate() ([]observability.Alert, error) {
	return a.alerts, a.err
}

type notifierStub struct {
	notifyFn func(alerts []observability.Alert) error
}

func (n *notifierStub) Notify(_ context.Context, alerts []observability.Alert) error {
	return n.notifyFn(alerts)
}
