package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// DefaultDedupWindow is how long a committed draft suppresses identical ones.
const DefaultDedupWindow = 10 * time.Second

// GoalAdder is the subset of GoalStore the committer writes to.
type GoalAdder interface {
	AddGoal(draft models.GoalDraft) (string, error)
}

// goalLookup is implemented by stores that can tell whether a committed goal
// still exists.
type goalLookup interface {
	GetGoalByID(id string) (*models.Goal, error)
}

// CommitResult reports the goal a draft resolved to. Committed is false when
// the draft duplicated a recent commit and GoalID names the earlier goal. A
// duplicate of a goal that has since been removed commits again.
type CommitResult struct {
	GoalID    string
	Committed bool
	Key       string
}

// GoalCommitter turns drafts into goals at most once per dedup window.
type GoalCommitter interface {
	Commit(draft models.GoalDraft, source string) (CommitResult, error)
	// Handle is the relay-facing form of Commit.
	Handle(ctx context.Context, event GoalEvent) error
}

type dedupEntry struct {
	goalID string
	at     time.Time
}

type goalCommitter struct {
	mu          sync.Mutex
	store       GoalAdder
	window      time.Duration
	seen        map[string]dedupEntry
	eventLogger EventLogger
	logger      *zap.Logger
	now         func() time.Time
}

// NewGoalCommitter creates a GoalCommitter writing to store. window <= 0 uses
// DefaultDedupWindow. eventLogger and logger may be nil.
func NewGoalCommitter(store GoalAdder, window time.Duration, eventLogger EventLogger, logger *zap.Logger) GoalCommitter {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &goalCommitter{
		store:       store,
		window:      window,
		seen:        make(map[string]dedupEntry),
		eventLogger: eventLogger,
		logger:      logger,
		now:         time.Now,
	}
}

// DraftKey is the dedup key of a draft: a hex SHA-256 of its trimmed,
// lower-cased title and deadline.
func DraftKey(draft models.GoalDraft) string {
	norm := strings.ToLower(strings.TrimSpace(draft.Title)) + "\x00" +
		strings.ToLower(strings.TrimSpace(draft.Deadline))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func (c *goalCommitter) Commit(draft models.GoalDraft, source string) (CommitResult, error) {
	key := DraftKey(draft)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)

	if prev, ok := c.seen[key]; ok && c.removedLocked(prev.goalID) {
		c.logger.Debug("dedup entry cleared for removed goal", zap.String("goal_id", prev.goalID))
		delete(c.seen, key)
	}
	if prev, ok := c.seen[key]; ok {
		c.logger.Debug("duplicate goal draft suppressed",
			zap.String("goal_id", prev.goalID),
			zap.String("source", source))
		emit(c.eventLogger, EventDuplicateSuppressed, map[string]any{
			"goal_id": prev.goalID,
			"title":   draft.Title,
			"source":  source,
		})
		return CommitResult{GoalID: prev.goalID, Committed: false, Key: key}, nil
	}

	id, err := c.store.AddGoal(draft)
	if err != nil {
		return CommitResult{Key: key}, fmt.Errorf("committing goal draft %q: %w", draft.Title, err)
	}
	c.seen[key] = dedupEntry{goalID: id, at: now}

	c.logger.Info("goal committed",
		zap.String("goal_id", id),
		zap.String("title", draft.Title),
		zap.String("source", source))
	emit(c.eventLogger, EventGoalCommitted, map[string]any{
		"goal_id":  id,
		"title":    draft.Title,
		"priority": string(draft.Priority),
		"deadline": draft.Deadline,
		"source":   source,
	})
	return CommitResult{GoalID: id, Committed: true, Key: key}, nil
}

func (c *goalCommitter) Handle(_ context.Context, event GoalEvent) error {
	_, err := c.Commit(event.Draft, event.Source)
	return err
}

func (c *goalCommitter) pruneLocked(now time.Time) {
	for k, e := range c.seen {
		if now.Sub(e.at) >= c.window {
			delete(c.seen, k)
		}
	}
}

// removedLocked reports whether the store positively knows goalID is gone.
// Stores without lookup support never report removal.
func (c *goalCommitter) removedLocked(goalID string) bool {
	lookup, ok := c.store.(goalLookup)
	if !ok {
		return false
	}
	_, err := lookup.GetGoalByID(goalID)
	return errors.Is(err, ErrGoalNotFound)
}
