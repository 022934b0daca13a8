package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// DefaultRelayMaxDepth allows handlers to run but not to publish again.
const DefaultRelayMaxDepth = 1

// GoalEvent is one goal draft broadcast on the relay.
type GoalEvent struct {
	Seq         uint64
	Draft       models.GoalDraft
	Source      string
	PublishedAt time.Time
}

// GoalEventHandler consumes a relayed draft. Handlers that publish again must
// pass on the ctx they were given so the depth guard can see the nesting.
type GoalEventHandler func(ctx context.Context, event GoalEvent) error

// SubscriptionID identifies a relay subscription.
type SubscriptionID uint64

// GoalRelay is a synchronous in-process fan-out for goal drafts.
type GoalRelay interface {
	// Publish delivers draft to every current subscriber in subscription
	// order and returns how many handlers ran. Handler errors are joined.
	Publish(ctx context.Context, draft models.GoalDraft, source string) (int, error)
	Subscribe(handler GoalEventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID) bool
	SubscriberCount() int
}

type relayDepthKey struct{}

func publishDepth(ctx context.Context) int {
	if d, ok := ctx.Value(relayDepthKey{}).(int); ok {
		return d
	}
	return 0
}

type subscription struct {
	id      SubscriptionID
	handler GoalEventHandler
}

type goalRelay struct {
	mu       sync.RWMutex
	subs     []subscription
	nextSub  SubscriptionID
	seq      atomic.Uint64
	maxDepth int
	logger   *zap.Logger
	now      func() time.Time
}

// NewGoalRelay creates a GoalRelay. maxDepth <= 0 uses DefaultRelayMaxDepth.
// logger may be nil.
func NewGoalRelay(maxDepth int, logger *zap.Logger) GoalRelay {
	if maxDepth <= 0 {
		maxDepth = DefaultRelayMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &goalRelay{
		maxDepth: maxDepth,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *goalRelay) Subscribe(handler GoalEventHandler) SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	r.subs = append(r.subs, subscription{id: r.nextSub, handler: handler})
	return r.nextSub
}

func (r *goalRelay) Unsubscribe(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (r *goalRelay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *goalRelay) Publish(ctx context.Context, draft models.GoalDraft, source string) (int, error) {
	depth := publishDepth(ctx)
	if depth >= r.maxDepth {
		r.logger.Warn("relay publish rejected",
			zap.String("source", source),
			zap.Int("depth", depth),
			zap.Int("max_depth", r.maxDepth))
		return 0, fmt.Errorf("publishing goal draft from %q at depth %d: %w", source, depth, ErrPublishDepthExceeded)
	}

	// Snapshot so handlers may subscribe or unsubscribe without deadlocking.
	r.mu.RLock()
	subs := make([]subscription, len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	event := GoalEvent{
		Seq:         r.seq.Add(1),
		Draft:       draft,
		Source:      source,
		PublishedAt: r.now(),
	}
	if len(subs) == 0 {
		r.logger.Debug("relay event dropped, no subscribers",
			zap.Uint64("seq", event.Seq),
			zap.String("source", source))
		return 0, nil
	}

	handlerCtx := context.WithValue(ctx, relayDepthKey{}, depth+1)
	var errs []error
	for _, s := range subs {
		if err := s.handler(handlerCtx, event); err != nil {
			r.logger.Warn("relay handler failed",
				zap.Uint64("seq", event.Seq),
				zap.Uint64("subscription", uint64(s.id)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("subscription %d: %w", s.id, err))
		}
	}
	return len(subs), errors.Join(errs...)
}
