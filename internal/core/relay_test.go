package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

func TestGoalRelay_NoSubscribersDropsEvent(t *testing.T) {
	r := NewGoalRelay(0, nil)
	n, err := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "test")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestGoalRelay_DeliversInSubscriptionOrder(t *testing.T) {
	r := NewGoalRelay(0, nil)
	var order []string
	var seqs []uint64
	r.Subscribe(func(_ context.Context, ev GoalEvent) error {
		order = append(order, "first")
		seqs = append(seqs, ev.Seq)
		return nil
	})
	r.Subscribe(func(_ context.Context, ev GoalEvent) error {
		order = append(order, "second:"+ev.Draft.Title+":"+ev.Source)
		return nil
	})

	n, err := r.Publish(context.Background(), models.GoalDraft{Title: "run"}, "chat")
	if err != nil || n != 2 {
		t.Fatalf("Publish = %d, %v; want 2, nil", n, err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second:run:chat" {
		t.Errorf("order = %v", order)
	}

	_, _ = r.Publish(context.Background(), models.GoalDraft{Title: "again"}, "chat")
	if len(seqs) != 2 || seqs[1] <= seqs[0] {
		t.Errorf("sequence numbers not increasing: %v", seqs)
	}
}

func TestGoalRelay_Unsubscribe(t *testing.T) {
	r := NewGoalRelay(0, nil)
	calls := 0
	id := r.Subscribe(func(context.Context, GoalEvent) error { calls++; return nil })
	r.Subscribe(func(context.Context, GoalEvent) error { return nil })

	if !r.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for a live subscription")
	}
	if r.Unsubscribe(id) {
		t.Error("second Unsubscribe returned true")
	}
	if r.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount = %d, want 1", r.SubscriberCount())
	}
	n, _ := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "test")
	if n != 1 || calls != 0 {
		t.Errorf("delivered=%d calls=%d, want 1 and 0", n, calls)
	}
}

func TestGoalRelay_HandlerErrorsJoined(t *testing.T) {
	r := NewGoalRelay(0, nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := 0
	r.Subscribe(func(context.Context, GoalEvent) error { ran++; return errA })
	r.Subscribe(func(context.Context, GoalEvent) error { ran++; return nil })
	r.Subscribe(func(context.Context, GoalEvent) error { ran++; return errB })

	n, err := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "test")
	if ran != 3 || n != 3 {
		t.Errorf("ran=%d delivered=%d, want all 3 handlers to run", ran, n)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both handler errors", err)
	}
}

func TestGoalRelay_DepthGuard(t *testing.T) {
	r := NewGoalRelay(1, nil)
	var nestedErr error
	r.Subscribe(func(ctx context.Context, ev GoalEvent) error {
		if ev.Source == "nested" {
			t.Error("nested event delivered beyond max depth")
			return nil
		}
		_, nestedErr = r.Publish(ctx, ev.Draft, "nested")
		return nil
	})

	n, err := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "outer")
	if err != nil || n != 1 {
		t.Fatalf("outer Publish = %d, %v", n, err)
	}
	if !errors.Is(nestedErr, ErrPublishDepthExceeded) {
		t.Errorf("nested err = %v, want ErrPublishDepthExceeded", nestedErr)
	}
}

func TestGoalRelay_DepthTwoAllowsOneNestedPublish(t *testing.T) {
	r := NewGoalRelay(2, nil)
	var sources []string
	var errs []error
	r.Subscribe(func(ctx context.Context, ev GoalEvent) error {
		sources = append(sources, ev.Source)
		_, err := r.Publish(ctx, ev.Draft, ev.Source+">")
		errs = append(errs, err)
		return nil
	})

	if _, err := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "a"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sources) != 2 || sources[0] != "a" || sources[1] != "a>" {
		t.Errorf("sources = %v, want [a a>]", sources)
	}
	// The innermost handler's publish hit the guard; the outer one succeeded.
	if len(errs) != 2 || !errors.Is(errs[0], ErrPublishDepthExceeded) || errs[1] != nil {
		t.Errorf("errs = %v", errs)
	}
}

func TestGoalRelay_SubscribeFromHandler(t *testing.T) {
	r := NewGoalRelay(0, nil)
	r.Subscribe(func(context.Context, GoalEvent) error {
		r.Subscribe(func(context.Context, GoalEvent) error { return nil })
		return nil
	})
	n, err := r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "test")
	if err != nil || n != 1 {
		t.Errorf("Publish = %d, %v; want 1 (snapshot taken before delivery)", n, err)
	}
	if r.SubscriberCount() != 2 {
		t.Errorf("SubscriberCount = %d, want 2", r.SubscriberCount())
	}
}

func TestGoalRelay_ConcurrentPublish(t *testing.T) {
	r := NewGoalRelay(0, nil)
	var mu sync.Mutex
	seen := make(map[uint64]bool)
	r.Subscribe(func(_ context.Context, ev GoalEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen[ev.Seq] = true
		return nil
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Publish(context.Background(), models.GoalDraft{Title: "x"}, "test")
		}()
	}
	wg.Wait()
	if len(seen) != 20 {
		t.Errorf("distinct sequence numbers = %d, want 20", len(seen))
	}
}
