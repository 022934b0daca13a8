package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// SourceChat tags drafts that came out of an assistant reply.
const SourceChat = "chat"

// TextCompleter produces an assistant reply for a prompt.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatResult is the outcome of one assistant reply. Draft is nil when the
// reply carried no goal.
type ChatResult struct {
	Reply     string
	Draft     *models.GoalDraft
	Commit    *CommitResult
	Delivered int
}

// Companion connects an assistant to the goal list: replies that announce a
// goal become goals.
type Companion interface {
	Ask(ctx context.Context, message string) (*ChatResult, error)
	ProcessReply(ctx context.Context, reply string) (*ChatResult, error)
}

// chatPreamble nudges the assistant towards phrasing the extractor knows.
const chatPreamble = `You are a goal-setting companion. When the user wants to set a goal, ` +
	`confirm it in one line using exactly this shape:
已为你设定新目标："<title>"，优先级：<高|中|低>，截止日期：<YYYY/MM/DD>
Otherwise answer briefly and do not use the word "目标".

User: `

type companion struct {
	completer   TextCompleter
	extractor   GoalExtractor
	relay       GoalRelay
	committer   GoalCommitter
	eventLogger EventLogger
	logger      *zap.Logger
}

// NewCompanion creates a Companion. completer is only needed by Ask; relay
// and committer may be nil, in which case drafts are extracted but not
// delivered or committed.
func NewCompanion(completer TextCompleter, extractor GoalExtractor, relay GoalRelay, committer GoalCommitter, eventLogger EventLogger, logger *zap.Logger) Companion {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &companion{
		completer:   completer,
		extractor:   extractor,
		relay:       relay,
		committer:   committer,
		eventLogger: eventLogger,
		logger:      logger,
	}
}

func (c *companion) Ask(ctx context.Context, message string) (*ChatResult, error) {
	if c.completer == nil {
		return nil, fmt.Errorf("asking assistant: no text completer configured")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("asking assistant: message must not be empty")
	}
	reply, err := c.completer.Complete(ctx, chatPreamble+message)
	if err != nil {
		return nil, fmt.Errorf("asking assistant: %w", err)
	}
	return c.ProcessReply(ctx, reply)
}

func (c *companion) ProcessReply(ctx context.Context, reply string) (*ChatResult, error) {
	result := &ChatResult{Reply: reply}
	if c.extractor == nil {
		return result, nil
	}
	draft := c.extractor.ExtractGoalIntent(reply)
	if draft == nil {
		c.logger.Debug("no goal intent in reply")
		return result, nil
	}
	result.Draft = draft
	emit(c.eventLogger, EventDraftExtracted, map[string]any{
		"title":    draft.Title,
		"priority": string(draft.Priority),
		"deadline": draft.Deadline,
		"source":   SourceChat,
	})

	var errs []error
	if c.relay != nil {
		delivered, err := c.relay.Publish(ctx, *draft, SourceChat)
		result.Delivered = delivered
		if err != nil {
			errs = append(errs, fmt.Errorf("relaying goal draft: %w", err))
		}
	}
	if c.committer != nil {
		res, err := c.committer.Commit(*draft, SourceChat)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.Commit = &res
		}
	}
	return result, errors.Join(errs...)
}
