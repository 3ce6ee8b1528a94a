package dispatch

import (
	"context"

	"renos/internal/logger"
)

// JournalLabeler records mailbox labels in the structured log. It
// stands in for a mailbox API client in deployments where operators
// follow the journal rather than the shared inbox.
type JournalLabeler struct {
	logger logger.Logger
}

func NewJournalLabeler(log logger.Logger) *JournalLabeler {
	return &JournalLabeler{logger: log}
}

func (l *JournalLabeler) Label(ctx context.Context, threadRef, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.InfowCtx(ctx, "Conversation labeled",
		"thread_ref", threadRef,
		"label", label,
	)
	return nil
}
