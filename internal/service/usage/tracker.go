// Package usage records cumulative token charges. Recording is
// best-effort: a failed write is logged and reported, never retried,
// and must never fail the enclosing request.
package usage

import (
	"context"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/storage"
)

type Tracker struct {
	store  storage.UsageStore
	logger *zap.Logger
}

func NewTracker(store storage.UsageStore, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Record charges tokens to the user. The boolean distinguishes a
// persisted charge from a logged-but-swallowed failure.
func (t *Tracker) Record(ctx context.Context, userID string, tokens int) bool {
	if err := t.store.RecordUsage(ctx, userID, tokens); err != nil {
		t.logger.Error("failed to store token usage",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("tokens", tokens))
		return false
	}

	t.logger.Info("token usage stored",
		zap.String("user_id", userID),
		zap.Int("tokens", tokens))
	return true
}
