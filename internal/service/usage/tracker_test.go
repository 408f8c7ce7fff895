package usage_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/model/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/service/usage"
	"github.com/yattcodes/ai-gateway/backend/internal/storage"
)

type failingUsageStore struct{}

func (failingUsageStore) RecordUsage(context.Context, string, int) error {
	return errors.New("store unavailable")
}

func (failingUsageStore) GetUsage(context.Context, string) (*chat.UsageRecord, error) {
	return nil, errors.New("store unavailable")
}

func TestRecordPersists(t *testing.T) {
	store := storage.NewMemoryStorage()
	tracker := usage.NewTracker(store, zap.NewNop())

	if !tracker.Record(context.Background(), "u1", 5) {
		t.Fatal("expected charge to be persisted")
	}

	record, err := store.GetUsage(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUsage err: %v", err)
	}
	if record.TotalTokens != 5 {
		t.Fatalf("expected 5 tokens, got %d", record.TotalTokens)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	tracker := usage.NewTracker(failingUsageStore{}, zap.NewNop())

	// Must not panic or propagate; the failure is only reported.
	if tracker.Record(context.Background(), "u1", 5) {
		t.Fatal("expected failed charge to be reported as not persisted")
	}
}
