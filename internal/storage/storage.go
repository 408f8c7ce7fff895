package storage

import (
	"context"

	"github.com/yattcodes/ai-gateway/backend/internal/model/chat"
)

// ConversationStore owns the message lifecycle. AppendMessage is an
// atomic upsert: the first append for a user creates the conversation.
type ConversationStore interface {
	AppendMessage(ctx context.Context, userID, content, role string) error
	// GetPage returns up to limit messages at offset (page-1)*limit plus
	// the total message count. Non-positive pages read from the start.
	// The slice and the count are independent reads; under concurrent
	// writes the count may be stale.
	GetPage(ctx context.Context, userID string, page, limit int) ([]chat.Message, int, error)
	ListConversations(ctx context.Context, userID string) ([]chat.Summary, error)
}

// UsageStore owns the usage-record lifecycle.
type UsageStore interface {
	// RecordUsage increments the user's total and appends a history
	// entry as one atomic upsert.
	RecordUsage(ctx context.Context, userID string, tokens int) error
	GetUsage(ctx context.Context, userID string) (*chat.UsageRecord, error)
}

// Storage is the persistent store behind the gateway.
type Storage interface {
	ConversationStore
	UsageStore
	Close() error
}
