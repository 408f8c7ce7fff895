package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yattcodes/ai-gateway/backend/internal/model/chat"
)

// MemoryStorage keeps conversations and usage records in process memory.
// The mutex is the atomic-upsert primitive: concurrent appends for the
// same user are serialized, no lost updates.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]*chat.Conversation
	usage         map[string]*chat.UsageRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*chat.Conversation),
		usage:         make(map[string]*chat.UsageRecord),
	}
}

func (s *MemoryStorage) AppendMessage(_ context.Context, userID, content, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if !ok {
		conv = &chat.Conversation{
			ID:       uuid.NewString(),
			UserID:   userID,
			Messages: make([]chat.Message, 0, 16),
		}
		s.conversations[userID] = conv
	}

	conv.Messages = append(conv.Messages, chat.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStorage) GetPage(_ context.Context, userID string, page, limit int) ([]chat.Message, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[userID]
	if !ok {
		return []chat.Message{}, 0, nil
	}

	total := len(conv.Messages)
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []chat.Message{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]chat.Message, end-offset)
	copy(out, conv.Messages[offset:end])
	return out, total, nil
}

func (s *MemoryStorage) ListConversations(_ context.Context, userID string) ([]chat.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]chat.Summary, 0, 1)
	lastStamps := make(map[string]time.Time)

	if conv, ok := s.conversations[userID]; ok {
		title := conv.Title
		if title == "" {
			title = "Untitled Conversation"
		}
		var lastMessage string
		var lastStamp time.Time
		if n := len(conv.Messages); n > 0 {
			lastMessage = conv.Messages[n-1].Content
			lastStamp = conv.Messages[n-1].Timestamp
		}
		summaries = append(summaries, chat.Summary{
			ID:          conv.ID,
			Title:       title,
			LastMessage: lastMessage,
		})
		lastStamps[conv.ID] = lastStamp
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastStamps[summaries[i].ID].After(lastStamps[summaries[j].ID])
	})
	return summaries, nil
}

func (s *MemoryStorage) RecordUsage(_ context.Context, userID string, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.usage[userID]
	if !ok {
		record = &chat.UsageRecord{UserID: userID}
		s.usage[userID] = record
	}

	record.TotalTokens += tokens
	record.History = append(record.History, chat.UsageEntry{
		Timestamp: time.Now().UTC(),
		Tokens:    tokens,
	})
	return nil
}

func (s *MemoryStorage) GetUsage(_ context.Context, userID string) (*chat.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.usage[userID]
	if !ok {
		return &chat.UsageRecord{UserID: userID}, nil
	}

	copied := &chat.UsageRecord{
		UserID:      record.UserID,
		TotalTokens: record.TotalTokens,
		History:     make([]chat.UsageEntry, len(record.History)),
	}
	copy(copied.History, record.History)
	return copied, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
