// Package chat orchestrates one inbound message: validation, intent
// classification, quota gating, dispatch, persistence and usage
// accounting.
package chat

import (
	"context"
	"errors"
	"math"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/classifier"
	"github.com/yattcodes/ai-gateway/backend/internal/model/chat"
	"github.com/yattcodes/ai-gateway/backend/internal/ratelimit"
	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
	"github.com/yattcodes/ai-gateway/backend/internal/service/usage"
	"github.com/yattcodes/ai-gateway/backend/internal/storage"
)

// MaxMessageLength caps a chat submission, counted in characters.
const MaxMessageLength = 1000

var (
	ErrInvalidMessage   = errors.New("invalid message format or length")
	ErrImageRateLimited = errors.New("image generation quota exceeded")
)

// Generator dispatches a message to the selected capability.
type Generator interface {
	Generate(ctx context.Context, message string, isImage bool) (*generation.Result, error)
}

// Service coordinates the chat request flow.
type Service struct {
	store      storage.ConversationStore
	usage      *usage.Tracker
	classifier *classifier.Classifier
	imageQuota *ratelimit.Window
	generator  Generator
	logger     *zap.Logger
}

func NewService(
	store storage.ConversationStore,
	tracker *usage.Tracker,
	clf *classifier.Classifier,
	imageQuota *ratelimit.Window,
	generator Generator,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:      store,
		usage:      tracker,
		classifier: clf,
		imageQuota: imageQuota,
		generator:  generator,
		logger:     logger,
	}
}

// HandleMessage runs the full flow for one chat submission. Primary
// failures (validation, quota, dispatch) abort the request; message
// persistence and usage accounting degrade silently.
func (s *Service) HandleMessage(ctx context.Context, userID, message string) (*generation.Result, error) {
	start := time.Now()

	if message == "" || utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrInvalidMessage
	}

	// The quota applies only to image submissions, so the classifier has
	// to run before the gate.
	isImage := s.classifier.IsImageRequest(message)
	if isImage && !s.imageQuota.Allow(userID) {
		s.logger.Warn("image generation quota exceeded",
			zap.String("user_id", userID))
		return nil, ErrImageRateLimited
	}

	// Append-only log: the user message stays even if dispatch fails.
	if err := s.store.AppendMessage(ctx, userID, message, chat.RoleUser); err != nil {
		s.logger.Error("failed to store user message",
			zap.Error(err),
			zap.String("user_id", userID))
	}

	result, err := s.generator.Generate(ctx, message, isImage)
	if err != nil {
		s.logger.Error("generation dispatch failed",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Bool("image", isImage),
			zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	reply := result.Content
	if result.Type == generation.TypeImage {
		reply = result.URL
	}
	if err := s.store.AppendMessage(ctx, userID, reply, chat.RoleAssistant); err != nil {
		s.logger.Error("failed to store assistant message",
			zap.Error(err),
			zap.String("user_id", userID))
	}

	s.usage.Record(ctx, userID, result.Tokens)

	s.logger.Info("chat request processed",
		zap.String("user_id", userID),
		zap.String("type", result.Type),
		zap.Int("tokens", result.Tokens),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// HistoryPage is the paginated history response shape.
type HistoryPage struct {
	Messages      []chat.Message `json:"messages"`
	CurrentPage   int            `json:"currentPage"`
	TotalPages    int            `json:"totalPages"`
	TotalMessages int            `json:"totalMessages"`
}

// History returns one page of the user's conversation. The slice and
// the count come from the store as two independent reads, so the page
// is eventually consistent under concurrent writes.
func (s *Service) History(ctx context.Context, userID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	messages, total, err := s.store.GetPage(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	result := &HistoryPage{
		Messages:      messages,
		CurrentPage:   page,
		TotalPages:    int(math.Ceil(float64(total) / float64(limit))),
		TotalMessages: total,
	}
	if total == 0 {
		result.CurrentPage = 1
	}
	return result, nil
}

// Conversations lists the user's conversations, most recent first.
func (s *Service) Conversations(ctx context.Context, userID string) ([]chat.Summary, error) {
	return s.store.ListConversations(ctx, userID)
}
