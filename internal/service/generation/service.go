// Package generation dispatches validated messages to the external
// generation capability and normalizes its results and failures.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Flat per-image token charge. A policy approximation, not a measured
// value.
const imageTokenCost = 50

const imageSize = openai.CreateImageSize1024x1024

// Result types returned to the HTTP layer.
const (
	TypeText  = "text"
	TypeImage = "image"
)

// Result is the normalized output of a dispatch.
type Result struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	// Tokens is the usage charge: service-reported for text,
	// imageTokenCost for images.
	Tokens int `json:"-"`
}

// Client is the subset of the OpenAI API the dispatcher needs.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// Service is the generation dispatcher. It performs no retries; every
// failure propagates for status mapping at the HTTP boundary.
type Service struct {
	client       Client
	model        string
	imageTimeout time.Duration
	logger       *zap.Logger
}

func NewService(client Client, model string, imageTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		client:       client,
		model:        model,
		imageTimeout: imageTimeout,
		logger:       logger,
	}
}

// Generate dispatches one message to the capability selected by the
// classifier verdict.
func (s *Service) Generate(ctx context.Context, message string, isImage bool) (*Result, error) {
	if isImage {
		return s.generateImage(ctx, message)
	}
	return s.generateText(ctx, message)
}

func (s *Service) generateText(ctx context.Context, message string) (*Result, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		s.logger.Error("text generation failed", zap.Error(err))
		return nil, normalize(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstreamGeneric)
	}

	return &Result{
		Type:    TypeText,
		Content: resp.Choices[0].Message.Content,
		Tokens:  resp.Usage.TotalTokens,
	}, nil
}

// generateImage races a single image call against a fixed timer; the
// first to settle wins. The losing upstream call is abandoned, not
// cancelled, and may still complete after we have moved on.
func (s *Service) generateImage(ctx context.Context, prompt string) (*Result, error) {
	type outcome struct {
		resp openai.ImageResponse
		err  error
	}
	done := make(chan outcome, 1)

	upstream := context.WithoutCancel(ctx)
	go func() {
		resp, err := s.client.CreateImage(upstream, openai.ImageRequest{
			Prompt: prompt,
			N:      1,
			Size:   imageSize,
		})
		done <- outcome{resp: resp, err: err}
	}()

	timer := time.NewTimer(s.imageTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			s.logger.Error("image generation failed", zap.Error(out.err))
			return nil, normalize(out.err)
		}
		if len(out.resp.Data) == 0 {
			return nil, fmt.Errorf("%w: empty image response", ErrUpstreamGeneric)
		}
		return &Result{
			Type:   TypeImage,
			URL:    out.resp.Data[0].URL,
			Tokens: imageTokenCost,
		}, nil
	case <-timer.C:
		s.logger.Error("image generation timed out",
			zap.Duration("budget", s.imageTimeout))
		return nil, ErrUpstreamTimeout
	}
}

func normalize(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
		return ErrUpstreamAuth
	}
	return fmt.Errorf("%w: %v", ErrUpstreamGeneric, err)
}
