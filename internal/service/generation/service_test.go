package generation_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
)

type fakeClient struct {
	completion openai.ChatCompletionResponse
	image      openai.ImageResponse
	err        error
	block      chan struct{}
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f.completion, f.err
}

func (f *fakeClient) CreateImage(_ context.Context, _ openai.ImageRequest) (openai.ImageResponse, error) {
	if f.block != nil {
		<-f.block
	}
	return f.image, f.err
}

func newService(client generation.Client, timeout time.Duration) *generation.Service {
	return generation.NewService(client, "gpt-4", timeout, zap.NewNop())
}

func TestTextGenerationCapturesUsage(t *testing.T) {
	client := &fakeClient{
		completion: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "hi there"}},
			},
			Usage: openai.Usage{TotalTokens: 42},
		},
	}
	svc := newService(client, time.Second)

	result, err := svc.Generate(context.Background(), "hello", false)
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if result.Type != generation.TypeText || result.Content != "hi there" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Tokens != 42 {
		t.Fatalf("expected service-reported 42 tokens, got %d", result.Tokens)
	}
}

func TestImageGenerationFlatCharge(t *testing.T) {
	client := &fakeClient{
		image: openai.ImageResponse{
			Data: []openai.ImageResponseDataInner{{URL: "https://img.example/1.png"}},
		},
	}
	svc := newService(client, time.Second)

	result, err := svc.Generate(context.Background(), "/image a cat", true)
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if result.Type != generation.TypeImage || result.URL != "https://img.example/1.png" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Tokens != 50 {
		t.Fatalf("expected flat 50-token charge, got %d", result.Tokens)
	}
}

func TestUpstreamAuthRejection(t *testing.T) {
	client := &fakeClient{
		err: &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"},
	}
	svc := newService(client, time.Second)

	for _, isImage := range []bool{false, true} {
		_, err := svc.Generate(context.Background(), "msg", isImage)
		if !errors.Is(err, generation.ErrUpstreamAuth) {
			t.Fatalf("isImage=%v: expected ErrUpstreamAuth, got %v", isImage, err)
		}
	}
}

func TestUpstreamGenericFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("connection reset")}
	svc := newService(client, time.Second)

	_, err := svc.Generate(context.Background(), "msg", false)
	if !errors.Is(err, generation.ErrUpstreamGeneric) {
		t.Fatalf("expected ErrUpstreamGeneric, got %v", err)
	}
}

func TestImageTimeoutWinsTheRace(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	defer close(client.block)

	svc := newService(client, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.Generate(context.Background(), "/image slow", true)
	elapsed := time.Since(start)

	if !errors.Is(err, generation.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("timeout took %v, well past the configured budget", elapsed)
	}
}
