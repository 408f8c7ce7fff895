// Package document ingests uploaded PDFs: extract text, dispatch an
// analysis prompt through the text capability, charge approximate
// usage, and always release the temporary artifact.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/service/generation"
	"github.com/yattcodes/ai-gateway/backend/internal/service/usage"
)

// MaxUploadBytes caps an uploaded artifact at 25 MB.
const MaxUploadBytes = 25 << 20

const defaultInstruction = "provide a summary"

var (
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
	ErrExtraction   = errors.New("failed to extract document text")
)

// Extractor turns a stored artifact into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Generator is the dispatcher's text path.
type Generator interface {
	Generate(ctx context.Context, message string, isImage bool) (*generation.Result, error)
}

type Service struct {
	extractor Extractor
	generator Generator
	usage     *usage.Tracker
	logger    *zap.Logger
}

func NewService(extractor Extractor, generator Generator, tracker *usage.Tracker, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		generator: generator,
		usage:     tracker,
		logger:    logger,
	}
}

// Analyze runs the ingestion pipeline over the artifact at path. The
// artifact is removed before returning on every path, success or not.
func (s *Service) Analyze(ctx context.Context, userID, path, instruction string) (string, error) {
	start := time.Now()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Error("failed to remove uploaded artifact",
				zap.Error(err),
				zap.String("path", path))
		}
	}()

	if info, err := os.Stat(path); err == nil && info.Size() > MaxUploadBytes {
		return "", ErrFileTooLarge
	}

	text, err := s.extractor.Extract(path)
	if err != nil {
		s.logger.Error("document text extraction failed",
			zap.Error(err),
			zap.String("user_id", userID))
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if instruction == "" {
		instruction = defaultInstruction
	}
	prompt := fmt.Sprintf("Analyze the following PDF content and %s:\n\n%s", instruction, text)

	result, err := s.generator.Generate(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	analysis := result.Content

	// Approximate charge: the extraction is billed at four characters
	// per token plus the analysis length.
	tokens := (len(text)+3)/4 + len(analysis)
	s.usage.Record(ctx, userID, tokens)

	s.logger.Info("pdf analysis request processed",
		zap.String("user_id", userID),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(start)))
	return analysis, nil
}
