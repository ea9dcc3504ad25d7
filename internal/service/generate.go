package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/sanitize"
)

// Исходы генерации для метрик.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
	resultEmpty    = "empty"
)

// ErrPromptMalformed — тело запроса не разобрано или prompt не строка.
var ErrPromptMalformed error = &InputError{Message: msgInvalidPrompt}

// GenerateInput — запрос на генерацию сайта.
type GenerateInput struct {
	Prompt     string
	References []models.Reference
}

// GenerateWebsite генерирует HTML-документ по описанию. Ответ модели
// всегда проходит очистку: снятие code fence, Sanitize, при
// generation.strict_sanitizer ещё и Strict, затем оборачивание в каркас.
func (s *Service) GenerateWebsite(ctx context.Context, in GenerateInput) (string, error) {
	const op = "service/generate/GenerateWebsite"

	prompt, err := validatePrompt(in.Prompt, s.cfg.Generation.MaxPromptChars)
	if err != nil {
		s.metrics.Generation(resultRejected)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.validateReferences(in.References); err != nil {
		s.metrics.Generation(resultRejected)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	refs := s.renderReferences(ctx, in.References)

	lg := log.From(ctx).With("op", op)
	lg.Info("generation_started", "prompt_chars", len([]rune(prompt)), "references", len(in.References))

	raw, err := s.ai.Complete(ctx, "generate", clients.ChatRequest{
		Model: s.cfg.AI.GenerationModel,
		Messages: []clients.ChatMessage{
			{Role: "system", Content: generateSystemPrompt},
			{Role: "user", Content: generateUserMessage(prompt, refs)},
		},
		MaxTokens:   generateMaxTokens,
		Temperature: generateTemperature,
	})
	if err != nil {
		s.metrics.Generation(resultFailed)
		return "", gatewayErr(ctx, op, err, msgGenerateFailed)
	}

	doc := s.cleanHTML(sanitize.StripCodeFences(raw))
	if strings.TrimSpace(doc) == "" {
		s.metrics.Generation(resultEmpty)
		lg.Error("generation_empty")
		return "", fmt.Errorf("%s: %w", op, unavailable(msgGenerateFailed))
	}

	s.metrics.Generation(resultOK)
	lg.Info("generation_completed", "html_bytes", len(doc))

	return sanitize.EnsureDocument(doc), nil
}

// cleanHTML применяет обязательный denylist и, если включён, allowlist.
func (s *Service) cleanHTML(doc string) string {
	doc = sanitize.Sanitize(doc)
	if s.cfg.Generation.StrictSanitizer {
		doc = sanitize.Strict(doc)
	}

	return doc
}
