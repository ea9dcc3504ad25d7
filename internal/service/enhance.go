package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-site-generator/internal/clients"
)

// EnhancePrompt превращает короткую идею сайта в подробный бриф.
func (s *Service) EnhancePrompt(ctx context.Context, raw string) (string, error) {
	const op = "service/enhance/EnhancePrompt"

	prompt, err := validatePrompt(raw, s.cfg.Generation.MaxPromptChars)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.ai.Complete(ctx, "enhance", clients.ChatRequest{
		Model: s.cfg.AI.EnhanceModel,
		Messages: []clients.ChatMessage{
			{Role: "system", Content: enhanceSystemPrompt},
			{Role: "user", Content: enhanceUserMessage(prompt)},
		},
		MaxTokens:   enhanceMaxTokens,
		Temperature: enhanceTemperature,
	})
	if err != nil {
		return "", gatewayErr(ctx, op, err, msgEnhanceFailed)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s: %w", op, unavailable(msgEnhanceFailed))
	}

	return out, nil
}
