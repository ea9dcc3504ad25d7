package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

const (
	msgEmptyMessage       = "Message cannot be empty"
	msgConversationTooBig = "Conversation is too long. Please start a new one."
)

// StartConversation создаёт пустой диалог пользователя.
func (s *Service) StartConversation(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	const op = "service/conversations/StartConversation"

	now := s.now()
	conv, err := s.conversations.CreateConversation(ctx, &models.Conversation{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.Conversations.TTL),
	})
	if err != nil {
		return nil, internalErr(ctx, op, err)
	}

	return conv, nil
}

// Conversation возвращает диалог владельца.
func (s *Service) Conversation(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error) {
	const op = "service/conversations/Conversation"

	conv, err := s.conversations.ConversationByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalErr(ctx, op, err)
	}

	return conv, nil
}

// SendMessage отправляет реплику пользователя ассистенту вместе с
// историей диалога и сохраняет обе реплики. Если ассистент собрал
// достаточно сведений, ответ содержит промпт для генерации.
func (s *Service) SendMessage(ctx context.Context, userID uuid.UUID, id, content string) (*models.AssistantReply, error) {
	const op = "service/conversations/SendMessage"

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid(msgEmptyMessage))
	}

	if utf8.RuneCountInString(content) > s.cfg.Generation.MaxPromptChars {
		return nil, fmt.Errorf("%s: %w", op, invalid(fmt.Sprintf("Message must be less than %d characters", s.cfg.Generation.MaxPromptChars)))
	}

	conv, err := s.Conversation(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(conv.Messages)+2 > s.cfg.Conversations.MaxMessages {
		return nil, fmt.Errorf("%s: %w", op, invalid(msgConversationTooBig))
	}

	msgs := make([]clients.ChatMessage, 0, len(conv.Messages)+2)
	msgs = append(msgs, clients.ChatMessage{Role: "system", Content: conversationSystemPrompt})
	for _, m := range conv.Messages {
		msgs = append(msgs, clients.ChatMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, clients.ChatMessage{Role: models.RoleUser, Content: content})

	raw, err := s.ai.Complete(ctx, "conversation", clients.ChatRequest{
		Model:       s.cfg.AI.ConversationModel,
		Messages:    msgs,
		MaxTokens:   conversationMaxTokens,
		Temperature: conversationTemp,
	})
	if err != nil {
		return nil, gatewayErr(ctx, op, err, msgConversationFail)
	}

	response, ready, genPrompt := splitReply(raw)
	if response == "" && !ready {
		return nil, fmt.Errorf("%s: %w", op, unavailable(msgConversationFail))
	}

	now := s.now()
	_, err = s.conversations.AppendMessages(ctx, userID, id, []models.ConversationMessage{
		{Role: models.RoleUser, Content: content, CreatedAt: now},
		{Role: models.RoleAssistant, Content: strings.TrimSpace(raw), CreatedAt: now},
	}, now.Add(s.cfg.Conversations.TTL), s.cfg.Conversations.MaxMessages)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrLimitReached):
			return nil, fmt.Errorf("%s: %w", op, invalid(msgConversationTooBig))
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalErr(ctx, op, err)
	}

	if ready {
		log.From(ctx).Info("conversation_ready", "op", op, "conversation_id", id)
	}

	return &models.AssistantReply{
		Response:         response,
		ReadyToGenerate:  ready,
		GenerationPrompt: genPrompt,
	}, nil
}
