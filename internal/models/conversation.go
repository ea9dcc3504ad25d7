package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли сообщений диалога.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationMessage — реплика диалога.
type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Conversation — голосовой диалог, в котором ассистент уточняет
// требования к сайту. ID — hex ObjectID. ExpiresAt обновляется при
// каждой реплике, по нему работает TTL-индекс.
type Conversation struct {
	ID        string
	UserID    uuid.UUID
	Messages  []ConversationMessage
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// AssistantReply — результат очередного шага диалога.
type AssistantReply struct {
	Response         string
	ReadyToGenerate  bool
	GenerationPrompt string
}
