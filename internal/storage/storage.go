// storage содержит контракты слоя хранилищ и общие ошибки.
//
// Реализации:
//   - postgres — пользователи, refresh-токены, профили, проекты;
//   - minio — аватары и загруженные референсы (presigned PUT);
//   - mongo — голосовые диалоги с TTL.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-site-generator/internal/models"
)

var (
	// ErrNotFound — запись/объект не найдены (или принадлежат другому владельцу).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidArgument — нарушены ограничения (тип, размер, ключ).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLimitReached — в диалоге не осталось места для новых реплик.
	ErrLimitReached = errors.New("limit reached")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePassword заменяет хэш пароля.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, now time.Time) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshTokenIfActive отзывает токен, если он ещё активен.
	// (true, nil) — отозван сейчас; (false, nil) — уже был отозван.
	RevokeRefreshTokenIfActive(ctx context.Context, hash string) (bool, error)
	// RevokeUserTokens отзывает все активные токены пользователя.
	RevokeUserTokens(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteExpiredTokens удаляет просроченные токены и возвращает их число.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// ProfileStorage — профили пользователей.
type ProfileStorage interface {
	// ProfileByUserID возвращает профиль или ErrNotFound.
	ProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	// UpsertAvatar создаёт профиль или обновляет в нём аватар.
	UpsertAvatar(ctx context.Context, userID uuid.UUID, key, publicURL string) (*models.Profile, error)
}

// ProjectUpdate — частичное обновление проекта: меняются только
// непустые указатели.
type ProjectUpdate struct {
	HTMLCode *string
	Prompt   *string
}

// ProjectStorage — сохранённые сайты. Все операции ограничены владельцем:
// чужой проект неотличим от отсутствующего.
type ProjectStorage interface {
	CreateProject(ctx context.Context, project *models.Project) (*models.Project, error)
	ProjectByID(ctx context.Context, userID, id uuid.UUID) (*models.Project, error)
	// ListProjects возвращает проекты по убыванию updated_at.
	ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]models.Project, error)
	UpdateProject(ctx context.Context, userID, id uuid.UUID, update ProjectUpdate) (*models.Project, error)
	DeleteProject(ctx context.Context, userID, id uuid.UUID) error
}

// Storage — реляционное хранилище целиком.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	ProfileStorage
	ProjectStorage
	Ping(ctx context.Context) error
	Close()
}

// ConversationStorage — голосовые диалоги.
type ConversationStorage interface {
	// CreateConversation сохраняет диалог и проставляет ему ID.
	CreateConversation(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	// ConversationByID возвращает диалог владельца или ErrNotFound.
	ConversationByID(ctx context.Context, userID uuid.UUID, id string) (*models.Conversation, error)
	// AppendMessages атомарно дописывает реплики и продлевает expires_at.
	// Если после добавления реплик станет больше maxMessages — ErrLimitReached.
	AppendMessages(ctx context.Context, userID uuid.UUID, id string, msgs []models.ConversationMessage, expiresAt time.Time, maxMessages int) (*models.Conversation, error)
}
