package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile — профиль пользователя. Пока содержит только аватар.
type Profile struct {
	UserID    uuid.UUID
	AvatarKey string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
