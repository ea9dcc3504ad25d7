package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — запись о выданном refresh-токене. Хранится только
// SHA-256 хэш секрета.
type RefreshToken struct {
	TokenHash string
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// TokenPair — пара токенов, выдаваемая при регистрации/входе/обновлении.
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — случайный секрет для выпуска новой пары;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Principal — вызывающий, извлечённый из проверенного access-токена.
type Principal struct {
	UserID uuid.UUID
	Email  string
}
