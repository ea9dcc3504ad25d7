package models

import (
	"time"

	"github.com/google/uuid"
)

// Project — сохранённый сгенерированный сайт.
type Project struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	HTMLCode  string
	Prompt    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
