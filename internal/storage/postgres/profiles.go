package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

// profileColumns — единый список колонок profiles для SELECT/RETURNING.
const profileColumns = `user_id, avatar_key, avatar_url, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var profile models.Profile

	if err := row.Scan(
		&profile.UserID,
		&profile.AvatarKey,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &profile, nil
}

// ProfileByUserID возвращает профиль по user_id.
// Ошибки: storage.ErrNotFound, либо ошибка выполнения запроса.
func (s *Storage) ProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "storage/postgres/profiles/ProfileByUserID"

	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	result, err := scanProfile(s.db.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// UpsertAvatar создаёт профиль с аватаром либо обновляет avatar_key/avatar_url
// существующего и сдвигает updated_at.
// Ошибки: storage.ErrNotFound, если пользователя нет.
func (s *Storage) UpsertAvatar(ctx context.Context, userID uuid.UUID, key, publicURL string) (*models.Profile, error) {
	const op = "storage/postgres/profiles/UpsertAvatar"

	q := `
	INSERT INTO profiles (user_id, avatar_key, avatar_url)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET avatar_key = EXCLUDED.avatar_key,
	    avatar_url = EXCLUDED.avatar_url,
	    updated_at = now()
	RETURNING ` + profileColumns

	result, err := scanProfile(s.db.QueryRow(ctx, q, userID, key, publicURL))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}
