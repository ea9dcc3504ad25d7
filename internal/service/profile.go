package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

// Типы изображений, которые принимаются от модели как аватар.
var avatarImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// Profile возвращает профиль пользователя. Отсутствие записи не ошибка:
// возвращается пустой профиль.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "service/profile/Profile"

	p, err := s.storage.ProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &models.Profile{UserID: userID}, nil
		}

		return nil, internalErr(ctx, op, err)
	}

	return p, nil
}

// AvatarInput — запрос на генерацию аватара.
type AvatarInput struct {
	Prompt string
	Style  string
}

// GenerateAvatar генерирует аватар моделью изображений, сохраняет его
// в объектное хранилище и прописывает в профиль. Ошибка обновления
// профиля не отменяет результат: URL возвращается в любом случае.
func (s *Service) GenerateAvatar(ctx context.Context, userID uuid.UUID, in AvatarInput) (string, error) {
	const op = "service/profile/GenerateAvatar"

	if in.Prompt == "" {
		return "", fmt.Errorf("%s: %w", op, invalid(msgAvatarPrompt))
	}

	prompt := strings.TrimSpace(in.Prompt)
	if n := utf8.RuneCountInString(prompt); n < 1 || n > maxAvatarPrompt {
		return "", fmt.Errorf("%s: %w", op, invalid(msgAvatarPromptLen))
	}

	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = defaultAvatarStyle
	}
	if utf8.RuneCountInString(style) > maxAvatarStyle {
		return "", fmt.Errorf("%s: %w", op, invalid(fmt.Sprintf("Style must be less than %d characters", maxAvatarStyle)))
	}

	dataURL, err := s.ai.GenerateImage(ctx, "avatar", clients.ImageRequest{
		Model:      s.cfg.AI.ImageModel,
		Messages:   []clients.ChatMessage{{Role: "user", Content: avatarPrompt(prompt, style)}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return "", gatewayErr(ctx, op, err, msgAvatarFailed)
	}

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	data, contentType, err := decodeImageDataURL(dataURL)
	if err != nil {
		lg.Error("avatar_decode_failed", "err", err.Error())
		return "", fmt.Errorf("%s: %w", op, unavailable(msgAvatarFailed))
	}

	obj, err := s.objects.PutObject(ctx, storage.ClassAvatar, userID, contentType, data)
	if err != nil {
		if cerr := ctxErr(ctx); cerr != nil {
			return "", fmt.Errorf("%s: %w", op, cerr)
		}

		lg.Error("avatar_store_failed", "err", err.Error())
		return "", fmt.Errorf("%s: %w", op, unavailable(msgAvatarFailed))
	}

	if _, err := s.storage.UpsertAvatar(ctx, userID, obj.Key, obj.URL); err != nil {
		lg.Error("profile_upsert_failed", "err", err.Error())
	}

	return obj.URL, nil
}

// decodeImageDataURL разбирает data:<type>;base64,<payload>. Тип
// определяется по содержимому, а не по заголовку data URL.
func decodeImageDataURL(dataURL string) ([]byte, string, error) {
	const op = "service/profile/decodeImageDataURL"

	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("%s: not a base64 data url", op)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s: empty image", op)
	}

	contentType := http.DetectContentType(data)
	if _, ok := avatarImageTypes[contentType]; !ok {
		return nil, "", fmt.Errorf("%s: unsupported image type %q", op, contentType)
	}

	return data, contentType, nil
}

// AvatarUploadURL выдаёт presigned PUT для загрузки своего аватара.
func (s *Service) AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, length int64) (*storage.UploadInfo, error) {
	const op = "service/profile/AvatarUploadURL"

	info, err := s.objects.UploadURL(ctx, storage.ClassAvatar, userID, contentType, length)
	if err != nil {
		return nil, objectErr(ctx, op, err)
	}

	return info, nil
}

// ConfirmAvatarUpload проверяет загруженный аватар и прописывает его в профиль.
func (s *Service) ConfirmAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (*models.Profile, error) {
	const op = "service/profile/ConfirmAvatarUpload"

	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("Please provide an avatar key"))
	}

	obj, err := s.objects.CheckUpload(ctx, storage.ClassAvatar, userID, key)
	if err != nil {
		return nil, objectErr(ctx, op, err)
	}

	p, err := s.storage.UpsertAvatar(ctx, userID, obj.Key, obj.URL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, internalErr(ctx, op, err)
	}

	return p, nil
}
