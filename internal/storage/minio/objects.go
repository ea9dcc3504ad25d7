package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// maxSize возвращает предельный размер объекта класса class с типом
// contentType. false — тип для класса не разрешён.
func (o *Objects) maxSize(class storage.ObjectClass, contentType string) (int64, bool) {
	u := o.cfg.Uploads

	switch class {
	case storage.ClassAvatar:
		if slices.Contains(u.AvatarContentTypes, contentType) {
			return u.AvatarMaxBytes, true
		}
	case storage.ClassReference:
		if contentType == "application/pdf" {
			return u.PDFMaxBytes, true
		}
		if slices.Contains(u.ReferenceImageTypes, contentType) {
			return u.ImageMaxBytes, true
		}
	}

	return 0, false
}

func (o *Objects) validate(class storage.ObjectClass, contentType string, size int64) error {
	limit, ok := o.maxSize(class, contentType)
	if !ok || size <= 0 || size > limit {
		return storage.ErrInvalidArgument
	}

	return nil
}

// newKey формирует ключ вида <class>/<userID>/<uuid>.<ext>.
func newKey(class storage.ObjectClass, userID uuid.UUID, contentType string) string {
	return path.Join(string(class), userID.String(), uuid.NewString()+extensions[contentType])
}

func (o *Objects) publicURL(key string) string {
	if o.cfg.S3.PublicBaseURL == "" {
		return ""
	}

	return strings.TrimRight(o.cfg.S3.PublicBaseURL, "/") + "/" + key
}

// UploadURL генерирует presigned PUT URL и набор заголовков, которые
// клиент должен передать при PUT (будут проверены при подтверждении).
func (o *Objects) UploadURL(ctx context.Context, class storage.ObjectClass, userID uuid.UUID, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "storage/minio/objects/UploadURL"

	if err := o.validate(class, contentType, contentLength); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := newKey(class, userID, contentType)

	u, err := o.client.PresignedPutObject(ctx, o.cfg.S3.Bucket, key, o.cfg.S3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadInfo{
		UploadURL: u.String(),
		Key:       key,
		Expires:   o.cfg.S3.PresignTTL,
		RequiredHeaders: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(contentLength, 10),
		},
	}, nil
}

// CheckUpload подтверждает факт загрузки по key: ключ принадлежит
// пользователю, объект существует и удовлетворяет ограничениям.
func (o *Objects) CheckUpload(ctx context.Context, class storage.ObjectClass, userID uuid.UUID, key string) (*storage.ObjectInfo, error) {
	const op = "storage/minio/objects/CheckUpload"

	prefix := string(class) + "/" + userID.String() + "/"
	if !strings.HasPrefix(key, prefix) || strings.Contains(key, "..") {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	info, err := o.client.StatObject(ctx, o.cfg.S3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == 404 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := o.validate(class, info.ContentType, info.Size); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.ObjectInfo{
		Key:         key,
		URL:         o.publicURL(key),
		ContentType: info.ContentType,
		Size:        info.Size,
	}, nil
}

// PutObject сохраняет объект, полученный сервисом (например, аватар,
// сгенерированный моделью).
func (o *Objects) PutObject(ctx context.Context, class storage.ObjectClass, userID uuid.UUID, contentType string, data []byte) (*storage.ObjectInfo, error) {
	const op = "storage/minio/objects/PutObject"

	size := int64(len(data))
	if err := o.validate(class, contentType, size); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := newKey(class, userID, contentType)

	_, err := o.client.PutObject(ctx, o.cfg.S3.Bucket, key, bytes.NewReader(data), size, mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.ObjectInfo{
		Key:         key,
		URL:         o.publicURL(key),
		ContentType: contentType,
		Size:        size,
	}, nil
}
