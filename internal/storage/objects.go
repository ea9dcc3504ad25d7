package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ObjectClass — назначение загружаемого объекта. Определяет префикс ключа
// и допустимые типы/размеры.
type ObjectClass string

const (
	ClassAvatar    ObjectClass = "avatars"
	ClassReference ObjectClass = "references"
)

// UploadInfo — информация для клиента о presigned PUT загрузке.
//   - UploadURL: URL для PUT-запроса;
//   - Key: ключ будущего объекта в бакете;
//   - Expires: время жизни подписи;
//   - RequiredHeaders: заголовки, которые клиент обязан передать при PUT.
type UploadInfo struct {
	UploadURL       string
	Key             string
	Expires         time.Duration
	RequiredHeaders map[string]string
}

// ObjectInfo — подтверждённый объект.
type ObjectInfo struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// ObjectStorage — объектное хранилище. Ключи имеют вид
// <class>/<userID>/<uuid>.<ext>; объект чужого пользователя
// не подтверждается.
type ObjectStorage interface {
	// UploadURL проверяет тип и размер и выдаёт presigned PUT.
	UploadURL(ctx context.Context, class ObjectClass, userID uuid.UUID, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckUpload проверяет факт загрузки (владелец, наличие, тип, размер).
	CheckUpload(ctx context.Context, class ObjectClass, userID uuid.UUID, key string) (*ObjectInfo, error)
	// PutObject сохраняет объект, сгенерированный на стороне сервиса.
	PutObject(ctx context.Context, class ObjectClass, userID uuid.UUID, contentType string, data []byte) (*ObjectInfo, error)
}
