// minio предоставляет реализацию storage.ObjectStorage на базе MinIO/S3.
// minio.go — конструктор клиента: нормализует endpoint, настраивает
// Secure/creds и проверяет наличие бакета.
// objects.go — presigned PUT, подтверждение загрузки и запись объектов,
// сгенерированных сервисом (аватары).
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-site-generator/internal/config"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

// Objects — адаптер MinIO. Хранит ссылку на конфиг и minio-go клиент.
type Objects struct {
	cfg    *config.Config
	client *mclient.Client
}

// New создает и инициализирует клиент MinIO и выполняет
// fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg *config.Config) (*Objects, error) {
	const op = "storage/minio/New"

	endpoint := cfg.S3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.RootUser, cfg.S3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := &Objects{cfg: cfg, client: client}
	if err := o.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

// Ping проверяет, что бакет существует и доступен.
func (o *Objects) Ping(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.cfg.S3.Bucket)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("bucket %q does not exist", o.cfg.S3.Bucket)
	}

	return nil
}

// Проверка выполнения контракта.
var _ storage.ObjectStorage = (*Objects)(nil)
