// service содержит бизнес-логику сервиса:
//   - генерацию сайтов, улучшение промптов и голосовые диалоги через AI-шлюз;
//   - профиль и аватары, сохранённые проекты, загрузку и предпросмотр референсов;
//   - регистрацию/вход пользователей и выпуск/проверку токенов;
//   - проверку CAPTCHA.
//
// Service не хранит состояние запроса и безопасен для конкурентного
// использования, если потокобезопасны переданные хранилища и клиенты.
// Ошибки возвращаются sentinel-значениями из errors.go и маппятся
// транспортом в HTTP-статусы (internal/errors).
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/config"
	"github.com/pribylovaa/go-site-generator/internal/metrics"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

// Service описывает бизнес-логику сервиса.
type Service struct {
	cfg           *config.Config
	storage       storage.Storage
	objects       storage.ObjectStorage
	conversations storage.ConversationStorage
	ai            clients.AIGateway
	captcha       clients.CaptchaVerifier
	pages         clients.PageFetcher
	metrics       *metrics.Metrics
	now           func() time.Time
}

// New создаёт новый экземпляр Service. metrics может быть nil.
func New(cfg *config.Config, st storage.Storage, objects storage.ObjectStorage, conversations storage.ConversationStorage, cl clients.Clients, m *metrics.Metrics) *Service {
	return &Service{
		cfg:           cfg,
		storage:       st,
		objects:       objects,
		conversations: conversations,
		ai:            cl.AI,
		captcha:       cl.Captcha,
		pages:         cl.Pages,
		metrics:       m,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ctxErr возвращает ошибку контекста вызывающего, если он отменён или
// истёк. Такие ошибки пробрасываются как есть: транспорт отвечает 499/504.
// Истёкший timeout исходящего клиента тоже оборачивает
// context.DeadlineExceeded, но это отказ апстрима, а не вызывающего.
func ctxErr(ctx context.Context) error {
	return ctx.Err()
}

// internalErr — неожиданная ошибка хранилища: логируется и становится ErrInternal.
func internalErr(ctx context.Context, op string, err error) error {
	if cerr := ctxErr(ctx); cerr != nil {
		return fmt.Errorf("%s: %w", op, cerr)
	}

	log.From(ctx).Error("storage_failed", "op", op, "err", err.Error())

	return fmt.Errorf("%s: %w", op, ErrInternal)
}

// gatewayErr переводит ошибку AI-шлюза в ошибку для пользователя:
// 429 от шлюза — "сервис занят", 402 и отсутствие ключа — "недоступен",
// остальное — failMsg конкретной операции. Статус и тело апстрима
// остаются только в логах.
func gatewayErr(ctx context.Context, op string, err error, failMsg string) error {
	lg := log.From(ctx).With("op", op)

	if cerr := ctxErr(ctx); cerr != nil {
		lg.Warn("gateway_request_aborted", "err", cerr.Error())
		return fmt.Errorf("%s: %w", op, cerr)
	}

	var se *clients.StatusError
	switch {
	case errors.Is(err, clients.ErrNotConfigured):
		lg.Error("gateway_not_configured")
		return fmt.Errorf("%s: %w", op, unavailable(msgUnavailable))
	case errors.As(err, &se) && se.Status == 429:
		lg.Warn("gateway_request_failed", "status", se.Status)
		return fmt.Errorf("%s: %w", op, unavailable(msgGatewayBusy))
	case errors.As(err, &se) && se.Status == 402:
		lg.Error("gateway_request_failed", "status", se.Status)
		return fmt.Errorf("%s: %w", op, unavailable(msgUnavailable))
	case se != nil:
		lg.Error("gateway_request_failed", "status", se.Status)
	default:
		lg.Error("gateway_request_failed", "err", err.Error())
	}

	return fmt.Errorf("%s: %w", op, unavailable(failMsg))
}
