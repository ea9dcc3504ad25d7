// clients описывает контракты внешних сервисов, которыми пользуется
// бизнес-логика, и собирает их реализации:
//   - gateway — AI-шлюз chat-completion (текст и изображения);
//   - turnstile — проверка CAPTCHA (Cloudflare Turnstile);
//   - pages — загрузка и краткое содержание веб-страниц-референсов.
package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-site-generator/internal/models"
)

var (
	// ErrNotConfigured — у клиента нет ключа/секрета.
	ErrNotConfigured = errors.New("client not configured")
	// ErrEmptyResponse — ответ апстрима не содержит ожидаемых данных.
	ErrEmptyResponse = errors.New("empty upstream response")
	// ErrInvalidURL — адрес не разобран или схема не http/https.
	ErrInvalidURL = errors.New("invalid url")
	// ErrBlockedAddress — адрес указывает во внутреннюю сеть.
	ErrBlockedAddress = errors.New("blocked address")
	// ErrUnsupportedContent — тип содержимого не поддерживается.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// StatusError — апстрим ответил не-2xx. Body хранится только для логов.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

// ChatMessage — сообщение chat-completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest — запрос текстового ответа.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ImageRequest — запрос изображения. Ответом служит data URL.
type ImageRequest struct {
	Model      string        `json:"model"`
	Messages   []ChatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
}

// AIGateway — AI-шлюз. Operation в ответах метрик/логов задаёт вызывающий.
type AIGateway interface {
	// Complete возвращает choices[0].message.content.
	Complete(ctx context.Context, operation string, req ChatRequest) (string, error)
	// GenerateImage возвращает choices[0].message.images[0].image_url.url.
	GenerateImage(ctx context.Context, operation string, req ImageRequest) (string, error)
	// Configured сообщает, задан ли ключ доступа.
	Configured() bool
}

// CaptchaVerifier — проверка токена CAPTCHA.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	Configured() bool
}

// PageFetcher — загрузка страницы и её краткое содержание.
type PageFetcher interface {
	Summarize(ctx context.Context, rawURL string) (*models.PageSummary, error)
}

// Clients агрегирует клиенты внешних сервисов.
type Clients struct {
	AI      AIGateway
	Captcha CaptchaVerifier
	Pages   PageFetcher
}
