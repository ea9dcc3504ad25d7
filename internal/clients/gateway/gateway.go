// gateway — HTTP-клиент AI-шлюза с OpenAI-совместимым API
// chat/completions. Ответ декодируется в явные структуры; любое
// несоответствие формы считается ошибкой.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/metrics"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
)

// Сколько байт тела ошибки сохраняем для логов.
const maxErrorBody = 2048

// Client реализует clients.AIGateway.
type Client struct {
	http    *http.Client
	url     string
	apiKey  string
	metrics *metrics.Metrics
}

var _ clients.AIGateway = (*Client)(nil)

// New создаёт клиент. Если httpClient nil, создаётся клиент с timeout.
func New(httpClient *http.Client, url, apiKey string, timeout time.Duration, m *metrics.Metrics) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		http:    httpClient,
		url:     url,
		apiKey:  strings.TrimSpace(apiKey),
		metrics: m,
	}
}

// Configured сообщает, задан ли ключ доступа.
func (c *Client) Configured() bool { return c.apiKey != "" }

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
			Images  []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete отправляет chat-запрос и возвращает текст первого варианта.
func (c *Client) Complete(ctx context.Context, operation string, req clients.ChatRequest) (string, error) {
	const op = "clients/gateway/Complete"

	var resp completionResponse
	if err := c.do(ctx, operation, req, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%s: %w", op, clients.ErrEmptyResponse)
	}

	content := strings.TrimSpace(*resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", op, clients.ErrEmptyResponse)
	}

	return content, nil
}

// GenerateImage отправляет запрос с modalities и возвращает URL первого
// изображения (обычно data URL).
func (c *Client) GenerateImage(ctx context.Context, operation string, req clients.ImageRequest) (string, error) {
	const op = "clients/gateway/GenerateImage"

	var resp completionResponse
	if err := c.do(ctx, operation, req, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 {
		return "", fmt.Errorf("%s: %w", op, clients.ErrEmptyResponse)
	}

	u := strings.TrimSpace(resp.Choices[0].Message.Images[0].ImageURL.URL)
	if u == "" {
		return "", fmt.Errorf("%s: %w", op, clients.ErrEmptyResponse)
	}

	return u, nil
}

func (c *Client) do(ctx context.Context, operation string, payload, out any) error {
	if !c.Configured() {
		return clients.ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new_request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.GatewayCall(operation, 0, time.Since(start))
		log.From(ctx).Warn("gateway_http_error",
			"op", "clients/gateway/do",
			"operation", operation,
			"err", err.Error(),
		)
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.GatewayCall(operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		return &clients.StatusError{Status: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return clients.ErrEmptyResponse
		}
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}
