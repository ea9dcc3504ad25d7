// turnstile — клиент проверки токенов Cloudflare Turnstile (siteverify).
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
)

// Client реализует clients.CaptchaVerifier.
type Client struct {
	http      *http.Client
	verifyURL string
	secret    string
}

var _ clients.CaptchaVerifier = (*Client)(nil)

// New создаёт клиент. Если httpClient nil, создаётся клиент с timeout.
func New(httpClient *http.Client, verifyURL, secret string, timeout time.Duration) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{http: httpClient, verifyURL: verifyURL, secret: strings.TrimSpace(secret)}
}

// Configured сообщает, задан ли секретный ключ.
func (c *Client) Configured() bool { return c.secret != "" }

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify отправляет токен на siteverify. remoteIP необязателен.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	const op = "clients/turnstile/Verify"

	if !c.Configured() {
		return false, fmt.Errorf("%s: %w", op, clients.ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%s: new_request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%s: %w", op, &clients.StatusError{Status: resp.StatusCode})
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%s: decode: %w", op, err)
	}

	if !out.Success {
		log.From(ctx).Info("captcha_rejected", "op", op, "error_codes", out.ErrorCodes)
	}

	return out.Success, nil
}
