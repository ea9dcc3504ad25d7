package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

const unknownIdentity = "unknown"

// ClientIP возвращает адрес клиента. Заголовки прокси учитываются только
// при trustProxy: иначе их может подделать любой клиент.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				return first
			}
		}

		for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
			if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
				return v
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}

	if host == "" {
		return unknownIdentity
	}

	return host
}

// Identity — ключ ограничителя: пользователь, если он известен, иначе адрес.
func Identity(userID string, r *http.Request, trustProxy bool) string {
	if userID != "" {
		return "user:" + userID
	}

	return "ip:" + ClientIP(r, trustProxy)
}
