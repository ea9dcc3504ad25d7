// redact маскирует чувствительные значения перед записью в лог.
package redact

import (
	"net/url"
	"strings"
)

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// URL убирает из адреса userinfo, query и fragment.
// Неразбираемый адрес целиком заменяется на "***".
func URL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "***"
	}

	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
