package middleware

import (
	"math"
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/metrics"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/ratelimit"
)

// RateLimit допускает запрос, только если ограничитель scope его принял.
// Идентичность — пользователь из AuthBearer или адрес клиента. Отказ:
// 429 с Retry-After, равным длине окна в секундах.
func RateLimit(scope string, l ratelimit.Limiter, trustProxy bool, m *metrics.Metrics) Middleware {
	retryAfter := strconv.Itoa(int(math.Ceil(l.Rule().Window.Seconds())))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if p, ok := PrincipalFrom(r.Context()); ok {
				userID = p.UserID.String()
			}

			identity := ratelimit.Identity(userID, r, trustProxy)

			if !l.Admit(r.Context(), identity) {
				m.RateLimited(scope)
				log.From(r.Context()).Warn("rate_limited", "scope", scope, "identity", identity)

				w.Header().Set("Retry-After", retryAfter)
				apierrors.WriteError(w, r, ratelimit.ErrLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
