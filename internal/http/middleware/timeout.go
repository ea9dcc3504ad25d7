package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
)

// Timeout ограничивает обработку запроса сроком d. Срок только
// сокращается: более ранний deadline, заданный выше по цепочке,
// сохраняется. Поэтому общий лимит сервиса и короткий лимит маршрута
// можно вешать друг на друга. Значение <=0 отключает ограничение.
//
// Если обработчик вернулся после истечения срока, это логируется
// с бюджетом маршрута: так видно, какой лимит оказался мал.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.From(ctx).Warn("request_deadline_exceeded",
					slog.String("path", r.URL.Path),
					slog.Duration("budget", d),
				)
			}
		})
	}
}
