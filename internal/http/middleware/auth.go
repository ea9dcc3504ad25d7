package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-site-generator/internal/errors"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// TokenValidator проверяет access-токен.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (*models.Principal, error)
}

type (
	principalKey struct{}
	authErrKey   struct{}
)

// AuthBearer проверяет Bearer-токен из Authorization. Валидный токен
// превращается в Principal в контексте, а логгер запроса получает user_id.
// Невалидный токен здесь запрос не прерывает: ошибка сохраняется в
// контексте, а решение принимают RequireAuth и OptionalAuth. Маршруты
// /auth/* не проверяют access-токен вовсе, чтобы обновление сессии
// работало с истёкшим токеном в заголовке.
func AuthBearer(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			p, err := v.ValidateToken(ctx, token)
			if err != nil {
				ctx = context.WithValue(ctx, authErrKey{}, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx = context.WithValue(ctx, principalKey{}, p)
			ctx = log.With(ctx, "user_id", p.UserID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth пропускает только аутентифицированные запросы.
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			err := service.ErrUnauthenticated
			if authErr, ok := r.Context().Value(authErrKey{}).(error); ok {
				err = authErr
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			apierrors.WriteError(w, r, err)
		})
	}
}

// OptionalAuth пропускает анонимных вызывающих, но отвечает 401, если
// учётные данные переданы и не прошли проверку: такой запрос не должен
// молча считаться анонимным и расходовать квоту адреса.
func OptionalAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authErr, ok := r.Context().Value(authErrKey{}).(error)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			apierrors.WriteError(w, r, authErr)
		})
	}
}

// PrincipalFrom возвращает вызывающего из контекста.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok && p != nil
}

// WithPrincipal кладёт вызывающего в контекст.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "

	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(prefix):])

	return token, token != ""
}
