package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-site-generator/internal/http/handlers"
	"github.com/pribylovaa/go-site-generator/internal/http/middleware"
	"github.com/pribylovaa/go-site-generator/internal/metrics"
	"github.com/pribylovaa/go-site-generator/internal/ratelimit"
	"github.com/pribylovaa/go-site-generator/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.

	// RequestTimeout — лимит маршрутов без обращения к AI-шлюзу.
	RequestTimeout time.Duration

	Metrics     *metrics.Metrics
	CORSOrigins []string

	// Ограничители: generate — генерация сайта и аватара,
	// assist — улучшение промпта, диалог, превью референсов.
	GenerateLimiter ratelimit.Limiter
	AssistLimiter   ratelimit.Limiter
	TrustProxy      bool

	// RequireAuthForGenerate закрывает /v1/generate для анонимов.
	RequireAuthForGenerate bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Metrics(opts.Metrics),
		middleware.Logging(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.AuthBearer(svc),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc, opts.TrustProxy)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, opts)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, opts)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	generate := middleware.RateLimit("generate", opts.GenerateLimiter, opts.TrustProxy, opts.Metrics)
	assist := middleware.RateLimit("assist", opts.AssistLimiter, opts.TrustProxy, opts.Metrics)
	auth := middleware.RequireAuth()
	optional := middleware.OptionalAuth()
	short := middleware.Timeout(opts.RequestTimeout)

	r.Route("/v1", func(r chi.Router) {
		// открытые; переданный, но невалидный токен отклоняется
		r.Group(func(r chi.Router) {
			if opts.RequireAuthForGenerate {
				r.Use(auth)
			} else {
				r.Use(optional)
			}

			r.With(generate).Post("/generate", h.Generate)
		})
		r.With(optional, short, assist).Post("/references/preview", h.ReferencePreview)
		r.With(optional, short).Post("/captcha/verify", h.VerifyCaptcha)

		r.Group(func(r chi.Router) {
			r.Use(short)

			r.Post("/auth/register", h.RegisterUser)
			r.Post("/auth/login", h.LoginUser)
			r.Post("/auth/refresh", h.RefreshToken)
			r.Post("/auth/logout", h.Logout)
		})

		// только для вошедших; запросы к AI-шлюзу живут под общим лимитом
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.With(assist).Post("/prompts/enhance", h.EnhancePrompt)
			r.Post("/conversations", h.StartConversation)
			r.With(assist).Post("/conversations/{id}/messages", h.SendMessage)
			r.With(generate).Post("/profile/avatar/generate", h.GenerateAvatar)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth, short)

			r.Put("/auth/password", h.ChangePassword)

			r.Get("/conversations/{id}", h.GetConversation)

			r.Get("/profile", h.GetProfile)
			r.Post("/profile/avatar/presign", h.AvatarPresign)
			r.Post("/profile/avatar/confirm", h.AvatarConfirm)

			r.Get("/projects", h.ListProjects)
			r.Post("/projects", h.CreateProject)
			r.Get("/projects/{id}", h.GetProject)
			r.Put("/projects/{id}", h.UpdateProject)
			r.Delete("/projects/{id}", h.DeleteProject)

			r.Post("/references/presign", h.ReferencePresign)
			r.Post("/references/confirm", h.ReferenceConfirm)
		})
	})
}
