package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/clients/gateway"
	"github.com/pribylovaa/go-site-generator/internal/clients/pages"
	"github.com/pribylovaa/go-site-generator/internal/clients/turnstile"
	"github.com/pribylovaa/go-site-generator/internal/config"
	sitehttp "github.com/pribylovaa/go-site-generator/internal/http"
	"github.com/pribylovaa/go-site-generator/internal/metrics"
	"github.com/pribylovaa/go-site-generator/internal/ratelimit"
	"github.com/pribylovaa/go-site-generator/internal/service"
	"github.com/pribylovaa/go-site-generator/internal/storage/minio"
	"github.com/pribylovaa/go-site-generator/internal/storage/mongo"
	"github.com/pribylovaa/go-site-generator/internal/storage/postgres"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// tokenCleanupInterval — период удаления просроченных refresh-токенов.
const tokenCleanupInterval = time.Hour

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting site-generator", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	store, err := postgres.New(rootCtx, cfg.DB.URL)
	if err != nil {
		log.Error("postgres_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	objects, err := minio.New(rootCtx, cfg)
	if err != nil {
		log.Error("minio_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	conversations, err := mongo.New(rootCtx, cfg)
	if err != nil {
		log.Error("mongo_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if cerr := conversations.Close(ctx); cerr != nil {
			log.Warn("mongo_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("storages_initialized")

	cl := clients.Clients{
		AI:      gateway.New(nil, cfg.AI.URL, cfg.AI.APIKey, cfg.AI.Timeout, m),
		Captcha: turnstile.New(nil, cfg.Captcha.VerifyURL, cfg.Captcha.Secret, cfg.Captcha.Timeout),
		Pages: pages.New(pages.Options{
			AllowPrivateNetworks: cfg.References.AllowPrivateNetworks,
			MaxBodyBytes:         cfg.References.MaxBodyBytes,
			MaxExcerptChars:      cfg.References.MaxExcerptChars,
			Timeout:              cfg.References.FetchTimeout,
		}),
	}

	if !cl.AI.Configured() {
		log.Warn("ai_gateway_not_configured")
	}

	svc := service.New(cfg, store, objects, conversations, cl, m)

	generateLimiter, assistLimiter, closeLimiters := setupLimiters(rootCtx, cfg, log)
	defer closeLimiters()

	go cleanupTokens(rootCtx, svc, log)

	apiHandler := sitehttp.NewRouter(svc, sitehttp.Options{
		Logger:                 log,
		Timeout:                cfg.Timeouts.Service,
		RequestTimeout:         cfg.Timeouts.Request,
		BasePath:               cfg.HTTP.BasePath,
		Metrics:                m,
		CORSOrigins:            cfg.HTTP.CORSOrigins,
		GenerateLimiter:        generateLimiter,
		AssistLimiter:          assistLimiter,
		TrustProxy:             cfg.RateLimit.TrustProxyHeaders,
		RequireAuthForGenerate: cfg.Generation.RequireAuth,
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, ping := range map[string]func(context.Context) error{
			"postgres": store.Ping,
			"mongo":    conversations.Ping,
			"s3":       objects.Ping,
		} {
			if err := ping(ctx); err != nil {
				log.Warn("readiness_check_failed", slog.String("dependency", name), slog.String("err", err.Error()))
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// setupLimiters создаёт ограничители generate и assist. Без redis.url
// счётчики живут в памяти процесса; с Redis память служит запасным
// вариантом на время недоступности Redis. Очистка устаревших окон
// работает до отмены ctx.
func setupLimiters(ctx context.Context, cfg *config.Config, log *slog.Logger) (generate, assist ratelimit.Limiter, closeFn func()) {
	genRule := ratelimit.Rule{Limit: cfg.RateLimit.Generate.Limit, Window: cfg.RateLimit.Generate.Window}
	assistRule := ratelimit.Rule{Limit: cfg.RateLimit.Assist.Limit, Window: cfg.RateLimit.Assist.Window}

	genMem := ratelimit.NewMemory(genRule)
	assistMem := ratelimit.NewMemory(assistRule)

	go genMem.Run(ctx, cfg.RateLimit.SweepInterval)
	go assistMem.Run(ctx, cfg.RateLimit.SweepInterval)

	if cfg.Redis.URL == "" {
		log.Info("rate_limiter_memory")
		return genMem, assistMem, func() {}
	}

	rdb, err := ratelimit.DialRedis(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn("rate_limiter_redis_unavailable", slog.String("err", err.Error()))
		return genMem, assistMem, func() {}
	}

	log.Info("rate_limiter_redis")

	generate = ratelimit.NewRedis(rdb, cfg.Redis.Prefix+"generate:", genRule, genMem)
	assist = ratelimit.NewRedis(rdb, cfg.Redis.Prefix+"assist:", assistRule, assistMem)

	return generate, assist, func() { closeRedis(rdb, log) }
}

func closeRedis(rdb *redis.Client, log *slog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn("redis_close_failed", slog.String("err", err.Error()))
	}
}

// cleanupTokens периодически удаляет просроченные refresh-токены.
func cleanupTokens(ctx context.Context, svc *service.Service, log *slog.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanupExpiredTokens(ctx)
			if err != nil {
				log.Warn("token_cleanup_failed", slog.String("err", err.Error()))
				continue
			}

			if n > 0 {
				log.Info("token_cleanup_done", slog.Int64("deleted", n))
			}
		}
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
