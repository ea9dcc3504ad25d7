// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// ENV всегда накладывается поверх YAML. Файл .env из рабочей директории
// (если есть) загружается заранее и не перетирает уже заданные переменные.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config — корневая конфигурация сервиса.
type Config struct {
	Env           string              `yaml:"env" env:"ENV" env-default:"local"`
	HTTP          HTTPConfig          `yaml:"http"`
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
	DB            DBConfig            `yaml:"db"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Redis         RedisConfig         `yaml:"redis"`
	S3            S3Config            `yaml:"s3"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	Auth          AuthConfig          `yaml:"auth"`
	AI            AIConfig            `yaml:"ai"`
	Generation    GenerationConfig    `yaml:"generation"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Captcha       CaptchaConfig       `yaml:"captcha"`
	References    ReferencesConfig    `yaml:"references"`
	Projects      ProjectsConfig      `yaml:"projects"`
	Conversations ConversationsConfig `yaml:"conversations"`
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host        string   `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port        string   `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath    string   `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:""`
	CORSOrigins []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-separator:"," env-default:"*"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// TimeoutConfig — таймауты сервиса. Service ограничивает запрос целиком,
// поэтому должен быть больше AI.Timeout. Request — короткий лимит для
// маршрутов, которые не ходят в AI-шлюз (проекты, профиль, вход).
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"90s"`
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DBConfig — Postgres (пользователи, токены, профили, проекты).
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// MongoConfig — MongoDB (голосовые диалоги). Имя БД берётся из URL.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL" env-default:"mongodb://localhost:27017/site_generator"`
}

// RedisConfig — общие счётчики ограничителя. Пустой URL: счётчики в памяти.
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL" env-default:""`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"site:rl:"`
}

// S3Config — объектное хранилище (MinIO/S3).
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER" env-default:"minioadmin"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD" env-default:"minioadmin"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-default:"site-generator"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"10m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL" env-default:"http://localhost:9000/site-generator"`
}

// UploadsConfig — ограничения на загружаемые файлы.
type UploadsConfig struct {
	AvatarMaxBytes      int64    `yaml:"avatar_max_bytes" env:"UPLOADS_AVATAR_MAX_BYTES" env-default:"5242880"`
	ImageMaxBytes       int64    `yaml:"image_max_bytes" env:"UPLOADS_IMAGE_MAX_BYTES" env-default:"10485760"`
	PDFMaxBytes         int64    `yaml:"pdf_max_bytes" env:"UPLOADS_PDF_MAX_BYTES" env-default:"20971520"`
	AvatarContentTypes  []string `yaml:"avatar_content_types" env:"UPLOADS_AVATAR_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp"`
	ReferenceImageTypes []string `yaml:"reference_image_types" env:"UPLOADS_REFERENCE_IMAGE_TYPES" env-separator:"," env-default:"image/jpeg,image/png,image/webp,image/gif"`
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"site-generator"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-separator:"," env-default:"site-generator-api"`
}

// AIConfig — шлюз chat-completion. Пустой APIKey: генерация отвечает 503.
type AIConfig struct {
	URL               string        `yaml:"url" env:"AI_GATEWAY_URL" env-default:"https://ai.gateway.lovable.dev/v1/chat/completions"`
	APIKey            string        `yaml:"api_key" env:"AI_GATEWAY_API_KEY" env-default:""`
	Timeout           time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"60s"`
	GenerationModel   string        `yaml:"generation_model" env:"AI_GENERATION_MODEL" env-default:"google/gemini-3-flash-preview"`
	EnhanceModel      string        `yaml:"enhance_model" env:"AI_ENHANCE_MODEL" env-default:"google/gemini-2.5-flash"`
	ConversationModel string        `yaml:"conversation_model" env:"AI_CONVERSATION_MODEL" env-default:"google/gemini-3-flash-preview"`
	ImageModel        string        `yaml:"image_model" env:"AI_IMAGE_MODEL" env-default:"google/gemini-2.5-flash-image"`
}

// GenerationConfig — генерация сайтов.
type GenerationConfig struct {
	MaxPromptChars  int  `yaml:"max_prompt_chars" env:"GENERATION_MAX_PROMPT_CHARS" env-default:"2000"`
	RequireAuth     bool `yaml:"require_auth" env:"GENERATION_REQUIRE_AUTH" env-default:"false"`
	MaxReferences   int  `yaml:"max_references" env:"GENERATION_MAX_REFERENCES" env-default:"5"`
	StrictSanitizer bool `yaml:"strict_sanitizer" env:"GENERATION_STRICT_SANITIZER" env-default:"false"`
}

// RuleConfig — окно ограничителя.
type RuleConfig struct {
	Limit  int           `yaml:"limit" env:"LIMIT" env-default:"10"`
	Window time.Duration `yaml:"window" env:"WINDOW" env-default:"60s"`
}

// RateLimitConfig — ограничители по областям: generate (генерация)
// и assist (улучшение промпта, диалог).
type RateLimitConfig struct {
	Generate          RuleConfig    `yaml:"generate" env-prefix:"RATE_LIMIT_GENERATE_"`
	Assist            RuleConfig    `yaml:"assist" env-prefix:"RATE_LIMIT_ASSIST_"`
	SweepInterval     time.Duration `yaml:"sweep_interval" env:"RATE_LIMIT_SWEEP_INTERVAL" env-default:"1m"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers" env:"RATE_LIMIT_TRUST_PROXY_HEADERS" env-default:"false"`
}

// CaptchaConfig — Cloudflare Turnstile.
type CaptchaConfig struct {
	Secret    string        `yaml:"secret" env:"TURNSTILE_SECRET_KEY" env-default:""`
	VerifyURL string        `yaml:"verify_url" env:"TURNSTILE_VERIFY_URL" env-default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	Timeout   time.Duration `yaml:"timeout" env:"TURNSTILE_TIMEOUT" env-default:"10s"`
	Required  bool          `yaml:"required" env:"CAPTCHA_REQUIRED" env-default:"false"`
}

// ReferencesConfig — загрузка страниц-референсов.
type ReferencesConfig struct {
	AllowPrivateNetworks bool          `yaml:"allow_private_networks" env:"REFERENCES_ALLOW_PRIVATE_NETWORKS" env-default:"false"`
	MaxBodyBytes         int64         `yaml:"max_body_bytes" env:"REFERENCES_MAX_BODY_BYTES" env-default:"2097152"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" env:"REFERENCES_FETCH_TIMEOUT" env-default:"10s"`
	MaxExcerptChars      int           `yaml:"max_excerpt_chars" env:"REFERENCES_MAX_EXCERPT_CHARS" env-default:"1500"`
	Concurrency          int           `yaml:"concurrency" env:"REFERENCES_CONCURRENCY" env-default:"4"`
}

// ProjectsConfig — сохранённые сайты пользователя.
type ProjectsConfig struct {
	MaxHTMLBytes int `yaml:"max_html_bytes" env:"PROJECTS_MAX_HTML_BYTES" env-default:"2097152"`
	DefaultLimit int `yaml:"default_limit" env:"PROJECTS_DEFAULT_LIMIT" env-default:"20"`
	MaxLimit     int `yaml:"max_limit" env:"PROJECTS_MAX_LIMIT" env-default:"100"`
}

// ConversationsConfig — голосовые диалоги.
type ConversationsConfig struct {
	TTL         time.Duration `yaml:"ttl" env:"CONVERSATIONS_TTL" env-default:"24h"`
	MaxMessages int           `yaml:"max_messages" env:"CONVERSATIONS_MAX_MESSAGES" env-default:"40"`
}

// Validate отклоняет значения, с которыми сервис работать не может.
func (c *Config) Validate() error {
	var errs []error

	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.RateLimit.Generate.Limit > 0, "rate_limit.generate.limit must be positive")
	check(c.RateLimit.Generate.Window > 0, "rate_limit.generate.window must be positive")
	check(c.RateLimit.Assist.Limit > 0, "rate_limit.assist.limit must be positive")
	check(c.RateLimit.Assist.Window > 0, "rate_limit.assist.window must be positive")
	check(c.Generation.MaxPromptChars > 0, "generation.max_prompt_chars must be positive")
	check(c.Generation.MaxReferences >= 0, "generation.max_references must not be negative")
	check(c.AI.Timeout > 0, "ai.timeout must be positive")
	check(c.Projects.MaxHTMLBytes > 0, "projects.max_html_bytes must be positive")
	check(c.Projects.DefaultLimit > 0 && c.Projects.DefaultLimit <= c.Projects.MaxLimit,
		"projects.default_limit must be in (0, max_limit]")
	check(c.Conversations.MaxMessages > 1, "conversations.max_messages must be greater than 1")
	check(c.References.MaxBodyBytes > 0, "references.max_body_bytes must be positive")
	check(c.References.Concurrency > 0, "references.concurrency must be positive")

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg Config

	// чтение файла + overlay ENV.
	read := func(p string) (*Config, error) {
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		return read(p)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return read("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv подхватывает .env, если файл существует.
func loadDotEnv(p string) error {
	if _, err := os.Stat(p); err != nil {
		return nil
	}

	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("failed to load %s: %w", p, err)
	}

	return nil
}
