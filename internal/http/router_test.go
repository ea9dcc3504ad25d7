package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/config"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/ratelimit"
	"github.com/pribylovaa/go-site-generator/internal/service"
	"github.com/pribylovaa/go-site-generator/internal/storage"
	"github.com/pribylovaa/go-site-generator/mocks"
)

// Тесты роутера: маршруты, middleware и обработчики вместе с реальным
// service поверх gomock-хранилищ и клиентов.

const testSecret = "router-secret"

var testUser = uuid.MustParse("0b6a4c36-3f6e-4f55-a0f4-7a5b0d7f2d01")

func routerConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       testSecret,
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			Issuer:          "site-generator",
			Audience:        []string{"site-generator-api"},
		},
		AI:         config.AIConfig{GenerationModel: "gen-model", EnhanceModel: "enhance-model", Timeout: time.Second},
		Generation: config.GenerationConfig{MaxPromptChars: 2000, MaxReferences: 3},
		References: config.ReferencesConfig{FetchTimeout: time.Second, Concurrency: 1},
		Projects:   config.ProjectsConfig{MaxHTMLBytes: 4096, DefaultLimit: 20, MaxLimit: 100},
		Conversations: config.ConversationsConfig{
			TTL:         time.Hour,
			MaxMessages: 10,
		},
	}
}

type routerEnv struct {
	handler       http.Handler
	storage       *mocks.MockStorage
	conversations *mocks.MockConversationStorage
	ai            *mocks.MockAIGateway
	captcha       *mocks.MockCaptchaVerifier
}

type envOption func(*Options)

func newRouterEnv(t *testing.T, opts ...envOption) *routerEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	env := &routerEnv{
		storage:       mocks.NewMockStorage(ctrl),
		conversations: mocks.NewMockConversationStorage(ctrl),
		ai:            mocks.NewMockAIGateway(ctrl),
		captcha:       mocks.NewMockCaptchaVerifier(ctrl),
	}

	svc := service.New(routerConfig(), env.storage, mocks.NewMockObjectStorage(ctrl), env.conversations,
		clients.Clients{AI: env.ai, Captcha: env.captcha, Pages: mocks.NewMockPageFetcher(ctrl)}, nil)

	o := Options{
		Timeout:         5 * time.Second,
		CORSOrigins:     []string{"*"},
		GenerateLimiter: ratelimit.NewMemory(ratelimit.Rule{Limit: 10, Window: time.Minute}),
		AssistLimiter:   ratelimit.NewMemory(ratelimit.Rule{Limit: 10, Window: time.Minute}),
	}
	for _, opt := range opts {
		opt(&o)
	}

	env.handler = NewRouter(svc, o)

	return env
}

// accessToken подписывает токен так же, как внешний провайдер с общим секретом.
func accessToken(t *testing.T, uid uuid.UUID) string {
	t.Helper()
	return signToken(t, uid, time.Now().Add(time.Minute))
}

func signToken(t *testing.T, uid uuid.UUID, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   uid.String(),
		Issuer:    "site-generator",
		Audience:  jwt.ClaimStrings{"site-generator-api"},
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}

func (e *routerEnv) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, rd)
	req.RemoteAddr = "198.51.100.7:4321"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	return rr
}

type errBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v))

	return v
}

func TestGenerate_SanitizedDocument(t *testing.T) {
	env := newRouterEnv(t)

	env.ai.EXPECT().
		Complete(gomock.Any(), "generate", gomock.Any()).
		Return("```html\n<h1>Bakery</h1><script>alert(1)</script><a href=\"javascript:x()\">x</a>\n```", nil)

	rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"A bakery landing page"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	out := decode[struct {
		HTML string `json:"html"`
	}](t, rr)

	require.True(t, strings.HasPrefix(out.HTML, "<!DOCTYPE html>"))
	require.Contains(t, out.HTML, "<h1>Bakery</h1>")
	require.NotContains(t, strings.ToLower(out.HTML), "<script")
	require.NotContains(t, out.HTML, "javascript:")
	require.NotContains(t, out.HTML, "```")
}

func TestGenerate_PromptValidation(t *testing.T) {
	env := newRouterEnv(t)

	tcs := []struct {
		name string
		body string
		msg  string
	}{
		{"not_string", `{"prompt":42}`, "Please provide a valid prompt"},
		{"missing", `{}`, "Please provide a valid prompt"},
		{"broken_json", `{"prompt":`, "Please provide a valid prompt"},
		{"blank", `{"prompt":"   "}`, "Prompt cannot be empty"},
		{"too_long", `{"prompt":"` + strings.Repeat("a", 2001) + `"}`, "Prompt must be less than 2000 characters"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/v1/generate", tc.body, "")
			require.Equal(t, http.StatusBadRequest, rr.Code)

			body := decode[errBody](t, rr)
			require.Equal(t, "invalid_argument", body.Error.Code)
			require.Equal(t, tc.msg, body.Error.Message)
			require.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestGenerate_GatewayNotConfigured(t *testing.T) {
	env := newRouterEnv(t)

	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("", clients.ErrNotConfigured)

	rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"portfolio"}`, "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Equal(t, "Service temporarily unavailable. Please try again later.", decode[errBody](t, rr).Error.Message)
}

func TestGenerate_RateLimited(t *testing.T) {
	env := newRouterEnv(t, func(o *Options) {
		o.GenerateLimiter = ratelimit.NewMemory(ratelimit.Rule{Limit: 2, Window: 30 * time.Second})
	})

	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("<p>ok</p>", nil).Times(2)

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, "")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "30", rr.Header().Get("Retry-After"))
	require.Equal(t, "rate_limited", decode[errBody](t, rr).Error.Code)

	// другой пользователь считается отдельно
	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("<p>ok</p>", nil)

	rr = env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, accessToken(t, testUser))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGenerate_RequireAuth(t *testing.T) {
	env := newRouterEnv(t, func(o *Options) { o.RequireAuthForGenerate = true })

	rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"blog"}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("<p>blog</p>", nil)

	rr = env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"blog"}`, accessToken(t, testUser))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestOpenRoutes_RejectPresentedBadToken(t *testing.T) {
	env := newRouterEnv(t)
	expired := signToken(t, testUser, time.Now().Add(-time.Hour))

	tcs := []struct {
		name  string
		path  string
		body  string
		token string
		code  string
	}{
		{"generate_expired", "/v1/generate", `{"prompt":"shop"}`, expired, "token_expired"},
		{"generate_garbage", "/v1/generate", `{"prompt":"shop"}`, "not-a-jwt", "invalid_token"},
		{"preview_expired", "/v1/references/preview", `{"url":"https://example.com"}`, expired, "token_expired"},
		{"captcha_garbage", "/v1/captcha/verify", `{"token":"t"}`, "not-a-jwt", "invalid_token"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, tc.path, tc.body, tc.token)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Equal(t, `Bearer realm="api"`, rr.Header().Get("WWW-Authenticate"))
			require.Equal(t, tc.code, decode[errBody](t, rr).Error.Code)
		})
	}
}

func TestGenerate_BadTokenDoesNotSpendAddressQuota(t *testing.T) {
	env := newRouterEnv(t, func(o *Options) {
		o.GenerateLimiter = ratelimit.NewMemory(ratelimit.Rule{Limit: 1, Window: time.Minute})
	})
	expired := signToken(t, testUser, time.Now().Add(-time.Hour))

	rr := env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, expired)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("<p>ok</p>", nil)

	rr = env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestPrivateRoutes_RequireToken(t *testing.T) {
	env := newRouterEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/v1/prompts/enhance"},
		{http.MethodPost, "/v1/conversations"},
		{http.MethodGet, "/v1/profile"},
		{http.MethodGet, "/v1/projects"},
		{http.MethodDelete, "/v1/projects/" + uuid.NewString()},
		{http.MethodPost, "/v1/references/presign"},
		{http.MethodPut, "/v1/auth/password"},
	}

	for _, rt := range routes {
		rr := env.do(t, rt.method, rt.path, "", "")
		require.Equal(t, http.StatusUnauthorized, rr.Code, rt.path)

		rr = env.do(t, rt.method, rt.path, "", "not-a-jwt")
		require.Equal(t, http.StatusUnauthorized, rr.Code, rt.path)
		require.Equal(t, "invalid_token", decode[errBody](t, rr).Error.Code, rt.path)
	}
}

func TestProjects_ListAndCreate(t *testing.T) {
	env := newRouterEnv(t)
	token := accessToken(t, testUser)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	env.storage.EXPECT().
		ListProjects(gomock.Any(), testUser, 5).
		Return([]models.Project{{ID: uuid.New(), UserID: testUser, HTMLCode: "<p>a</p>", CreatedAt: created, UpdatedAt: created}}, nil)

	rr := env.do(t, http.MethodGet, "/v1/projects?limit=5", "", token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	list := decode[struct {
		Projects []map[string]any `json:"projects"`
	}](t, rr)
	require.Len(t, list.Projects, 1)
	require.Equal(t, "<p>a</p>", list.Projects[0]["html_code"])

	rr = env.do(t, http.MethodGet, "/v1/projects?limit=abc", "", token)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	env.storage.EXPECT().
		CreateProject(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *models.Project) (*models.Project, error) {
			require.Equal(t, testUser, p.UserID)
			require.NotContains(t, p.HTMLCode, "onclick")
			out := *p
			out.ID = uuid.New()
			out.CreatedAt, out.UpdatedAt = created, created
			return &out, nil
		})

	rr = env.do(t, http.MethodPost, "/v1/projects", `{"html_code":"<button onclick=\"x()\">Hi</button>","prompt":"hi"}`, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestProjects_BadBodyAndUnknownID(t *testing.T) {
	env := newRouterEnv(t)
	token := accessToken(t, testUser)

	rr := env.do(t, http.MethodPost, "/v1/projects", `{"html_code":"<p>x</p>","owner":"someone"}`, token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid request body", decode[errBody](t, rr).Error.Message)

	rr = env.do(t, http.MethodGet, "/v1/projects/not-a-uuid", "", token)
	require.Equal(t, http.StatusNotFound, rr.Code)

	id := uuid.New()
	env.storage.EXPECT().DeleteProject(gomock.Any(), testUser, id).Return(nil)

	rr = env.do(t, http.MethodDelete, "/v1/projects/"+id.String(), "", token)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Empty(t, rr.Body.String())
}

func TestProfile_EmptyWhenMissing(t *testing.T) {
	env := newRouterEnv(t)

	env.storage.EXPECT().ProfileByUserID(gomock.Any(), testUser).Return(nil, storage.ErrNotFound)

	rr := env.do(t, http.MethodGet, "/v1/profile", "", accessToken(t, testUser))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"user_id":"`+testUser.String()+`"}`, rr.Body.String())
}

func TestConversation_SendMessage(t *testing.T) {
	env := newRouterEnv(t)
	token := accessToken(t, testUser)

	env.conversations.EXPECT().
		ConversationByID(gomock.Any(), testUser, "c1").
		Return(&models.Conversation{ID: "c1", UserID: testUser}, nil)
	env.ai.EXPECT().
		Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Great, I have everything.\n[READY_TO_GENERATE]\nA calm yoga studio site", nil)
	env.conversations.EXPECT().
		AppendMessages(gomock.Any(), testUser, "c1", gomock.Len(2), gomock.Any(), 10).
		Return(&models.Conversation{ID: "c1", UserID: testUser}, nil)

	rr := env.do(t, http.MethodPost, "/v1/conversations/c1/messages", `{"content":"yoga studio, calm colors"}`, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.JSONEq(t, `{
		"response": "Great, I have everything.",
		"ready_to_generate": true,
		"generation_prompt": "A calm yoga studio site"
	}`, rr.Body.String())

	env.conversations.EXPECT().
		ConversationByID(gomock.Any(), testUser, "other").
		Return(nil, storage.ErrNotFound)

	rr = env.do(t, http.MethodGet, "/v1/conversations/other", "", token)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCaptchaVerify(t *testing.T) {
	env := newRouterEnv(t)

	env.captcha.EXPECT().Configured().Return(true).AnyTimes()
	env.captcha.EXPECT().Verify(gomock.Any(), "good", "198.51.100.7").Return(true, nil)
	env.captcha.EXPECT().Verify(gomock.Any(), "bad", "198.51.100.7").Return(false, nil)

	rr := env.do(t, http.MethodPost, "/v1/captcha/verify", `{"token":"good"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, decode[struct {
		Success bool `json:"success"`
	}](t, rr).Success)

	rr = env.do(t, http.MethodPost, "/v1/captcha/verify", `{"token":"bad"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"success":false}`, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/v1/captcha/verify", `{"token":""}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Missing token", decode[errBody](t, rr).Error.Message)
}

func TestBasePath(t *testing.T) {
	env := newRouterEnv(t, func(o *Options) { o.BasePath = "/api" })

	env.ai.EXPECT().Complete(gomock.Any(), "generate", gomock.Any()).Return("<p>x</p>", nil)

	rr := env.do(t, http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"x"}`, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newRouterEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/generate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouteTimeoutBudgets(t *testing.T) {
	env := newRouterEnv(t, func(o *Options) {
		o.Timeout = time.Minute
		o.RequestTimeout = 2 * time.Second
	})

	deadlineLeft := func(ctx context.Context) time.Duration {
		dl, ok := ctx.Deadline()
		require.True(t, ok)
		return time.Until(dl)
	}

	env.storage.EXPECT().
		ListProjects(gomock.Any(), testUser, 20).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID, _ int) ([]models.Project, error) {
			require.LessOrEqual(t, deadlineLeft(ctx), 2*time.Second)
			return nil, nil
		})

	rr := env.do(t, http.MethodGet, "/v1/projects", "", accessToken(t, testUser))
	require.Equal(t, http.StatusOK, rr.Code)

	env.ai.EXPECT().
		Complete(gomock.Any(), "generate", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ clients.ChatRequest) (string, error) {
			require.Greater(t, deadlineLeft(ctx), 2*time.Second)
			return "<p>ok</p>", nil
		})

	rr = env.do(t, http.MethodPost, "/v1/generate", `{"prompt":"shop"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
}
