package handlers

import (
	"time"

	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

type referenceDTO struct {
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Name  string `json:"name,omitempty"`
	Usage string `json:"usage,omitempty"`
}

// prompt объявлен как any: не-строка должна давать "Please provide
// a valid prompt", а не ошибку разбора тела.
type generateRequest struct {
	Prompt     any            `json:"prompt"`
	References []referenceDTO `json:"references,omitempty"`
}

type generateResponse struct {
	HTML string `json:"html"`
}

type promptRequest struct {
	Prompt any `json:"prompt"`
}

type enhanceResponse struct {
	EnhancedPrompt string `json:"enhanced_prompt"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationResponse struct {
	ID        string       `json:"id"`
	Messages  []messageDTO `json:"messages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func conversationFromModel(c *models.Conversation) conversationResponse {
	out := conversationResponse{
		ID:        c.ID,
		Messages:  make([]messageDTO, 0, len(c.Messages)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		ExpiresAt: c.ExpiresAt,
	}

	for _, m := range c.Messages {
		out.Messages = append(out.Messages, messageDTO{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}

	return out
}

type replyResponse struct {
	Response         string `json:"response"`
	ReadyToGenerate  bool   `json:"ready_to_generate"`
	GenerationPrompt string `json:"generation_prompt,omitempty"`
}

type profileResponse struct {
	UserID    string     `json:"user_id"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func profileFromModel(p *models.Profile) profileResponse {
	out := profileResponse{UserID: p.UserID.String(), AvatarURL: p.AvatarURL}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		out.UpdatedAt = &t
	}

	return out
}

type avatarRequest struct {
	Prompt any    `json:"prompt"`
	Style  string `json:"style,omitempty"`
}

type avatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type presignRequest struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

type presignResponse struct {
	UploadURL        string            `json:"upload_url"`
	Key              string            `json:"key"`
	ExpiresInSeconds int64             `json:"expires_in_seconds"`
	RequiredHeaders  map[string]string `json:"required_headers,omitempty"`
}

func presignFromInfo(info *storage.UploadInfo) presignResponse {
	return presignResponse{
		UploadURL:        info.UploadURL,
		Key:              info.Key,
		ExpiresInSeconds: int64(info.Expires / time.Second),
		RequiredHeaders:  info.RequiredHeaders,
	}
}

type avatarConfirmRequest struct {
	AvatarKey string `json:"avatar_key"`
}

type referenceConfirmRequest struct {
	Key string `json:"key"`
}

type uploadedReferenceResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

type previewRequest struct {
	URL string `json:"url"`
}

type previewResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Excerpt     string `json:"excerpt"`
}

type projectRequest struct {
	HTMLCode *string `json:"html_code"`
	Prompt   *string `json:"prompt"`
}

type projectResponse struct {
	ID        string    `json:"id"`
	HTMLCode  string    `json:"html_code"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func projectFromModel(p *models.Project) projectResponse {
	return projectResponse{
		ID:        p.ID.String(),
		HTMLCode:  p.HTMLCode,
		Prompt:    p.Prompt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type projectListResponse struct {
	Projects []projectResponse `json:"projects"`
}

type captchaRequest struct {
	Token string `json:"token"`
}

type captchaResponse struct {
	Success bool `json:"success"`
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type tokenPairResponse struct {
	UserID          string    `json:"user_id"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	TokenType       string    `json:"token_type"`
}

func tokenPairFromModel(tp *models.TokenPair, uid string) tokenPairResponse {
	return tokenPairResponse{
		UserID:          uid,
		AccessToken:     tp.AccessToken,
		RefreshToken:    tp.RefreshToken,
		AccessExpiresAt: tp.AccessExpiresAt,
		TokenType:       "Bearer",
	}
}
