package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

const msgHTMLRequired = "HTML code is required"

// ProjectInput — данные проекта. Для UpdateProject nil-поля не меняются.
type ProjectInput struct {
	HTMLCode *string
	Prompt   *string
}

// ListProjects возвращает проекты пользователя, свежие первыми.
// limit <= 0 заменяется на projects.default_limit, большие значения
// обрезаются до projects.max_limit.
func (s *Service) ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]models.Project, error) {
	const op = "service/projects/ListProjects"

	switch {
	case limit <= 0:
		limit = s.cfg.Projects.DefaultLimit
	case limit > s.cfg.Projects.MaxLimit:
		limit = s.cfg.Projects.MaxLimit
	}

	list, err := s.storage.ListProjects(ctx, userID, limit)
	if err != nil {
		return nil, internalErr(ctx, op, err)
	}

	return list, nil
}

// CreateProject сохраняет сгенерированный сайт. HTML очищается повторно:
// клиент мог прислать его не из ответа генерации.
func (s *Service) CreateProject(ctx context.Context, userID uuid.UUID, in ProjectInput) (*models.Project, error) {
	const op = "service/projects/CreateProject"

	if in.HTMLCode == nil {
		return nil, fmt.Errorf("%s: %w", op, invalid(msgHTMLRequired))
	}

	html, prompt, err := s.normalizeProject(*in.HTMLCode, derefOr(in.Prompt, ""))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	p, err := s.storage.CreateProject(ctx, &models.Project{
		UserID:    userID,
		HTMLCode:  html,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}

		return nil, internalErr(ctx, op, err)
	}

	return p, nil
}

// Project возвращает проект владельца.
func (s *Service) Project(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	const op = "service/projects/Project"

	p, err := s.storage.ProjectByID(ctx, userID, id)
	if err != nil {
		return nil, projectErr(ctx, op, err)
	}

	return p, nil
}

// UpdateProject меняет HTML и/или промпт проекта.
func (s *Service) UpdateProject(ctx context.Context, userID, id uuid.UUID, in ProjectInput) (*models.Project, error) {
	const op = "service/projects/UpdateProject"

	if in.HTMLCode == nil && in.Prompt == nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("Nothing to update"))
	}

	var upd storage.ProjectUpdate

	if in.HTMLCode != nil {
		html, err := s.normalizeHTML(*in.HTMLCode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.HTMLCode = &html
	}

	if in.Prompt != nil {
		prompt, err := s.normalizePrompt(*in.Prompt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Prompt = &prompt
	}

	p, err := s.storage.UpdateProject(ctx, userID, id, upd)
	if err != nil {
		return nil, projectErr(ctx, op, err)
	}

	return p, nil
}

// DeleteProject удаляет проект владельца.
func (s *Service) DeleteProject(ctx context.Context, userID, id uuid.UUID) error {
	const op = "service/projects/DeleteProject"

	if err := s.storage.DeleteProject(ctx, userID, id); err != nil {
		return projectErr(ctx, op, err)
	}

	return nil
}

func (s *Service) normalizeProject(html, prompt string) (string, string, error) {
	h, err := s.normalizeHTML(html)
	if err != nil {
		return "", "", err
	}

	p, err := s.normalizePrompt(prompt)
	if err != nil {
		return "", "", err
	}

	return h, p, nil
}

func (s *Service) normalizeHTML(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", invalid(msgHTMLRequired)
	}

	if len(html) > s.cfg.Projects.MaxHTMLBytes {
		return "", invalid(fmt.Sprintf("HTML code must be less than %d bytes", s.cfg.Projects.MaxHTMLBytes))
	}

	return s.cleanHTML(html), nil
}

func (s *Service) normalizePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) > s.cfg.Generation.MaxPromptChars {
		return "", invalid(fmt.Sprintf("Prompt must be less than %d characters", s.cfg.Generation.MaxPromptChars))
	}

	return prompt, nil
}

func projectErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return internalErr(ctx, op, err)
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}

	return *p
}
