package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

const projectColumns = `id, user_id, html_code, prompt, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.HTMLCode,
		&p.Prompt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &p, nil
}

// CreateProject вставляет проект. Пустые ID и времена заполняет БД/сервис.
func (s *Storage) CreateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	const op = "storage/postgres/projects/CreateProject"

	id := project.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	q := `
	INSERT INTO user_projects (id, user_id, html_code, prompt)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + projectColumns

	result, err := scanProject(s.db.QueryRow(ctx, q, id, project.UserID, project.HTMLCode, project.Prompt))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// ProjectByID возвращает проект владельца.
func (s *Storage) ProjectByID(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	const op = "storage/postgres/projects/ProjectByID"

	q := `SELECT ` + projectColumns + ` FROM user_projects WHERE id = $1 AND user_id = $2`

	result, err := scanProject(s.db.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// ListProjects возвращает последние limit проектов владельца,
// сначала недавно изменённые.
func (s *Storage) ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]models.Project, error) {
	const op = "storage/postgres/projects/ListProjects"

	if limit <= 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	q := `
	SELECT ` + projectColumns + `
	FROM user_projects
	WHERE user_id = $1
	ORDER BY updated_at DESC, id DESC
	LIMIT $2`

	rows, err := s.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := make([]models.Project, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return items, nil
}

// UpdateProject выполняет частичный апдейт и всегда сдвигает updated_at.
// Пустой update только обновляет updated_at.
func (s *Storage) UpdateProject(ctx context.Context, userID, id uuid.UUID, update storage.ProjectUpdate) (*models.Project, error) {
	const op = "storage/postgres/projects/UpdateProject"

	sets := []string{"updated_at = now()"}
	args := []any{id, userID}

	if update.HTMLCode != nil {
		args = append(args, *update.HTMLCode)
		sets = append(sets, fmt.Sprintf("html_code = $%d", len(args)))
	}

	if update.Prompt != nil {
		args = append(args, *update.Prompt)
		sets = append(sets, fmt.Sprintf("prompt = $%d", len(args)))
	}

	q := `UPDATE user_projects SET ` + strings.Join(sets, ", ") + `
	WHERE id = $1 AND user_id = $2
	RETURNING ` + projectColumns

	result, err := scanProject(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// DeleteProject удаляет проект владельца.
func (s *Storage) DeleteProject(ctx context.Context, userID, id uuid.UUID) error {
	const op = "storage/postgres/projects/DeleteProject"

	tag, err := s.db.Exec(ctx, `DELETE FROM user_projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
