package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/pkg/redact"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

const msgPreviewFailed = "Unable to load the reference page. Please try another link."

func (s *Service) validateReferences(refs []models.Reference) error {
	if len(refs) > s.cfg.Generation.MaxReferences {
		return invalid(fmt.Sprintf("No more than %d references are allowed", s.cfg.Generation.MaxReferences))
	}

	for i, ref := range refs {
		switch ref.Kind {
		case models.ReferenceURL, models.ReferenceImage, models.ReferencePDF:
		default:
			return invalid(fmt.Sprintf("Reference %d has unknown kind", i+1))
		}

		switch ref.Usage {
		case "", models.UsageInspiration, models.UsageInclude:
		default:
			return invalid(fmt.Sprintf("Reference %d has unknown usage", i+1))
		}

		u, err := url.Parse(strings.TrimSpace(ref.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid(fmt.Sprintf("Reference %d must have an http(s) URL", i+1))
		}
	}

	return nil
}

// renderReferences собирает блок "Reference materials" для модели.
// Страницы загружаются параллельно (не больше references.concurrency
// одновременно); недоступные пропускаются.
func (s *Service) renderReferences(ctx context.Context, refs []models.Reference) string {
	const op = "service/references/renderReferences"

	if len(refs) == 0 {
		return ""
	}

	summaries := make([]*models.PageSummary, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.References.Concurrency)

	for i, ref := range refs {
		if ref.Kind != models.ReferenceURL {
			continue
		}

		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.cfg.References.FetchTimeout)
			defer cancel()

			sum, err := s.pages.Summarize(fctx, ref.URL)
			if err != nil {
				log.From(ctx).Warn("reference_skipped",
					"op", op,
					"url", redact.URL(ref.URL),
					"err", err.Error(),
				)
				return nil
			}

			summaries[i] = sum
			return nil
		})
	}

	_ = g.Wait()

	var b strings.Builder
	b.WriteString("Reference materials:")

	n := 0
	for i, ref := range refs {
		line := referenceLine(ref, summaries[i])
		if line == "" {
			continue
		}

		n++
		fmt.Fprintf(&b, "\n%d. %s", n, line)
	}

	if n == 0 {
		return ""
	}

	return b.String()
}

func referenceLine(ref models.Reference, sum *models.PageSummary) string {
	usage := ref.Usage
	if usage == "" {
		usage = models.UsageInspiration
	}

	name := ref.Name
	if name == "" {
		name = path.Base(ref.URL)
	}

	switch ref.Kind {
	case models.ReferenceURL:
		if sum == nil {
			return ""
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Website %s", sum.URL)
		if sum.Title != "" {
			fmt.Fprintf(&b, " titled %q", sum.Title)
		}
		if sum.Description != "" {
			fmt.Fprintf(&b, ". Description: %s", sum.Description)
		}
		if sum.Excerpt != "" {
			fmt.Fprintf(&b, ". Content excerpt: %s", sum.Excerpt)
		}
		if usage == models.UsageInclude {
			b.WriteString(". Reuse its content and structure.")
		} else {
			b.WriteString(". Use it as design inspiration only.")
		}

		return b.String()
	case models.ReferenceImage:
		if usage == models.UsageInclude {
			return fmt.Sprintf("Image %q at %s. Include it in the page with an <img> tag using exactly this URL.", name, ref.URL)
		}

		return fmt.Sprintf("Image %q at %s. Use its colors and mood as inspiration, do not embed it.", name, ref.URL)
	case models.ReferencePDF:
		if usage == models.UsageInclude {
			return fmt.Sprintf("PDF document %q at %s. Link to it from the page.", name, ref.URL)
		}

		return fmt.Sprintf("PDF document %q provided as background material.", name)
	}

	return ""
}

// PreviewReference загружает страницу и возвращает её краткое содержание.
func (s *Service) PreviewReference(ctx context.Context, rawURL string) (*models.PageSummary, error) {
	const op = "service/references/PreviewReference"

	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("Please provide a URL"))
	}

	sum, err := s.pages.Summarize(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		if cerr := ctxErr(ctx); cerr != nil {
			return nil, fmt.Errorf("%s: %w", op, cerr)
		}

		switch {
		case errors.Is(err, clients.ErrInvalidURL):
			return nil, fmt.Errorf("%s: %w", op, invalid("URL must use http or https"))
		case errors.Is(err, clients.ErrBlockedAddress):
			return nil, fmt.Errorf("%s: %w", op, invalid("URL points to a private network"))
		case errors.Is(err, clients.ErrUnsupportedContent):
			return nil, fmt.Errorf("%s: %w", op, invalid("URL does not point to an HTML page"))
		}

		log.From(ctx).Warn("reference_preview_failed", "op", op, "url", redact.URL(rawURL), "err", err.Error())

		return nil, fmt.Errorf("%s: %w", op, unavailable(msgPreviewFailed))
	}

	return sum, nil
}

// ReferenceUploadURL выдаёт presigned PUT для загрузки референса.
func (s *Service) ReferenceUploadURL(ctx context.Context, userID uuid.UUID, contentType string, length int64) (*storage.UploadInfo, error) {
	const op = "service/references/ReferenceUploadURL"

	info, err := s.objects.UploadURL(ctx, storage.ClassReference, userID, contentType, length)
	if err != nil {
		return nil, objectErr(ctx, op, err)
	}

	return info, nil
}

// ConfirmReferenceUpload проверяет загруженный файл и определяет его тип.
func (s *Service) ConfirmReferenceUpload(ctx context.Context, userID uuid.UUID, key string) (*models.UploadedReference, error) {
	const op = "service/references/ConfirmReferenceUpload"

	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%s: %w", op, invalid("Please provide an upload key"))
	}

	obj, err := s.objects.CheckUpload(ctx, storage.ClassReference, userID, key)
	if err != nil {
		return nil, objectErr(ctx, op, err)
	}

	kind := models.ReferenceImage
	if obj.ContentType == "application/pdf" {
		kind = models.ReferencePDF
	}

	return &models.UploadedReference{Key: obj.Key, URL: obj.URL, Kind: kind}, nil
}

// objectErr переводит ошибки объектного хранилища.
func objectErr(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidArgument):
		return fmt.Errorf("%s: %w", op, invalid("Unsupported file type or size"))
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return internalErr(ctx, op, err)
}
