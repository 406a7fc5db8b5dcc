// Package services – ArticleService
//
// This file implements ArticleService, which owns submission and listing of
// reported articles. Submitted text is normalized (line endings, repeated
// blank lines, surrounding whitespace) before persistence so duplicate
// detection and AI prompts see a stable form.

package services

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ArticleService coordinates article submission and listing.
type ArticleService struct {
	DB *gorm.DB

	// MaxTextRunes bounds submitted article length. Zero disables the check.
	MaxTextRunes int
}

// Create normalizes and persists a newly reported article.
func (s *ArticleService) Create(ctx context.Context, userID, appID, text, source string) (*domain.Article, error) {
	tr := otel.Tracer("services/ArticleService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	text = NormalizeText(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTooLong
	}

	return repo.CreateArticle(ctx, s.DB, userID, appID, text, source)
}

// Get fetches a single article by ID.
func (s *ArticleService) Get(ctx context.Context, id string) (*domain.Article, error) {
	tr := otel.Tracer("services/ArticleService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("article.id", id)),
	)
	defer span.End()

	a, err := repo.GetArticle(ctx, s.DB, id)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListPage returns paginated articles, newest first, with the total count.
func (s *ArticleService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Article, int64, error) {
	tr := otel.Tracer("services/ArticleService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountArticles(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Article{}, 0, nil
	}

	items, err := repo.ListArticlesPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

var multiBlankRE = regexp.MustCompile(`\n{3,}`)

// NormalizeText canonicalizes submitted text: CRLF to LF, runs of blank lines
// collapsed to one, surrounding whitespace trimmed.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiBlankRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
