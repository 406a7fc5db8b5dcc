// Package services – ReplyService
//
// This file implements ReplyService, which owns human-authored fact-checking
// replies and their connections to articles. Creating a reply and attaching
// it to an article happens in one transaction; attaching an existing reply is
// idempotent per user and rejects duplicates.

package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReplyService coordinates reply authoring and article connections.
type ReplyService struct {
	DB *gorm.DB

	// MaxTextRunes bounds reply length. Zero disables the check.
	MaxTextRunes int
}

// CreateForArticle authors a new reply and connects it to the article in a
// single transaction.
func (s *ReplyService) CreateForArticle(ctx context.Context, userID, appID, articleID, text, replyType, reference string) (*domain.ArticleReply, error) {
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "CreateForArticle",
		trace.WithAttributes(
			attribute.String("article.id", articleID),
			attribute.String("user.id", userID),
		),
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
	if !validReplyType(replyType) {
		return nil, ErrInvalidReplyType
	}

	if _, err := repo.GetArticle(ctx, s.DB, articleID); err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}

	var out *domain.ArticleReply
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reply, err := repo.CreateReply(ctx, tx, userID, appID, text, replyType, reference)
		if err != nil {
			return err
		}
		ar, err := repo.CreateArticleReply(ctx, tx, articleID, reply.ID, userID, appID)
		if err != nil {
			return err
		}
		ar.Reply = *reply
		out = ar
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Connect attaches an existing reply to an article on behalf of userID.
// Duplicate connections map onto ErrDuplicateArticleReply.
func (s *ReplyService) Connect(ctx context.Context, userID, appID, articleID, replyID string) (*domain.ArticleReply, error) {
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "Connect",
		trace.WithAttributes(
			attribute.String("article.id", articleID),
			attribute.String("reply.id", replyID),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthorized
	}
	if _, err := repo.GetArticle(ctx, s.DB, articleID); err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	reply, err := repo.GetReply(ctx, s.DB, replyID)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrReplyNotFound
		}
		return nil, err
	}

	ar, err := repo.CreateArticleReply(ctx, s.DB, articleID, replyID, userID, appID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateArticleReply
		}
		return nil, err
	}
	ar.Reply = *reply
	return ar, nil
}

// ListForArticle returns the visible reply connections of an article.
func (s *ReplyService) ListForArticle(ctx context.Context, articleID string) ([]domain.ArticleReply, error) {
	tr := otel.Tracer("services/ReplyService")
	ctx, span := tr.Start(ctx, "ListForArticle",
		trace.WithAttributes(attribute.String("article.id", articleID)),
	)
	defer span.End()

	if _, err := repo.GetArticle(ctx, s.DB, articleID); err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return repo.ListArticleReplies(ctx, s.DB, articleID)
}

func validReplyType(t string) bool {
	switch t {
	case domain.ReplyTypeRumor, domain.ReplyTypeNotRumor, domain.ReplyTypeOpinionated, domain.ReplyTypeNotArticle:
		return true
	}
	return false
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// SQLite reports these as textual errors, so match on the message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
