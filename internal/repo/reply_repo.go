// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Reply and
// ArticleReply models.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

// CreateReply inserts a new human-authored reply. Validation of the reply
// type happens in the service layer; the check constraint is the backstop.
func CreateReply(ctx context.Context, db *gorm.DB, userID, appID, text, replyType, reference string) (*domain.Reply, error) {
	r := &domain.Reply{
		ID:        uuid.NewString(),
		Text:      text,
		Type:      replyType,
		Reference: reference,
		UserID:    userID,
		AppID:     appID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetReply fetches a single reply by ID, or ErrNotFound if missing.
func GetReply(ctx context.Context, db *gorm.DB, id string) (*domain.Reply, error) {
	var r domain.Reply
	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateArticleReply connects a reply to an article on behalf of userID.
// The unique index on (article_id, reply_id, user_id) rejects duplicates;
// the raw constraint error is propagated for the service layer to classify.
func CreateArticleReply(ctx context.Context, db *gorm.DB, articleID, replyID, userID, appID string) (*domain.ArticleReply, error) {
	ar := &domain.ArticleReply{
		ID:        uuid.NewString(),
		ArticleID: articleID,
		ReplyID:   replyID,
		UserID:    userID,
		AppID:     appID,
		Status:    domain.ArticleReplyStatusNormal,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ar).Error; err != nil {
		return nil, err
	}
	return ar, nil
}

// ListArticleReplies returns the NORMAL connections for an article, newest
// first, with the Reply side preloaded.
func ListArticleReplies(ctx context.Context, db *gorm.DB, articleID string) ([]domain.ArticleReply, error) {
	var out []domain.ArticleReply
	err := db.WithContext(ctx).
		Preload("Reply").
		Where("article_id = ? AND status = ?", articleID, domain.ArticleReplyStatusNormal).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountArticleReplies returns the number of NORMAL connections for an article.
func CountArticleReplies(ctx context.Context, db *gorm.DB, articleID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ArticleReply{}).
		Where("article_id = ? AND status = ?", articleID, domain.ArticleReplyStatusNormal).
		Count(&total).Error
	return total, err
}
