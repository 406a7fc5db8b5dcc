// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Article model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

// CreateArticle inserts a new reported article owned by userID.
// The article ID is a randomly generated UUID and CreatedAt is set to UTC.
func CreateArticle(ctx context.Context, db *gorm.DB, userID, appID, text, source string) (*domain.Article, error) {
	a := &domain.Article{
		ID:        uuid.NewString(),
		Text:      text,
		UserID:    userID,
		AppID:     appID,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticle fetches a single article by ID, or ErrNotFound if missing.
func GetArticle(ctx context.Context, db *gorm.DB, id string) (*domain.Article, error) {
	var a domain.Article
	if err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountArticles returns the total number of articles.
// On DB error, it returns the error.
func CountArticles(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Article{}).
		Count(&total).Error
	return total, err
}

// ListArticlesPage returns a paginated slice of articles, newest first.
// Use CountArticles to obtain the total for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListArticlesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Article, error) {
	var out []domain.Article
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
