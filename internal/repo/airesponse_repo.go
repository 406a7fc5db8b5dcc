// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the AIResponse
// model, the record type that coordinates concurrent AI-reply generation.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The store is the only synchronization point between concurrent generation
// attempts: callers query for the newest SUCCESS record, count recent LOADING
// placeholders, and only create a new record when neither exists. The
// coordination logic itself lives in services.AIReplyService.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// LatestSuccessAIResponse returns the newest SUCCESS record for the given
// document and response type, or ErrNotFound when none exists. Newest is
// decided by creation time so re-generated replies shadow older ones without
// any record ever being deleted.
func LatestSuccessAIResponse(ctx context.Context, db *gorm.DB, docID, typ string) (*domain.AIResponse, error) {
	var r domain.AIResponse
	err := db.WithContext(ctx).
		Where("doc_id = ? AND type = ? AND status = ?", docID, typ, domain.AIStatusSuccess).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountLoadingAIResponses returns how many LOADING records exist for the
// document and type with created_at at or after since. LOADING records older
// than the caller's window are treated as abandoned by whoever created them
// and are excluded here.
func CountLoadingAIResponses(ctx context.Context, db *gorm.DB, docID, typ string, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AIResponse{}).
		Where("doc_id = ? AND type = ? AND status = ? AND created_at >= ?",
			docID, typ, domain.AIStatusLoading, since).
		Count(&total).Error
	return total, err
}

// CreateAIResponse inserts a LOADING placeholder announcing that a generation
// attempt is in flight. The record ID is a randomly generated UUID and
// CreatedAt is set from now (the caller's clock, UTC).
//
// On success, it returns the persisted record. On failure, it returns a DB error.
func CreateAIResponse(ctx context.Context, db *gorm.DB, docID, typ, request, userID, appID string, now time.Time) (*domain.AIResponse, error) {
	r := &domain.AIResponse{
		ID:        uuid.NewString(),
		DocID:     docID,
		Type:      typ,
		Status:    domain.AIStatusLoading,
		Request:   request,
		UserID:    userID,
		AppID:     appID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// FinalizeAIResponse moves a placeholder to its terminal status, writing the
// reply text (or stringified upstream error) and optional token usage in a
// single update. If no rows are affected the placeholder never made it to the
// store and ErrNotFound is returned; the caller treats that as fatal.
//
// Only the terminal fields and UpdatedAt are touched; CreatedAt stays the
// insertion time so the recency window keeps its meaning.
func FinalizeAIResponse(ctx context.Context, db *gorm.DB, id, status, text string, usage *domain.TokenUsage, now time.Time) error {
	fields := map[string]any{
		"status":     status,
		"text":       text,
		"updated_at": now.UTC(),
	}
	if usage != nil {
		fields["prompt_tokens"] = usage.PromptTokens
		fields["completion_tokens"] = usage.CompletionTokens
		fields["total_tokens"] = usage.TotalTokens
	}
	res := db.WithContext(ctx).
		Model(&domain.AIResponse{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAIResponse fetches a single record by ID, or ErrNotFound if missing.
func GetAIResponse(ctx context.Context, db *gorm.DB, id string) (*domain.AIResponse, error) {
	var r domain.AIResponse
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
