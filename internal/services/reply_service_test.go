package services

import (
	"context"
	"errors"
	"testing"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

func TestReplyCreateForArticle(t *testing.T) {
	db := newSvcDB(t, "replysvc_create")
	ctx := context.Background()
	seedArticle(t, db, "art-1", "rumor text")
	svc := &ReplyService{DB: db}

	ar, err := svc.CreateForArticle(ctx, "u1", "APP", "art-1", "this is false", domain.ReplyTypeRumor, "https://source.example")
	if err != nil {
		t.Fatalf("CreateForArticle: %v", err)
	}
	if ar.ArticleID != "art-1" || ar.Status != domain.ArticleReplyStatusNormal {
		t.Fatalf("connection mismatch: %+v", ar)
	}
	if ar.Reply.Type != domain.ReplyTypeRumor || ar.Reply.Text != "this is false" {
		t.Fatalf("reply mismatch: %+v", ar.Reply)
	}

	list, err := svc.ListForArticle(ctx, "art-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForArticle: %d items, err %v", len(list), err)
	}
	if list[0].Reply.Text != "this is false" {
		t.Fatalf("preloaded reply mismatch: %+v", list[0].Reply)
	}
}

func TestReplyCreateForArticle_Validation(t *testing.T) {
	db := newSvcDB(t, "replysvc_validate")
	ctx := context.Background()
	seedArticle(t, db, "art-1", "text")
	svc := &ReplyService{DB: db}

	if _, err := svc.CreateForArticle(ctx, "", "", "art-1", "x", domain.ReplyTypeRumor, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.CreateForArticle(ctx, "u1", "", "art-1", "  ", domain.ReplyTypeRumor, ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := svc.CreateForArticle(ctx, "u1", "", "art-1", "x", "MAYBE", ""); !errors.Is(err, ErrInvalidReplyType) {
		t.Fatalf("expected ErrInvalidReplyType, got %v", err)
	}
	if _, err := svc.CreateForArticle(ctx, "u1", "", "missing", "x", domain.ReplyTypeRumor, ""); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestReplyConnect_DuplicateRejected(t *testing.T) {
	db := newSvcDB(t, "replysvc_dup")
	ctx := context.Background()
	seedArticle(t, db, "art-1", "text")
	seedArticle(t, db, "art-2", "same rumor elsewhere")
	svc := &ReplyService{DB: db}

	ar, err := svc.CreateForArticle(ctx, "u1", "", "art-1", "debunked", domain.ReplyTypeRumor, "")
	if err != nil {
		t.Fatalf("seed reply: %v", err)
	}

	// Same reply on a second article is fine.
	if _, err := svc.Connect(ctx, "u1", "", "art-2", ar.ReplyID); err != nil {
		t.Fatalf("Connect to second article: %v", err)
	}

	// Connecting it again to the same article by the same user is not.
	if _, err := svc.Connect(ctx, "u1", "", "art-1", ar.ReplyID); !errors.Is(err, ErrDuplicateArticleReply) {
		t.Fatalf("expected ErrDuplicateArticleReply, got %v", err)
	}

	// A different user may connect the same reply.
	if _, err := svc.Connect(ctx, "u2", "", "art-1", ar.ReplyID); err != nil {
		t.Fatalf("Connect by other user: %v", err)
	}
}

func TestReplyConnect_MissingSides(t *testing.T) {
	db := newSvcDB(t, "replysvc_missing")
	ctx := context.Background()
	seedArticle(t, db, "art-1", "text")
	svc := &ReplyService{DB: db}

	if _, err := svc.Connect(ctx, "u1", "", "missing", "r1"); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
	if _, err := svc.Connect(ctx, "u1", "", "art-1", "missing"); !errors.Is(err, ErrReplyNotFound) {
		t.Fatalf("expected ErrReplyNotFound, got %v", err)
	}
}
