package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/openai"
)

// fakeCache is an in-memory Cache for tests.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	gets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }

var errTest = errors.New("boom")

func TestRequest_SuccessIsCached_AndServedFromCache(t *testing.T) {
	db := newSvcDB(t, "aireply_cache")
	fc := &fakeCompleter{
		resp: &openai.ChatResponse{
			Text:  "cached reply",
			Usage: &openai.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		},
	}
	svc := newAIReplySvc(db, fc)
	svc.Cache = newFakeCache()

	seedArticle(t, db, "art-1", "text")

	first, err := svc.Request(context.Background(), "u1", "", "art-1")
	if err != nil {
		t.Fatalf("first Request: %v", err)
	}
	if first.Status != domain.AIStatusSuccess {
		t.Fatalf("expected SUCCESS, got %q", first.Status)
	}

	second, err := svc.Request(context.Background(), "u2", "", "art-1")
	if err != nil {
		t.Fatalf("second Request: %v", err)
	}
	if second.ID != first.ID || second.Text != "cached reply" {
		t.Fatalf("cache round-trip lost the record: %+v", second)
	}
	u := second.Usage()
	if u == nil || u.PromptTokens != 1 || u.CompletionTokens != 2 || u.TotalTokens != 3 {
		t.Fatalf("cache round-trip lost usage: %+v", u)
	}
	if fc.callCount() != 1 {
		t.Fatalf("expected one completion call total, got %d", fc.callCount())
	}
}

func TestRequest_ErrorResultIsNotCached(t *testing.T) {
	db := newSvcDB(t, "aireply_cache_err")
	fc := &fakeCompleter{err: errTest}
	svc := newAIReplySvc(db, fc)
	cch := newFakeCache()
	svc.Cache = cch

	seedArticle(t, db, "art-1", "text")

	rec, err := svc.Request(context.Background(), "u1", "", "art-1")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if rec.Status != domain.AIStatusError {
		t.Fatalf("expected ERROR, got %q", rec.Status)
	}
	if cch.sets != 0 {
		t.Fatalf("ERROR records must not be cached, saw %d sets", cch.sets)
	}
}
