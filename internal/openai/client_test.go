package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestComplete_Success(t *testing.T) {
	var gotAuth string
	var gotReq ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46}
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sk-test", 5*time.Second)
	resp, err := c.Complete(context.Background(), ChatRequest{
		Model: "gpt-3.5-turbo",
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "msg"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "hello there" {
		t.Fatalf("text mismatch: %q", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 34 || resp.Usage.TotalTokens != 46 {
		t.Fatalf("usage mismatch: %+v", resp.Usage)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header mismatch: %q", gotAuth)
	}
	if gotReq.Model != "gpt-3.5-turbo" || len(gotReq.Messages) != 2 {
		t.Fatalf("request payload mismatch: %+v", gotReq)
	}
}

func TestComplete_NoUsageBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	resp, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Usage != nil {
		t.Fatalf("expected nil usage, got %+v", resp.Usage)
	}
}

func TestComplete_APIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	if !errors.Is(err, ErrAPIStatus) {
		t.Fatalf("expected ErrAPIStatus, got %v", err)
	}
	if want := "rate limited"; err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("error should carry the API message, got %v", err)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	if _, err := c.Complete(context.Background(), ChatRequest{Model: "m"}); !errors.Is(err, ErrEmptyChoice) {
		t.Fatalf("expected ErrEmptyChoice, got %v", err)
	}
}

func TestComplete_Unreachable(t *testing.T) {
	// Port from a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewHTTPClient(addr, "", time.Second)
	_, err := c.Complete(context.Background(), ChatRequest{Model: "m"})
	if !errors.Is(err, ErrUnreachable) && !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected transport sentinel, got %v", err)
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; without it
		// the client disconnect is never observed, the request context never
		// cancels, and srv.Close deadlocks waiting on this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewHTTPClient(srv.URL, "", time.Minute)
	if _, err := c.Complete(ctx, ChatRequest{Model: "m"}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
