// Package services – AIReplyService
//
// This file implements AIReplyService, the component that produces
// AI-generated media-literacy commentary for reported articles. Generating a
// reply costs a slow, billed completion API call, so the service deduplicates
// concurrent requests per article using persisted AIResponse records as the
// only synchronization point: the newest SUCCESS record is canonical, and a
// recent LOADING record means some other caller is already generating.
//
// There is no distributed lock. Two callers that both observe zero fresh
// LOADING records may both create a record and both call the API; the
// newest-SUCCESS-first lookup converges subsequent readers onto one of them.
// That duplicate work is accepted as rare and harmless.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// article and user identifiers.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/cache"
	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/openai"
	"github.com/mediawise/factcheck-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/language"
)

// Prompt fragments sent to the completion API. The reply audience is
// Taiwanese readers, so the prompts are written in Traditional Chinese.
const (
	systemPromptFormat = "今天是%s。你是協助讀者進行媒體識讀的小幫手。你說話時總是使用台灣繁體中文。有讀者傳了一則網路訊息給你。"
	userInstruction    = "請問作為閱聽人，我應該注意這則訊息的哪些地方呢？\n請節錄訊息中需要特別留意的地方，說明為何閱聽人需要注意它，謝謝。"
)

// AIReplyService coordinates AI reply generation and deduplication.
type AIReplyService struct {
	DB        *gorm.DB
	Completer openai.Completer

	// Optional read-through cache of canonical SUCCESS replies. Nil disables it.
	Cache    cache.Cache
	CacheTTL time.Duration

	Model string

	// Coordination windows. LoadingWindow bounds how long a LOADING record
	// blocks new creation; PollInterval is the backoff between convergence
	// checks; MaxWait caps the total wait on other callers (0 = rely on ctx).
	LoadingWindow time.Duration
	PollInterval  time.Duration
	MaxWait       time.Duration

	// PromptLocale controls the date wording in the system prompt.
	PromptLocale language.Tag

	// Now is the injected clock; defaults to time.Now. Tests pin it so the
	// prompt date and window math are deterministic.
	Now func() time.Time
}

// Request returns the canonical AI reply for an article, generating one if
// needed.
//
// Flow:
//  1. Resolve the article; missing articles fail fast.
//  2. Convergence loop: return the newest SUCCESS record if present;
//     otherwise count LOADING records younger than LoadingWindow. Zero means
//     nobody is generating, so break out and create. Nonzero means another
//     caller is in flight: sleep PollInterval and re-check, bounded by
//     MaxWait and ctx.
//  3. Insert a LOADING placeholder and call the completion API concurrently.
//  4. Finalize the placeholder to SUCCESS (text + usage) or ERROR (the error
//     string). An upstream failure is data, not an error: the caller still
//     receives the finalized record with a nil error.
//
// Only store failures and the article lookup produce a non-nil error.
func (s *AIReplyService) Request(ctx context.Context, userID, appID, articleID string) (*domain.AIResponse, error) {
	tr := otel.Tracer("services/AIReplyService")
	ctx, span := tr.Start(ctx, "Request",
		trace.WithAttributes(
			attribute.String("article.id", articleID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	article, err := repo.GetArticle(ctx, s.DB, articleID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}

	if rec, ok := s.cachedReply(ctx, articleID); ok {
		return rec, nil
	}

	rec, err := s.awaitExisting(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		s.storeReply(ctx, rec)
		return rec, nil
	}

	rec, err = s.generate(ctx, userID, appID, article)
	if err != nil {
		return nil, err
	}
	if rec.Status == domain.AIStatusSuccess {
		s.storeReply(ctx, rec)
	}
	return rec, nil
}

// awaitExisting runs the convergence loop. It returns the canonical SUCCESS
// record when one appears, nil when the caller should create its own, or an
// error when the store fails or the wait is abandoned.
func (s *AIReplyService) awaitExisting(ctx context.Context, articleID string) (*domain.AIResponse, error) {
	poll := s.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	window := s.LoadingWindow
	if window <= 0 {
		window = time.Minute
	}

	var deadline time.Time
	if s.MaxWait > 0 {
		deadline = s.now().Add(s.MaxWait)
	}

	for {
		rec, err := repo.LatestSuccessAIResponse(ctx, s.DB, articleID, domain.AIResponseTypeReply)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}

		n, err := repo.CountLoadingAIResponses(ctx, s.DB, articleID, domain.AIResponseTypeReply, s.now().Add(-window))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Nobody is generating (or whoever was has gone stale).
			return nil, nil
		}

		if !deadline.IsZero() && !s.now().Before(deadline) {
			return nil, ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// generate inserts a LOADING placeholder and calls the completion API
// concurrently, then finalizes the placeholder and returns its snapshot.
func (s *AIReplyService) generate(ctx context.Context, userID, appID string, article *domain.Article) (*domain.AIResponse, error) {
	tr := otel.Tracer("services/AIReplyService")
	ctx, span := tr.Start(ctx, "generate",
		trace.WithAttributes(attribute.String("article.id", article.ID)),
	)
	defer span.End()

	now := s.now()
	completionReq := s.buildRequest(article.Text, now)

	reqJSON, err := json.Marshal(completionReq)
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	// Insert the placeholder while the API call is in flight so other
	// callers see the LOADING record as early as possible.
	type insertResult struct {
		rec *domain.AIResponse
		err error
	}
	insCh := make(chan insertResult, 1)
	go func() {
		rec, err := repo.CreateAIResponse(ctx, s.DB, article.ID, domain.AIResponseTypeReply,
			string(reqJSON), userID, appID, now)
		insCh <- insertResult{rec, err}
	}()

	resp, apiErr := s.complete(ctx, completionReq)

	ins := <-insCh
	if ins.err != nil {
		return nil, ins.err
	}

	var status, text string
	var usage *domain.TokenUsage
	if apiErr != nil {
		status = domain.AIStatusError
		text = apiErr.Error()
	} else {
		status = domain.AIStatusSuccess
		text = resp.Text
		if resp.Usage != nil {
			usage = &domain.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
	}

	if err := repo.FinalizeAIResponse(ctx, s.DB, ins.rec.ID, status, text, usage, s.now()); err != nil {
		return nil, err
	}
	return repo.GetAIResponse(ctx, s.DB, ins.rec.ID)
}

// complete invokes the completion API, converting panics from the client into
// plain errors so they finalize the record like any other upstream failure.
func (s *AIReplyService) complete(ctx context.Context, req openai.ChatRequest) (resp *openai.ChatResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("completion client panicked: %v", r)
		}
	}()
	return s.Completer.Complete(ctx, req)
}

// buildRequest assembles the completion payload for an article. It is a pure
// function of the article text and the given time.
func (s *AIReplyService) buildRequest(articleText string, now time.Time) openai.ChatRequest {
	today := formatPromptDate(now, s.PromptLocale)
	return openai.ChatRequest{
		Model: s.Model,
		Messages: []openai.Message{
			{Role: openai.RoleSystem, Content: fmt.Sprintf(systemPromptFormat, today)},
			{Role: openai.RoleUser, Content: articleText},
			{Role: openai.RoleUser, Content: userInstruction},
		},
	}
}

// replyCacheEntry is the cache wire form of an AIResponse. The domain model
// hides token counters from its public JSON, so they are carried explicitly.
type replyCacheEntry struct {
	Record           domain.AIResponse `json:"record"`
	PromptTokens     *int              `json:"prompt_tokens,omitempty"`
	CompletionTokens *int              `json:"completion_tokens,omitempty"`
	TotalTokens      *int              `json:"total_tokens,omitempty"`
}

// cachedReply returns the cached canonical reply for an article, if any.
// Cache failures are treated as misses.
func (s *AIReplyService) cachedReply(ctx context.Context, articleID string) (*domain.AIResponse, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, ok, err := s.Cache.Get(ctx, cache.AIReplyKey(articleID))
	if err != nil || !ok {
		return nil, false
	}
	var e replyCacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	rec := e.Record
	rec.PromptTokens = e.PromptTokens
	rec.CompletionTokens = e.CompletionTokens
	rec.TotalTokens = e.TotalTokens
	return &rec, true
}

// storeReply writes a SUCCESS record to the cache. Failures are ignored; the
// store remains the source of truth.
func (s *AIReplyService) storeReply(ctx context.Context, rec *domain.AIResponse) {
	if s.Cache == nil || rec.Status != domain.AIStatusSuccess {
		return
	}
	raw, err := json.Marshal(replyCacheEntry{
		Record:           *rec,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		TotalTokens:      rec.TotalTokens,
	})
	if err != nil {
		return
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	_ = s.Cache.Set(ctx, cache.AIReplyKey(rec.DocID), raw, ttl)
}

func (s *AIReplyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// formatPromptDate renders the date the way the prompt's audience writes it.
// Chinese locales get the 年/月/日 form; everything else falls back to a long
// English date.
func formatPromptDate(t time.Time, tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "zh" {
		return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
	}
	return t.Format("January 2, 2006")
}
