// Article HTTP handlers.
//
// This file exposes REST endpoints for article resources:
//   - POST   /articles        (report an article)
//   - GET    /articles        (list, paginated, ETag support)
//   - GET    /articles/{id}   (fetch one)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/repo"
	"github.com/mediawise/factcheck-backend/internal/services"
	"github.com/mediawise/factcheck-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ArticleService defines article operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ArticleService interface {
	// Create persists a newly reported article for userID.
	Create(ctx context.Context, userID, appID, text, source string) (*domain.Article, error)
	// Get fetches a single article.
	Get(ctx context.Context, id string) (*domain.Article, error)
	// ListPage returns a page of articles and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Article, int64, error)
}

// ReplyService defines reply authoring and connection operations.
type ReplyService interface {
	// CreateForArticle authors a reply and connects it to the article.
	CreateForArticle(ctx context.Context, userID, appID, articleID, text, replyType, reference string) (*domain.ArticleReply, error)
	// Connect attaches an existing reply to an article.
	Connect(ctx context.Context, userID, appID, articleID, replyID string) (*domain.ArticleReply, error)
	// ListForArticle returns the article's visible reply connections.
	ListForArticle(ctx context.Context, articleID string) ([]domain.ArticleReply, error)
}

// AIReplyService defines the AI reply workflow consumed by HTTP handlers.
type AIReplyService interface {
	// Request returns the canonical AI reply for an article, generating one
	// if needed.
	Request(ctx context.Context, userID, appID, articleID string) (*domain.AIResponse, error)
}

// AuthService defines login and identity operations consumed by HTTP handlers.
type AuthService interface {
	// AuthURL returns the provider's authorization URL.
	AuthURL(provider, state string) (string, error)
	// Callback exchanges the code and returns the user plus a signed token.
	Callback(ctx context.Context, provider, code string) (*domain.User, string, error)
	// GetUser fetches the user behind a validated token.
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for articles, replies, AI replies, and auth.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	articleSvc ArticleService
	replySvc   ReplyService
	aiSvc      AIReplyService
	authSvc    AuthService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(articleSvc ArticleService, replySvc ReplyService, aiSvc AIReplyService, authSvc AuthService) *Handlers {
	return &Handlers{articleSvc: articleSvc, replySvc: replySvc, aiSvc: aiSvc, authSvc: authSvc}
}

// identity extracts the authenticated user and app IDs from Gin context (set
// by the auth middleware). If absent, it falls back to the "X-User-ID" /
// "X-App-ID" headers (tests and local development use them). Empty means
// unauthenticated.
func identity(c *gin.Context) (userID, appID string) {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			userID = s
		}
	}
	if v, ok := c.Get("appID"); ok {
		if s, ok := v.(string); ok {
			appID = s
		}
	}
	if userID == "" && c != nil && c.Request != nil {
		userID = strings.TrimSpace(c.GetHeader("X-User-ID"))
		if appID == "" {
			appID = strings.TrimSpace(c.GetHeader("X-App-ID"))
		}
	}
	return
}

//
// DTOs
//

// CreateArticleRequest is the JSON payload for reporting an article.
type CreateArticleRequest struct {
	// Text is the full text of the reported message.
	Text string `json:"text" binding:"required" example:"Forwarded message claiming..."`
	// Source optionally names the channel the message arrived through.
	Source string `json:"source" example:"LINE"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListArticlesResponse wraps a page of articles and pagination information.
type ListArticlesResponse struct {
	Articles   []domain.Article `json:"articles"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreateArticle godoc
// @ID          createArticle
// @Summary     Report an article
// @Description Persists a reported message for the current user and returns the article resource.
// @Tags        Articles
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       body           body    handlers.CreateArticleRequest  true  "Article payload"
//
// @Success     201  {object}  domain.Article
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /articles [post]
func (h *Handlers) CreateArticle(c *gin.Context) {
	var req CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	uid, aid := identity(c)
	a, err := h.articleSvc.Create(c.Request.Context(), uid, aid, req.Text, req.Source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		case errors.Is(err, services.ErrEmptyText):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListArticles godoc
// @ID          listArticles
// @Summary     List articles (paginated)
// @Description Returns a page of reported articles, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Articles
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListArticlesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /articles [get]
func (h *Handlers) ListArticles(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.articleSvc.(*services.ArticleService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ArticlesStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"articles:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.articleSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListArticlesResponse{
		Articles: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetArticle godoc
// @ID          getArticle
// @Summary     Fetch one article
// @Description Returns a single reported article by ID.
// @Tags        Articles
// @Produce     json
//
// @Param       id  path  string  true  "Article ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Article
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Article not found"
// @Router      /articles/{id} [get]
func (h *Handlers) GetArticle(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "article id must be a UUID")
		return
	}

	a, err := h.articleSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrArticleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "article not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}
