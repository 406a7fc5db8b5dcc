package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/repo"
	"github.com/mediawise/factcheck-backend/internal/services"
)

// CreateReplyRequest is the JSON payload for authoring or connecting a reply.
//
// Exactly one mode applies per request: when ReplyID is set the existing
// reply is connected to the article and the remaining fields are ignored;
// otherwise Text and Type author a new reply.
type CreateReplyRequest struct {
	// ReplyID connects an already authored reply instead of creating one.
	ReplyID string `json:"replyId" example:""`
	// Text is the reply body (required when authoring).
	Text string `json:"text" example:"This claim was debunked in 2019..."`
	// Type classifies the article: RUMOR, NOT_RUMOR, OPINIONATED, or NOT_ARTICLE.
	Type string `json:"type" example:"RUMOR"`
	// Reference optionally cites supporting sources.
	Reference string `json:"reference" example:"https://tfc-taiwan.org.tw/..."`
}

// ListRepliesResponse wraps an article's reply connections.
type ListRepliesResponse struct {
	ArticleReplies []domain.ArticleReply `json:"article_replies"`
}

// CreateReply godoc
// @ID          createReply
// @Summary     Author or connect a reply
// @Description Creates a new reply and connects it to the article, or (when replyId is given) connects an existing reply. A user may connect a given reply to a given article only once.
// @Tags        Replies
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Article ID (UUID)"  format(uuid)
// @Param       body           body    handlers.CreateReplyRequest  true  "Reply payload"
//
// @Success     201  {object} domain.ArticleReply
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Article or reply not found"
// @Failure     409  {object} handlers.ErrorResponse "Reply already connected by this user"
// @Router      /articles/{id}/replies [post]
func (h *Handlers) CreateReply(c *gin.Context) {
	var req CreateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	uid, aid := identity(c)
	articleID := c.Param("id")

	var (
		ar  *domain.ArticleReply
		err error
	)
	if req.ReplyID != "" {
		ar, err = h.replySvc.Connect(c.Request.Context(), uid, aid, articleID, req.ReplyID)
	} else {
		ar, err = h.replySvc.CreateForArticle(c.Request.Context(), uid, aid, articleID, req.Text, req.Type, req.Reference)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		case errors.Is(err, services.ErrArticleNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "article not found")
		case errors.Is(err, services.ErrReplyNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "reply not found")
		case errors.Is(err, services.ErrDuplicateArticleReply):
			fail(c, http.StatusConflict, ErrCodeConflict, "reply already connected to this article by this user")
		case errors.Is(err, services.ErrEmptyText):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text too long")
		case errors.Is(err, services.ErrInvalidReplyType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid reply type")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, ar)
}

// ListReplies godoc
// @ID          listReplies
// @Summary     List an article's replies
// @Description Returns the visible reply connections for an article, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Replies
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       id             path    string  true  "Article ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ListRepliesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Article not found"
// @Router      /articles/{id}/replies [get]
func (h *Handlers) ListReplies(c *gin.Context) {
	ctx := c.Request.Context()
	articleID := c.Param("id")

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.replySvc.(*services.ReplyService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ArticleRepliesStats(ctx, db, articleID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"replies:%s:%d:%d"`, articleID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.replySvc.ListForArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, services.ErrArticleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "article not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRepliesResponse{ArticleReplies: items})
}
