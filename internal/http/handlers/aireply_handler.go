package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediawise/factcheck-backend/internal/domain"
	"github.com/mediawise/factcheck-backend/internal/services"
)

// AIReplyResponse is the JSON shape of an AI reply. It embeds the stored
// record and adds the token accounting, which is not serialized on the model.
type AIReplyResponse struct {
	*domain.AIResponse
	Usage *domain.TokenUsage `json:"usage,omitempty"`
}

// RequestAIReply godoc
// @ID          requestAIReply
// @Summary     Request an AI reply for an article
// @Description Returns the canonical AI-generated media-literacy reply for the article. If none exists yet, one is generated. Concurrent requests for the same article converge on a single generation. An upstream completion failure still yields 200 with status "ERROR" recorded on the resource.
// @Tags        AIReplies
// @Produce     json
//
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id             path    string  true  "Article ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.AIReplyResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Article not found"
// @Failure     500  {object} handlers.ErrorResponse "Persistence failure"
// @Failure     504  {object} handlers.ErrorResponse "Timed out waiting for an in-flight generation"
// @Router      /articles/{id}/ai-reply [post]
func (h *Handlers) RequestAIReply(c *gin.Context) {
	uid, aid := identity(c)

	res, err := h.aiSvc.Request(c.Request.Context(), uid, aid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		case errors.Is(err, services.ErrArticleNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "article not found")
		case errors.Is(err, services.ErrWaitTimeout):
			fail(c, http.StatusGatewayTimeout, ErrCodeAIReplyTimeout, "timed out waiting for AI reply")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAIReplyFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, AIReplyResponse{AIResponse: res, Usage: res.Usage()})
}
