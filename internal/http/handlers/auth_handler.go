package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediawise/factcheck-backend/internal/domain"
)

// LoginResponse carries the authenticated user and their access token.
type LoginResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Login godoc
// @ID          login
// @Summary     Start an OAuth login
// @Description Redirects the browser to the provider's authorization page. Supported providers: facebook, github, google.
// @Tags        Auth
//
// @Param       provider  path  string  true  "OAuth provider"  Enums(facebook, github, google)
//
// @Success     302  {string} string "Redirect to provider"
// @Failure     400  {object} handlers.ErrorResponse "Unknown provider"
// @Router      /login/{provider} [get]
func (h *Handlers) Login(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.authSvc.AuthURL(c.Param("provider"), state)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown oauth provider")
		return
	}
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, url)
}

// Callback godoc
// @ID          loginCallback
// @Summary     Complete an OAuth login
// @Description Exchanges the provider's authorization code, resolves the user account, and returns a signed access token.
// @Tags        Auth
// @Produce     json
//
// @Param       provider  path   string  true  "OAuth provider"  Enums(facebook, github, google)
// @Param       code      query  string  true  "Authorization code"
// @Param       state     query  string  true  "CSRF state from the login redirect"
//
// @Success     200  {object} handlers.LoginResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing code or state mismatch"
// @Failure     401  {object} handlers.ErrorResponse "Exchange or profile fetch failed"
// @Router      /callback/{provider} [get]
func (h *Handlers) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing authorization code")
		return
	}
	if want, err := c.Cookie("oauth_state"); err == nil && want != "" {
		if c.Query("state") != want {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "oauth state mismatch")
			return
		}
	}

	user, token, err := h.authSvc.Callback(c.Request.Context(), c.Param("provider"), code)
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeLoginFailed, err.Error())
		return
	}
	c.SetCookie("oauth_state", "", -1, "/", "", false, true)
	ok(c, http.StatusOK, LoginResponse{User: user, Token: token})
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Description Returns the profile of the authenticated user.
// @Tags        Auth
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object} domain.User
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	uid, _ := identity(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	u, err := h.authSvc.GetUser(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "login required")
		return
	}
	ok(c, http.StatusOK, u)
}
