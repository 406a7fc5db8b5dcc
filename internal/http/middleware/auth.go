// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Auth() parses and
// validates a JWT from the Authorization header and, on success, stores the
// subject and app identifiers in the Gin context under "userID" and "appID"
// where handlers and the rate limiter pick them up.
//
// Two flavors are provided:
//   - Auth():        optional; anonymous requests pass through unauthenticated
//   - RequireAuth(): rejects requests that did not authenticate with 401
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenValidator validates a signed access token and returns the user and
// app identifiers carried in its claims.
type TokenValidator interface {
	ValidateToken(token string) (userID, appID string, err error)
}

const (
	ctxKeyUserID = "userID"
	ctxKeyAppID  = "appID"
)

// Auth returns middleware that authenticates the request when a bearer token
// is present. Invalid tokens are rejected with 401; requests without an
// Authorization header continue anonymously (handlers decide whether an
// identity is required for the operation).
func Auth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}

		userID, appID, err := v.ValidateToken(raw)
		if err != nil {
			rid := c.Writer.Header().Get("X-Request-ID")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": rid,
				"code":       "unauthorized",
				"message":    "invalid or expired token",
			})
			return
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyAppID, appID)
		c.Next()
	}
}

// RequireAuth returns middleware that rejects unauthenticated requests.
// Install it after Auth() on routes that must not be reached anonymously.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get(ctxKeyUserID); ok {
			if s, ok := v.(string); ok && s != "" {
				c.Next()
				return
			}
		}
		rid := c.Writer.Header().Get("X-Request-ID")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"request_id": rid,
			"code":       "unauthorized",
			"message":    "login required",
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Scheme matching is case-insensitive; an empty string means no token.
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
