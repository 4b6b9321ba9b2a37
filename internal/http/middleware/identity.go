// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries caller identity. Sessions are owned by the web
// application in front of this service; it forwards the signed-in user's id
// in X-User-ID and the API trusts it as-is. Identity() copies the header into
// the Gin context so every later middleware (rate limiter, idempotency,
// logging) and handler reads the same value through UserID().
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID is the header the session provider uses to forward the
// authenticated user id.
const HeaderUserID = "X-User-ID"

// ctxKeyUserID is the Gin context key holding the caller's id.
const ctxKeyUserID = "userID"

// Identity stores the trimmed X-User-ID header under the "userID" context
// key. Requests without the header pass through anonymously.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(ctxKeyUserID, uid)
		}
		c.Next()
	}
}

// UserID returns the caller id set by Identity, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireUser rejects anonymous requests with 401. Mount it on route groups
// that act on behalf of a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing " + HeaderUserID + " header",
			})
			return
		}
		c.Next()
	}
}
