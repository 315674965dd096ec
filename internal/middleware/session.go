package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	ContextSessionIDKey = "session_id"
	SessionCookieName   = "session_id"
)

// Session resolves the caller's session id from the session_id cookie
// and stashes it in the request context. Absence is not an error,
// handlers that need an id mint one.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(SessionCookieName); err == nil && id != "" {
			c.Set(ContextSessionIDKey, id)
		}
		c.Next()
	}
}
