package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/pkg/errcode"
	"github.com/careflow/adrenav/internal/pkg/response"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth gates the admin surface on a shared token. An empty
// configured token rejects everything, admin stays closed by default.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Error(c, errcode.ErrUnauthorized, "admin access not configured")
			c.Abort()
			return
		}
		provided := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			response.Error(c, errcode.ErrUnauthorized, "invalid admin token")
			c.Abort()
			return
		}
		c.Next()
	}
}
