package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/middleware"
	"github.com/careflow/adrenav/internal/pkg/errcode"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
	"github.com/careflow/adrenav/internal/pkg/response"
)

const sessionCookieMaxAge = 180 * 24 * 3600

func getSessionID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextSessionIDKey)
	sessionID, _ := value.(string)
	return sessionID
}

func setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrNoStore):
		response.Error(c, errcode.ErrNoStore, "store not configured")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
