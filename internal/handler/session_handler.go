package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/pkg/errcode"
	"github.com/careflow/adrenav/internal/pkg/response"
	"github.com/careflow/adrenav/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Export returns everything stored for a session: the session row, the
// full message log, and checklist items. The id may come from the
// query string or the cookie.
func (h *SessionHandler) Export(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = getSessionID(c)
	}
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session_id required")
		return
	}
	export, err := h.sessions.Export(c.Request.Context(), sessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, export)
}

type sessionDeleteRequest struct {
	SessionID string `json:"session_id"`
}

// Delete removes the session and clears the cookie. An unknown id is
// treated as already deleted.
func (h *SessionHandler) Delete(c *gin.Context) {
	var req sessionDeleteRequest
	_ = c.ShouldBindJSON(&req)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = getSessionID(c)
	}
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session_id required")
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
		handleError(c, err)
		return
	}
	clearSessionCookie(c)
	response.Success(c, gin.H{"status": "deleted"})
}
