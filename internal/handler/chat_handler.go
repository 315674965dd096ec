package handler

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careflow/adrenav/internal/pkg/errcode"
	"github.com/careflow/adrenav/internal/pkg/response"
	"github.com/careflow/adrenav/internal/service"
)

type ChatHandler struct {
	dialogue *service.DialogueService
	sessions *service.SessionService
}

func NewChatHandler(dialogue *service.DialogueService, sessions *service.SessionService) *ChatHandler {
	return &ChatHandler{dialogue: dialogue, sessions: sessions}
}

type chatRequest struct {
	SessionID   string          `json:"session_id"`
	UserMessage string          `json:"user_message"`
	ClientState json.RawMessage `json:"client_state"`
}

// Chat runs one turn. The session id comes from the body, then the
// cookie; a caller with neither gets a fresh one back in the cookie.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		response.Error(c, errcode.ErrInvalid, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = getSessionID(c)
	}
	if sessionID == "" {
		sessionID = service.NewSessionID()
		setSessionCookie(c, sessionID)
	}

	turn, err := h.dialogue.RunTurn(c.Request.Context(), service.TurnRequest{
		SessionID:   sessionID,
		UserMessage: req.UserMessage,
		ClientState: req.ClientState,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	h.sessions.PersistTurn(c.Request.Context(), sessionID, service.SanitizeUserMessage(req.UserMessage), turn)

	response.Success(c, turn)
}

// History returns the chat log for the caller's session, oldest first.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := getSessionID(c)
	messages, err := h.sessions.History(c.Request.Context(), sessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"messages": messages})
}

// Summary returns the most recent assistant turn, null when there is
// none.
func (h *ChatHandler) Summary(c *gin.Context) {
	sessionID := getSessionID(c)
	turn, err := h.sessions.LatestTurn(c.Request.Context(), sessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	if turn == nil {
		response.Success(c, gin.H{"assistant_turn": nil})
		return
	}
	response.Success(c, gin.H{"assistant_turn": turn})
}
