package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/careflow/adrenav/internal/model"
	appErr "github.com/careflow/adrenav/internal/pkg/errors"
	"github.com/careflow/adrenav/internal/repo"
	"github.com/careflow/adrenav/internal/schema"
)

// SessionService owns the chat log, the per-session checklist, and
// session lifecycle. All repos may be nil when no store is configured;
// reads then come back empty and writes report ErrNoStore or are
// skipped where the caller treats persistence as best effort.
type SessionService struct {
	sessions  *repo.SessionRepo
	messages  *repo.MessageRepo
	checklist *repo.ChecklistRepo
}

func NewSessionService(sessions *repo.SessionRepo, messages *repo.MessageRepo, checklist *repo.ChecklistRepo) *SessionService {
	return &SessionService{sessions: sessions, messages: messages, checklist: checklist}
}

func (s *SessionService) Enabled() bool {
	return s != nil && s.sessions != nil
}

// PersistTurn records one completed turn: the session row, the user
// message, the assistant turn blob, and checklist items lifted from a
// checklist card. Persistence never blocks the response; the caller
// already has the turn in hand, so failures are logged and swallowed.
func (s *SessionService) PersistTurn(ctx context.Context, sessionID, userMessage string, turn *schema.AssistantTurn) {
	if !s.Enabled() || sessionID == "" {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sessionID))
	now := time.Now().UnixMilli()

	if err := s.sessions.Upsert(ctx, &model.Session{ID: sessionID, Ctime: now}); err != nil {
		logger.Error("persist session failed", zap.Error(err))
		return
	}

	if err := s.messages.Append(ctx, &model.Message{
		ID:          newMessageID(),
		SessionID:   sessionID,
		Role:        model.RoleUser,
		ContentText: userMessage,
		Ctime:       now,
	}); err != nil {
		logger.Error("persist user message failed", zap.Error(err))
	}

	turnJSON, err := json.Marshal(turn)
	if err != nil {
		logger.Error("encode assistant turn failed", zap.Error(err))
		return
	}
	if err := s.messages.Append(ctx, &model.Message{
		ID:          newMessageID(),
		SessionID:   sessionID,
		Role:        model.RoleAssistant,
		ContentJSON: turnJSON,
		Ctime:       now + 1,
	}); err != nil {
		logger.Error("persist assistant message failed", zap.Error(err))
	}

	for _, item := range checklistEntries(turn) {
		if err := s.checklist.Upsert(ctx, &model.ChecklistItem{
			ID:        newMessageID(),
			SessionID: sessionID,
			Label:     item.Label,
			Status:    item.Status,
			DueDate:   item.DueDate,
			Ctime:     now,
			Mtime:     now,
		}); err != nil {
			logger.Error("persist checklist item failed", zap.String("label", item.Label), zap.Error(err))
		}
	}
}

func checklistEntries(turn *schema.AssistantTurn) []schema.ChecklistEntry {
	for _, card := range turn.UICards {
		if card.Type != schema.CardChecklist {
			continue
		}
		if content, ok := card.Content.(schema.ChecklistContent); ok {
			return content.Items
		}
	}
	return nil
}

// HistoryMessage is the chat-log projection returned to the client.
// Content is the user text for user turns and the visible assistant
// message for assistant turns.
type HistoryMessage struct {
	ID            string          `json:"id"`
	Role          string          `json:"role"`
	Content       string          `json:"content"`
	AssistantTurn json.RawMessage `json:"assistant_turn"`
}

// History returns the session's messages in chronological order. A
// missing session or store yields an empty list, not an error.
func (s *SessionService) History(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	if !s.Enabled() || sessionID == "" {
		return []HistoryMessage{}, nil
	}
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		content := msg.ContentText
		if content == "" && len(msg.ContentJSON) > 0 {
			var turn struct {
				AssistantMessage string `json:"assistant_message"`
			}
			if err := json.Unmarshal(msg.ContentJSON, &turn); err == nil {
				content = turn.AssistantMessage
			}
		}
		out = append(out, HistoryMessage{
			ID:            msg.ID,
			Role:          msg.Role,
			Content:       content,
			AssistantTurn: msg.ContentJSON,
		})
	}
	return out, nil
}

// LatestTurn returns the most recent assistant turn blob, nil when the
// session has none or no store is configured.
func (s *SessionService) LatestTurn(ctx context.Context, sessionID string) (json.RawMessage, error) {
	if !s.Enabled() || sessionID == "" {
		return nil, nil
	}
	msg, err := s.messages.LatestAssistant(ctx, sessionID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return msg.ContentJSON, nil
}

// SessionExport bundles everything stored for one session.
type SessionExport struct {
	SessionID      string                `json:"session_id"`
	CreatedAt      int64                 `json:"created_at"`
	Messages       []model.Message       `json:"messages"`
	ChecklistItems []model.ChecklistItem `json:"checklist_items"`
}

func (s *SessionService) Export(ctx context.Context, sessionID string) (*SessionExport, error) {
	if !s.Enabled() {
		return nil, appErr.ErrNoStore
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := s.checklist.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	if items == nil {
		items = []model.ChecklistItem{}
	}
	return &SessionExport{
		SessionID:      session.ID,
		CreatedAt:      session.Ctime,
		Messages:       messages,
		ChecklistItems: items,
	}, nil
}

// Delete removes the session and everything hanging off it. Deleting
// an unknown session is not an error.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if !s.Enabled() {
		return appErr.ErrNoStore
	}
	return s.sessions.Delete(ctx, sessionID)
}
